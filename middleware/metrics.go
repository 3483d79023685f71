package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/luxurytech30-cpu/meiza-font/pkg/aws"
)

// MetricsMiddleware publishes one batch per request: a request count, its latency and,
// for 4xx/5xx responses, an error count. Unrouted requests share the "unmatched" route.
func MetricsMiddleware(metrics *awspkg.MetricsClient, service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !metrics.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		points := requestMetrics(service, c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metrics.Put(ctx, points...)
		}()
	}
}

func requestMetrics(service, method, route string, status int, elapsed time.Duration) []awspkg.Datum {
	if route == "" {
		route = "unmatched"
	}
	dims := map[string]string{
		"Service": service,
		"Route":   method + " " + route,
		"Class":   statusClass(status),
	}
	points := []awspkg.Datum{
		awspkg.Count(awspkg.MetricHTTPRequests, dims),
		awspkg.Latency(awspkg.MetricHTTPLatency, elapsed, dims),
	}
	if status >= 400 {
		points = append(points, awspkg.Count(awspkg.MetricHTTPErrors, dims))
	}
	return points
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
