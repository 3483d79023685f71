package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Storefront metric names.
const (
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPErrors   = "HTTPErrors"
	MetricHTTPLatency  = "HTTPLatency"

	MetricCartMutations      = "CartMutations"
	MetricCartMutationErrors = "CartMutationErrors"
	MetricCartStaleResponses = "CartStaleResponses"
	MetricCartCheckouts      = "CartCheckouts"
	MetricOrdersFailed       = "OrdersFailed"

	MetricCacheHits   = "CacheHits"
	MetricCacheMisses = "CacheMisses"
)

// CloudWatch rejects PutMetricData calls with more data points than this.
const maxDatumsPerCall = 1000

// MetricPutter is the slice of the CloudWatch API the metrics client uses.
type MetricPutter interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Datum is one data point. Dimensions are sent sorted by name.
type Datum struct {
	Name       string
	Value      float64
	Unit       types.StandardUnit
	Dimensions map[string]string
}

// Count is a single increment of the named counter.
func Count(name string, dimensions map[string]string) Datum {
	return Datum{Name: name, Value: 1, Unit: types.StandardUnitCount, Dimensions: dimensions}
}

// Latency is a duration in milliseconds.
func Latency(name string, d time.Duration, dimensions map[string]string) Datum {
	return Datum{Name: name, Value: float64(d.Milliseconds()), Unit: types.StandardUnitMilliseconds, Dimensions: dimensions}
}

// MetricsClient publishes storefront metrics to one CloudWatch namespace.
// The zero value and a nil *MetricsClient drop everything.
type MetricsClient struct {
	client    MetricPutter
	namespace string
	enabled   bool
	now       func() time.Time
}

func NewMetricsClient(cfg aws.Config, namespace string, enabled bool) *MetricsClient {
	return NewMetricsClientWith(cloudwatch.NewFromConfig(cfg), namespace, enabled)
}

// NewMetricsClientWith uses the given CloudWatch API implementation.
func NewMetricsClientWith(client MetricPutter, namespace string, enabled bool) *MetricsClient {
	if namespace == "" {
		namespace = "Storefront"
	}
	return &MetricsClient{
		client:    client,
		namespace: namespace,
		enabled:   enabled && client != nil,
		now:       time.Now,
	}
}

func (m *MetricsClient) IsEnabled() bool {
	return m != nil && m.enabled
}

// Put sends the data points in as few PutMetricData calls as CloudWatch allows.
// All points share one timestamp.
func (m *MetricsClient) Put(ctx context.Context, points ...Datum) error {
	if !m.IsEnabled() || len(points) == 0 {
		return nil
	}

	ts := aws.Time(m.now())
	data := make([]types.MetricDatum, 0, len(points))
	for _, p := range points {
		data = append(data, types.MetricDatum{
			MetricName: aws.String(p.Name),
			Value:      aws.Float64(p.Value),
			Unit:       p.Unit,
			Timestamp:  ts,
			Dimensions: dimensionList(p.Dimensions),
		})
	}

	for start := 0; start < len(data); start += maxDatumsPerCall {
		end := start + maxDatumsPerCall
		if end > len(data) {
			end = len(data)
		}
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: data[start:end],
		})
		if err != nil {
			return fmt.Errorf("failed to put %d metrics to %s: %w", end-start, m.namespace, err)
		}
	}
	return nil
}

// RecordCount increments a counter metric
func (m *MetricsClient) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	return m.Put(ctx, Count(metricName, dimensions))
}

func dimensionList(dimensions map[string]string) []types.Dimension {
	if len(dimensions) == 0 {
		return nil
	}
	names := make([]string, 0, len(dimensions))
	for k := range dimensions {
		names = append(names, k)
	}
	sort.Strings(names)

	dims := make([]types.Dimension, 0, len(names))
	for _, k := range names {
		dims = append(dims, types.Dimension{Name: aws.String(k), Value: aws.String(dimensions[k])})
	}
	return dims
}
