package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the loaded configuration
type Config struct {
	Port                string
	Env                 string
	LogLevel            string
	StoreAPIURL         string
	RequestTimeout      time.Duration
	ShippingPrice       decimal.Decimal
	RedisURL            string
	CartSnapshotTTL     time.Duration
	IdempotencyTTL      time.Duration
	SessionTTL          time.Duration
	JWTSecret           string
	JWTSecretName       string
	CORSOrigins         []string
	RateLimitPerMinute  int
	RateLimitBurst      int
	CloudWatchEnabled   bool
	CloudWatchNamespace string
	OrderEventsTopicARN string
	IdentityFile        string
}

// Load reads the optional .env file and then the environment
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return Config{
		Port:                getEnv("PORT", "8090"),
		Env:                 getEnv("APP_ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", ""),
		StoreAPIURL:         strings.TrimRight(getEnv("STORE_API_URL", "http://localhost:5000/api"), "/"),
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 10*time.Second),
		ShippingPrice:       getDecimal("SHIPPING_PRICE", decimal.NewFromInt(50)),
		RedisURL:            getEnv("REDIS_URL", ""),
		CartSnapshotTTL:     getDuration("CART_SNAPSHOT_TTL", 24*time.Hour*7),
		IdempotencyTTL:      getDuration("CHECKOUT_IDEMPOTENCY_TTL", 24*time.Hour),
		SessionTTL:          getDuration("SESSION_TTL", 30*time.Minute),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTSecretName:       getEnv("JWT_SECRET_NAME", ""),
		CORSOrigins:         splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RateLimitPerMinute:  getInt("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:      getInt("RATE_LIMIT_BURST", 20),
		CloudWatchEnabled:   getEnv("CLOUDWATCH_ENABLED", "false") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "Storefront"),
		OrderEventsTopicARN: getEnv("ORDER_EVENTS_TOPIC_ARN", ""),
		IdentityFile:        getEnv("IDENTITY_FILE", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return d
}

func getInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func getDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		log.Printf("invalid %s=%q, using %s", key, raw, defaultVal)
		return defaultVal
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
