package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	LogLevel     string
	LogFormat    string
	OTLPEndpoint string
	OTLPProtocol string
	OtelEnabled  bool
	// TraceSampleRatio is the fraction of root spans exported (OTEL_TRACES_SAMPLER_ARG).
	TraceSampleRatio float64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBMetricsEnabled  bool

	// AccountStore selects the account persistence backend: "sql" or "mongo".
	AccountStore string
	Mongo        MongoConfig
	Redis        RedisConfig
	Payment      PaymentConfig

	PlanCacheTTL time.Duration
	PolicyPath   string

	SchedulerRunInterval time.Duration
	SchedulerBatchSize   int
}

type MongoConfig struct {
	URL      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a redis address was configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type PaymentConfig struct {
	Gateway        string
	WebhookSecret  string
	WebhookTimeout time.Duration
	// ProviderSecrets holds PAYMENT_<PROVIDER>_WEBHOOK_SECRET values keyed by lower-case provider.
	ProviderSecrets map[string]string
}

// SecretFor resolves the webhook secret of provider. The default gateway falls
// back to PAYMENT_WEBHOOK_SECRET.
func (c PaymentConfig) SecretFor(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if secret := strings.TrimSpace(c.ProviderSecrets[provider]); secret != "" {
		return secret
	}
	if provider == c.Gateway {
		return c.WebhookSecret
	}
	return ""
}

var paymentProviders = []string{"razorpay", "stripe"}

func loadProviderSecrets() map[string]string {
	secrets := make(map[string]string, len(paymentProviders))
	for _, provider := range paymentProviders {
		key := "PAYMENT_" + strings.ToUpper(provider) + "_WEBHOOK_SECRET"
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			secrets[provider] = v
		}
	}
	return secrets
}

const (
	AccountStoreSQL   = "sql"
	AccountStoreMongo = "mongo"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:           getenv("APP_SERVICE", "pgstay"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		NodeID:            getenvInt64("SNOWFLAKE_NODE_ID", 1),
		LogLevel:          strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:         strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
		OTLPEndpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		OTLPProtocol:      strings.ToLower(getenv("OTEL_EXPORTER_OTLP_METRICS_PROTOCOL", getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
		OtelEnabled:       getenvBool("OTEL_ENABLED", false),
		TraceSampleRatio:  getenvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "pgstay"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		DBMetricsEnabled:  getenvBool("DATABASE_METRICS_ENABLED", false),
		AccountStore:      normalizeAccountStore(getenv("ACCOUNT_STORE", AccountStoreSQL)),
		Mongo: MongoConfig{
			URL:      strings.TrimSpace(getenv("MONGODB_URL", "mongodb://localhost:27017")),
			Database: getenv("MONGODB_DATABASE", "pgstay"),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		Payment: PaymentConfig{
			Gateway:         strings.ToLower(getenv("PAYMENT_GATEWAY", "razorpay")),
			WebhookSecret:   strings.TrimSpace(getenv("PAYMENT_WEBHOOK_SECRET", "")),
			WebhookTimeout:  getenvDuration("PAYMENT_WEBHOOK_TIMEOUT", 10*time.Second),
			ProviderSecrets: loadProviderSecrets(),
		},
		PlanCacheTTL:         getenvDuration("PLAN_CACHE_TTL", time.Minute),
		PolicyPath:           strings.TrimSpace(getenv("SUBSCRIPTION_POLICY_PATH", "")),
		SchedulerRunInterval: getenvDuration("SCHEDULER_RUN_INTERVAL", time.Minute),
		SchedulerBatchSize:   int(getenvInt64("SCHEDULER_BATCH_SIZE", 100)),
	}
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(
		fx.Annotate(NewPolicyHolder, fx.As(new(PolicyProvider)), fx.As(fx.Self())),
	),
)

func normalizeAccountStore(raw string) string {
	if strings.ToLower(strings.TrimSpace(raw)) == AccountStoreMongo {
		return AccountStoreMongo
	}
	return AccountStoreSQL
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 || parsed > 1 {
		return def
	}
	return parsed
}

// getenvDuration accepts Go duration strings ("15s") or a bare number of seconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
		return parsed
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return def
}
