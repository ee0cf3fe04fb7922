package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dwikikusuma/storefront/pkg/postgres"
)

type Config struct {
	AppEnv    string
	LogLevel  string
	LogFormat string

	GRPCPort int
	HTTPPort int

	Postgres    postgres.Config
	AutoMigrate bool

	CheckoutMaxAttempts  int
	CheckoutRetryBackoff time.Duration
	CartClearAttempts    int
	ReconcileInterval    time.Duration

	KafkaBrokers    string
	KafkaOrderTopic string
	OutboxInterval  time.Duration

	CORSAllowedOrigins []string
}

// Load reads the environment. A .env file in the working directory is
// applied first when present; real environment variables win over it.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppEnv:    getEnv("APP_ENV", "dev"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		HTTPPort:  getEnvInt("HTTP_PORT", 8080),
		GRPCPort:  getEnvInt("GRPC_PORT", 8081),

		Postgres: postgres.Config{
			Driver:          getEnv("POSTGRES_DRIVER", postgres.DriverPgx),
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnvInt("POSTGRES_PORT", 5432),
			User:            getEnv("POSTGRES_USER", "shopping"),
			Pass:            getEnv("POSTGRES_PASSWORD", "shoppingpassword"),
			DB:              getEnv("POSTGRES_DB", "shopping_db"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDurationMS("POSTGRES_CONN_MAX_LIFETIME_MS", 30*time.Minute),
		},
		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),

		CheckoutMaxAttempts:  getEnvInt("CHECKOUT_MAX_ATTEMPTS", 3),
		CheckoutRetryBackoff: getEnvDurationMS("CHECKOUT_RETRY_BACKOFF_MS", 25*time.Millisecond),
		CartClearAttempts:    getEnvInt("CART_CLEAR_ATTEMPTS", 3),
		ReconcileInterval:    getEnvDurationMS("RECONCILE_INTERVAL_MS", 30*time.Second),

		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		KafkaOrderTopic: getEnv("KAFKA_ORDER_TOPIC", "storefront.orders"),
		OutboxInterval:  getEnvDurationMS("OUTBOX_INTERVAL_MS", time.Second),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDurationMS(key string, def time.Duration) time.Duration {
	n := getEnvInt(key, -1)
	if n < 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

func getEnvList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
