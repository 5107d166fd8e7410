package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	GinMode       string
	DBDriver      string // sqlite | postgres
	DBDSN         string
	JWTSecret     []byte
	JWTExpiresIn  time.Duration
	LogLevel      slog.Level
	RedisAddr     string   // empty keeps idempotency keys in memory
	KafkaBrokers  []string // empty disables event publishing
	ServiceName   string
	CancelRestock bool
	Seed          bool
	CORSOrigin    string
}

// Load reads configuration from the environment, after merging a local .env
// file when one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:          getEnv("PORT", "8080"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:         getEnv("DB_DSN", "canteen.db"),
		JWTSecret:     []byte(getEnv("JWT_SECRET", "canteen_dev_secret_change_me")),
		JWTExpiresIn:  getDuration("JWT_EXPIRES_IN", 7*24*time.Hour),
		LogLevel:      parseLevel(getEnv("LOG_LEVEL", "info")),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		KafkaBrokers:  splitCSV(getEnv("KAFKA_BROKERS", "")),
		ServiceName:   getEnv("SERVICE_NAME", "canteen-api"),
		CancelRestock: getBool("CANCEL_RESTOCK", false),
		Seed:          getBool("SEED", false),
		CORSOrigin:    getEnv("CORS_ORIGIN", "*"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// getDuration accepts Go durations ("36h") and whole days ("7d").
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if strings.HasSuffix(raw, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(raw, "d")); err == nil && days > 0 {
			return time.Duration(days) * 24 * time.Hour
		}
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
