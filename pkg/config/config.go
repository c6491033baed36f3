package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port                    string
	Env                     string
	BaseURL                 string
	FirebaseCredentialsPath string
	PostgresConnStr         string
	MongoURI                string
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	MetricsPort             string
	JWTSecret               string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Delivery and retention knobs
	RetentionDays     int
	PushDebounceMS    int
	PushBatchSize     int
	PushBatchPauseMS  int
	EmailConcurrency  int
	EmailStripImages  bool
	PruneIntervalMins int
}

func Load() *Config {
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		BaseURL:                 getEnv("BASE_URL", "http://localhost:8080"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		MetricsPort:             getEnv("METRICS_PORT", "9090"),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),

		SMTPHost: getEnv("SMTP_HOST", "localhost"),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		SMTPFrom: getEnv("SMTP_FROM", "notifications@localhost"),

		RetentionDays:     getEnvInt("NOTIF_RETENTION_DAYS", 30),
		PushDebounceMS:    getEnvInt("NOTIF_PUSH_DEBOUNCE_MS", 1000),
		PushBatchSize:     getEnvInt("NOTIF_PUSH_BATCH_SIZE", 500),
		PushBatchPauseMS:  getEnvInt("NOTIF_PUSH_BATCH_PAUSE_MS", 500),
		EmailConcurrency:  getEnvInt("NOTIF_EMAIL_CONCURRENCY", 3),
		EmailStripImages:  getEnvBool("NOTIF_EMAIL_STRIP_IMAGES", false),
		PruneIntervalMins: getEnvInt("NOTIF_PRUNE_INTERVAL_MINS", 30),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
