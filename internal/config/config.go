package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddress string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string

	FirebaseProjectID       string
	FirebaseCredentialsJSON string
	StorageBucket           string

	AdminJWTSecret     string
	AdminJWTExpiration time.Duration

	SendGridAPIKey  string
	ReportFromEmail string
	ReportToEmail   string
	RecaptchaSecret string

	// Strike policy applied by the moderation worker.
	StrikePenaltyPoints int
	StrikeBanThreshold  int
	StrikeFeedBanHours  int

	ExportDir string
}

func Load() *Config {
	return &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "musas"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		StorageBucket:           getEnv("STORAGE_BUCKET", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", "change-me-in-production"),
		AdminJWTExpiration: 12 * time.Hour,

		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		ReportFromEmail: getEnv("REPORT_FROM_EMAIL", ""),
		ReportToEmail:   getEnv("REPORT_TO_EMAIL", ""),
		RecaptchaSecret: getEnv("RECAPTCHA_SECRET", ""),

		StrikePenaltyPoints: getEnvInt("STRIKE_PENALTY_POINTS", 10),
		StrikeBanThreshold:  getEnvInt("STRIKE_BAN_THRESHOLD", 3),
		StrikeFeedBanHours:  getEnvInt("STRIKE_FEED_BAN_HOURS", 72),

		ExportDir: getEnv("EXPORT_DIR", "exports"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
