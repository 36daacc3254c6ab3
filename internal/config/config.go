package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort          string
	LogLevel         string
	NotifierBaseURL  string
	WebhookPublicURL string
	ServiceSecretKey string // hex ed25519 seed; signature mode
	AuthToken        string // preshared bearer; mutually exclusive with signing
	TestMode         bool   // disables the listener and all outbound calls
	MongoURI         string
	DatabaseName     string
	TelegramBotToken string
	JWTSecret        string
	DedupCap         int
	SyncBatchSize    int
}

func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env: %v", err)
	}
	cfg := Config{
		AppPort:          getEnv("APP_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		NotifierBaseURL:  getEnv("NOTIFIER_BASE_URL", "https://notifier.example.org"),
		WebhookPublicURL: getEnv("WEBHOOK_PUBLIC_URL", ""),
		ServiceSecretKey: getEnv("SERVICE_SECRET_KEY", ""),
		AuthToken:        getEnv("NOTIFIER_AUTH_TOKEN", ""),
		TestMode:         getEnvBool("TEST_MODE", false),
		MongoURI:         getEnv("MONGO_URI", "mongodb://mongo:27017"),
		DatabaseName:     getEnv("MONGO_DB", "notification_relay"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		JWTSecret:        getEnv("JWT_SECRET", "dev-secret"),
		DedupCap:         getEnvInt("DEDUP_CAP", 1024),
		SyncBatchSize:    getEnvInt("SYNC_BATCH_SIZE", 5),
	}
	return cfg
}

func getEnv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
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
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
