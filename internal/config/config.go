package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// ストレージドライバ
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	StorageDriver string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	// Token
	AccessToken string
	TokenTTL    time.Duration

	// Payment
	PaymentSecretKey string

	// Mail
	EmailName string
	EmailPass string
	MailHost  string
	MailPort  int

	// Notification
	AMQPURL         string
	NotifyQueue     string
	NotifyWorkers   int
	NotifyQueueSize int

	// Worker
	ReconcileInterval time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitPayment int

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// SECRETS_FILEが指定されている場合は、未設定の環境変数をファイルの値で補完してから検証する。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if path := os.Getenv("SECRETS_FILE"); path != "" {
		if err := applySecretsFile(path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.StorageDriver = getEnvString("STORAGE_DRIVER", StorageDriverPostgres)
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StorageDriverMongo:
		cfg.MongoURI = mongoURIFromEnv()
		if cfg.MongoURI == "" {
			missing = append(missing, "MONGO_URI")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER: %q", cfg.StorageDriver)
	}

	cfg.AccessToken = os.Getenv("ACCESS_TOKEN")
	if cfg.AccessToken == "" {
		missing = append(missing, "ACCESS_TOKEN")
	}

	cfg.PaymentSecretKey = os.Getenv("PAYMENT_SECRET_KEY")
	if cfg.PaymentSecretKey == "" {
		missing = append(missing, "PAYMENT_SECRET_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.MongoDatabase = getEnvString("MONGO_DATABASE", "aircncDb")
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 24*time.Hour)
	cfg.EmailName = os.Getenv("EMAIL_NAME")
	cfg.EmailPass = os.Getenv("EMAIL_PASS")
	cfg.MailHost = getEnvString("MAIL_HOST", "smtp.gmail.com")
	cfg.MailPort = getEnvInt("MAIL_PORT", 587)
	cfg.AMQPURL = os.Getenv("AMQP_URL")
	cfg.NotifyQueue = getEnvString("NOTIFY_QUEUE", "booking_notifications")
	cfg.NotifyWorkers = getEnvInt("NOTIFY_WORKERS", 4)
	cfg.NotifyQueueSize = getEnvInt("NOTIFY_QUEUE_SIZE", 256)
	cfg.ReconcileInterval = getEnvDuration("RECONCILE_INTERVAL", 10*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitPayment = getEnvInt("RATE_LIMIT_PAYMENT", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("PORT", getEnvString("SERVER_PORT", "5000"))
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	return cfg, nil
}

// MailEnabled はSMTP送信に必要な認証情報が揃っているかを返す。
func (c *Config) MailEnabled() bool {
	return c.EmailName != "" && c.EmailPass != ""
}

// mongoURIFromEnv はMONGO_URIを返す。
// 未設定の場合はDB_USER/DB_PASS/MONGO_HOSTからAtlas形式のURIを組み立てる。
func mongoURIFromEnv() string {
	if v := os.Getenv("MONGO_URI"); v != "" {
		return v
	}
	user, pass, host := os.Getenv("DB_USER"), os.Getenv("DB_PASS"), os.Getenv("MONGO_HOST")
	if user == "" || pass == "" || host == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "mongodb+srv",
		User:     url.UserPassword(user, pass),
		Host:     host,
		Path:     "/",
		RawQuery: "retryWrites=true&w=majority",
	}
	return u.String()
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
