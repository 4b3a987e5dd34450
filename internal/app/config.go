package app

import (
	"os"
	"strings"
	"time"

	"idcard-portal/internal/auth"
	"idcard-portal/internal/db"
)

// Config is read once from the environment at startup. Every value is
// optional; the zero configuration serves from memory with Telegram login,
// the spreadsheet proxy and the maintenance endpoint disabled.
type Config struct {
	Env       string
	SentryDSN string

	DatabaseURL   string
	RunMigrations bool
	Pool          db.PoolConfig

	TelegramBotToken string
	TelegramBotName  string
	TelegramMaxAge   time.Duration

	OTPTTL       time.Duration
	OTPDebugEcho bool

	LoginRateLimit auth.LoginRateLimit

	AdminEmail     string
	AdminPassword  string
	AdminJWTSecret string

	SheetsAPIURL string

	CronSecret           string
	TrialExpiryBatchSize int

	CORSAllowedOrigins []string
}

func LoadConfig() Config {
	return Config{
		Env:       envOrDefault("APP_ENV", "development"),
		SentryDSN: strings.TrimSpace(os.Getenv("SENTRY_DSN")),

		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RunMigrations: EnvBoolOrDefault("RUN_MIGRATIONS_ON_STARTUP", false),
		Pool: db.PoolConfig{
			MaxOpenConns:    envIntOrDefault("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
			ConnMaxIdleTime: envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),
		},

		TelegramBotToken: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		TelegramBotName:  strings.TrimSpace(os.Getenv("TELEGRAM_BOT_NAME")),
		TelegramMaxAge:   envSecondsOrDefault("TELEGRAM_AUTH_MAX_AGE_SECONDS", 0),

		OTPTTL:       envMinutesOrDefault("OTP_TTL_MINUTES", 5),
		OTPDebugEcho: EnvBoolOrDefault("OTP_DEBUG_ECHO", false),

		LoginRateLimit: auth.LoginRateLimit{
			MaxAttempts:   envIntOrDefault("LOGIN_RATE_LIMIT_MAX", 10),
			Window:        envSecondsOrDefault("LOGIN_RATE_LIMIT_WINDOW_SECONDS", 60),
			MaxTrackedIPs: envIntOrDefault("LOGIN_RATE_LIMIT_MAX_TRACKED_IPS", 5000),
		},

		AdminEmail:     strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		AdminJWTSecret: strings.TrimSpace(os.Getenv("ADMIN_JWT_SECRET")),

		SheetsAPIURL: strings.TrimSpace(os.Getenv("SHEETS_API_URL")),

		CronSecret:           strings.TrimSpace(os.Getenv("CRON_SECRET")),
		TrialExpiryBatchSize: envIntOrDefault("TRIAL_EXPIRY_BATCH_SIZE", 500),

		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS", "*"),
	}
}
