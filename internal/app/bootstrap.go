package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"idcard-portal/internal/auth"
	"idcard-portal/internal/db"
	"idcard-portal/internal/leads"
	"idcard-portal/internal/maintenance"
	"idcard-portal/internal/observability"
	"idcard-portal/internal/sheets"
)

type Options struct {
	LoadDotEnv bool
	// Config replaces the environment when set.
	Config *Config
	Logger *observability.Logger
}

type Runtime struct {
	Handler http.Handler
	Close   func() error
}

type stores struct {
	auth     auth.Store
	leads    leads.Store
	database *sql.DB
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	cfg := LoadConfig()
	if options.Config != nil {
		cfg = *options.Config
	}
	logger := options.Logger
	if logger == nil {
		logger = observability.NewLogger()
	}
	logger = logger.With(map[string]any{"env": cfg.Env})

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Env); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	st, err := openStores(cfg, logger)
	if err != nil {
		return nil, err
	}
	closeStores := func() error {
		if st.database != nil {
			return st.database.Close()
		}
		return nil
	}

	otpManager := auth.NewOTPManager(st.auth, auth.NewLogSender(logger, cfg.OTPDebugEcho), cfg.OTPTTL)
	telegram := auth.NewTelegramVerifier(cfg.TelegramBotToken, cfg.TelegramMaxAge)
	authService := auth.NewService(st.auth, otpManager, telegram, auth.NewSessionIssuer(st.auth))
	authHandler := auth.NewHandler(authService, cfg.OTPDebugEcho)

	if err := authService.BootstrapAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		_ = closeStores()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	if cfg.TelegramBotToken == "" {
		logger.Warn("telegram_login_disabled", map[string]any{"reason": "TELEGRAM_BOT_TOKEN not set"})
	} else {
		logger.Info("telegram_login_enabled", map[string]any{"bot_name": cfg.TelegramBotName})
	}
	if cfg.OTPDebugEcho {
		logger.Warn("otp_debug_echo_enabled", map[string]any{"env": cfg.Env})
	}

	leadsService := leads.NewService(st.leads, authService)
	leadsHandler := leads.NewHandler(leadsService, logger)
	expiryHandler := maintenance.NewExpiryHandler(leadsService, logger, cfg.CronSecret, cfg.TrialExpiryBatchSize)

	loginLimiter := auth.NewLoginRateLimiter(cfg.LoginRateLimit)
	limited := func(h http.HandlerFunc) http.Handler {
		return loginLimiter.Middleware(h)
	}

	adminOnly := func(h http.HandlerFunc) http.Handler {
		return auth.AdminMiddleware(cfg.AdminJWTSecret, h)
	}
	if cfg.AdminJWTSecret == "" {
		logger.Warn("admin_routes_unprotected", map[string]any{"reason": "ADMIN_JWT_SECRET not set"})
		adminOnly = func(h http.HandlerFunc) http.Handler { return h }
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/login", limited(authHandler.Login))
	mux.Handle("POST /api/auth/request-otp", limited(authHandler.RequestOTP))
	mux.Handle("POST /api/auth/verify-otp", limited(authHandler.VerifyOTP))
	mux.Handle("POST /api/auth/telegram", limited(authHandler.Telegram))
	mux.Handle("GET /api/user/profile", auth.SessionMiddleware(authService, http.HandlerFunc(authHandler.Profile)))
	mux.HandleFunc("POST /api/demo/book", leadsHandler.BookDemo)
	mux.HandleFunc("POST /api/trial/signup", leadsHandler.SignupTrial)
	mux.Handle("GET /api/admin/demos", adminOnly(leadsHandler.ListDemos))
	mux.Handle("GET /api/admin/trials", adminOnly(leadsHandler.ListTrials))
	mux.HandleFunc("GET /api/health", healthHandler(st.auth, time.Now().UTC()))
	mux.HandleFunc("GET /internal/maintenance/expire-trials", expiryHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/expire-trials", expiryHandler.Handle)

	if cfg.SheetsAPIURL != "" {
		sheetsClient, err := sheets.NewClient(cfg.SheetsAPIURL)
		if err != nil {
			_ = closeStores()
			return nil, fmt.Errorf("init sheets client: %w", err)
		}
		mux.Handle("POST /api/dashboard", adminOnly(sheets.NewHandler(sheetsClient, logger).Proxy))
	}

	handler := observability.RecoverMiddleware(logger,
		observability.RequestLoggingMiddleware(logger,
			observability.CORSMiddleware(cfg.CORSAllowedOrigins, mux)))

	return &Runtime{
		Handler: handler,
		Close: func() error {
			observability.FlushSentry()
			return closeStores()
		},
	}, nil
}

// openStores picks Postgres when DATABASE_URL is set and process memory
// otherwise.
func openStores(cfg Config, logger *observability.Logger) (stores, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("using_memory_stores", map[string]any{"reason": "DATABASE_URL not set"})
		return stores{auth: auth.NewMemoryStore(), leads: leads.NewMemoryStore()}, nil
	}

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL, cfg.Pool)
	if err != nil {
		return stores{}, err
	}

	if cfg.RunMigrations {
		applied, err := db.RunMigrations(ctx, database)
		if err != nil {
			_ = database.Close()
			return stores{}, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations_applied", map[string]any{"versions": applied})
	}

	return stores{
		auth:     auth.NewPostgresStore(database),
		leads:    leads.NewPostgresStore(database),
		database: database,
	}, nil
}
