package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alextreichler/estatehub/internal/auth"
	"github.com/alextreichler/estatehub/internal/blob"
	"github.com/alextreichler/estatehub/internal/cache"
	"github.com/alextreichler/estatehub/internal/config"
	"github.com/alextreichler/estatehub/internal/handlers"
	"github.com/alextreichler/estatehub/internal/logging"
	"github.com/alextreichler/estatehub/internal/notify"
	"github.com/alextreichler/estatehub/internal/photos"
	"github.com/alextreichler/estatehub/internal/service"
	"github.com/alextreichler/estatehub/internal/store"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/sessions"
	"github.com/rs/cors"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Init DB and run migrations
	db, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		slog.Error("Failed to initialize store", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3. Collaborators
	var searchCache cache.SearchCache = cache.Noop{}
	if cfg.CacheEnabled() {
		rc, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cache.DefaultTTL)
		if err != nil {
			slog.Warn("Redis unavailable, search cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer rc.Close()
			searchCache = rc
		}
	}

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.MailEnabled() {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	blobs := blob.NewFileStore(cfg.UploadDir, "/images")
	photoManager := photos.NewManager(blobs, db)

	accounts := service.NewAccounts(db, blobs)
	properties := service.NewProperties(db, photoManager, searchCache)
	bookings := service.NewBookings(db, mailer)
	inquiries := service.NewInquiries(db, mailer)

	if cfg.AdminEmail != "" {
		if _, err := accounts.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			slog.Error("Failed to seed admin account", "email", cfg.AdminEmail, "error", err)
			os.Exit(1)
		}
	}

	// 4. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}
	sess := auth.NewSessions(sessionStore)

	authorizer, err := auth.NewAuthorizer(cfg.RBACModel, cfg.RBACPolicy)
	if err != nil {
		slog.Error("Failed to load access policy", "model", cfg.RBACModel, "policy", cfg.RBACPolicy, "error", err)
		os.Exit(1)
	}

	// 5. Init Templates
	templates := handlers.NewTemplateCache()
	if err := templates.Load(cfg.TemplatesDir); err != nil {
		slog.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	// 6. Setup Handlers
	base := handlers.Base{Sessions: sess, Templates: templates}
	rateLimiter := handlers.NewRateLimiter(30 * time.Second)
	defer rateLimiter.Stop()

	router := handlers.NewRouter(handlers.Routes{
		Home:    &handlers.HomeHandler{Base: base, Properties: properties, Inquiries: inquiries},
		Account: &handlers.AccountHandler{Base: base, Accounts: accounts},
		User:    &handlers.UserHandler{Base: base, Accounts: accounts, Bookings: bookings, Inquiries: inquiries},
		Admin: &handlers.AdminHandler{
			Base:       base,
			Accounts:   accounts,
			Properties: properties,
			Bookings:   bookings,
			Inquiries:  inquiries,
		},
		Limiter:   rateLimiter,
		StaticDir: cfg.StaticDir,
		ImageDir:  filepath.Clean(cfg.UploadDir),
	}, sess.Authenticate(db.GetUserByID), authorizer.Middleware)

	// 7. Middleware Setup
	CSRF := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.CookieSecure),
		csrf.Path("/"),
		csrf.TrustedOrigins(append([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}, cfg.CORSAllowedOrigins...)),
	)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token", "X-Requested-With"},
		AllowCredentials: true,
	})

	// Chain: Proxy headers -> Request ID -> Logger -> Recoverer -> Security Headers -> CORS -> CSRF -> Gzip -> Router
	handler := gorillahandlers.ProxyHeaders(
		handlers.RequestIDMiddleware(
			handlers.LoggingMiddleware(
				middleware.Recoverer(
					handlers.SecurityHeadersMiddleware(
						corsHandler.Handler(
							CSRF(
								gorillahandlers.CompressHandler(router),
							),
						),
					),
				),
			),
		),
	)

	// 8. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "db", cfg.DBDriver, "cache", cfg.CacheEnabled(), "mail", cfg.MailEnabled())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to listen and serve", "error", err)
			stop()
		}
	}()

	// Block until a signal is received
	<-ctx.Done()

	slog.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		return
	}

	slog.Info("Server exited gracefully.")
}
