package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	gsessions "github.com/gin-contrib/sessions/postgres"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql, used by the cookie session store

	"mindmate/internal/api"
	"mindmate/internal/api/handlers"
	"mindmate/internal/config"
	"mindmate/internal/db"
	"mindmate/internal/extract"
	"mindmate/internal/gemini"
	"mindmate/internal/r2"
	"mindmate/internal/study"
)

const pruneInterval = time.Hour

// prunableStore is a study.Store that can drop stale sessions.
type prunableStore interface {
	study.Store
	Prune(ctx context.Context, maxAge time.Duration) (int64, error)
}

func main() {
	log := config.Logger

	loaded, err := config.LoadDotEnv()
	if err != nil {
		log.Fatalf("FATAL: Error loading .env file: %v", err)
	}
	if !loaded {
		log.Warn(".env file not found. Relying on system environment variables.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.InitLogger(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	if cfg.SessionSecret == "" {
		log.Warn("SESSION_SECRET is not set; using an insecure development secret")
		cfg.SessionSecret = "mindmate-dev-secret"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Gemini client
	geminiClient, err := gemini.NewClient(ctx, gemini.Options{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.GeminiModel,
		Timeout:     cfg.GeminiTimeout,
		MaxAttempts: cfg.GeminiMaxAttempts,
		RetryDelay:  cfg.GeminiRetryDelay,
	})
	if err != nil {
		log.Fatalf("Failed to initialize Gemini client: %v", err)
	}
	defer geminiClient.Close()

	var (
		store        prunableStore
		sessionStore sessions.Store
	)
	if cfg.DatabaseURL != "" {
		database, err := db.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare database schema: %v", err)
		}
		store = db.NewSessionStore(database.Queries)

		// The session store wants a database/sql pool, so it gets its own.
		sessionDB, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to open database connection for session store: %v", err)
		}
		defer sessionDB.Close()
		if err := sessionDB.PingContext(ctx); err != nil {
			log.Fatalf("Failed to ping database for session store: %v", err)
		}
		sessionStore, err = gsessions.NewStore(sessionDB, []byte(cfg.SessionSecret))
		if err != nil {
			log.Fatalf("Failed to create postgres session store: %v", err)
		}
		log.Info("Using Postgres for study sessions")
	} else {
		store = study.NewMemoryStore()
		sessionStore = cookie.NewStore([]byte(cfg.SessionSecret))
		log.Warn("DATABASE_URL not set; study sessions are kept in memory")
	}
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		Secure:   cfg.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	go pruneSessions(ctx, store, time.Duration(cfg.SessionMaxAge)*time.Second)

	reports, err := r2.NewClient(ctx, cfg.R2)
	if err != nil {
		log.Fatalf("Failed to initialize R2 client: %v", err)
	}
	var uploader handlers.ReportUploader
	if reports != nil {
		uploader = reports
	}

	// Set up Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sessions.Sessions(cfg.SessionName, sessionStore))

	handler := handlers.NewHandler(store, geminiClient, extract.PDF{}, uploader, cfg.MaxUploadBytes)
	api.SetupRoutes(router, handler, cfg.AllowedOrigins)

	// Create HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Give server 5 seconds to shut down gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited properly")
}

// pruneSessions periodically drops study sessions older than the cookie
// lifetime, since nothing can reach them anymore.
func pruneSessions(ctx context.Context, store prunableStore, maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Prune(ctx, maxAge)
			if err != nil {
				config.Logger.WithError(err).Warn("failed to prune study sessions")
				continue
			}
			if n > 0 {
				config.Logger.WithField("removed", n).Info("pruned study sessions")
			}
		}
	}
}
