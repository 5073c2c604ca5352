package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/WreckedSky/burpgpt/internal/application"
	appscan "github.com/WreckedSky/burpgpt/internal/application/scancheck"
	"github.com/WreckedSky/burpgpt/internal/config"
	"github.com/WreckedSky/burpgpt/internal/domain/analysis"
	"github.com/WreckedSky/burpgpt/internal/domain/findings"
	aiopenai "github.com/WreckedSky/burpgpt/internal/infra/ai/openai"
	mysqlp "github.com/WreckedSky/burpgpt/internal/infra/db/mysql"
	pgp "github.com/WreckedSky/burpgpt/internal/infra/db/postgres"
	sqlitep "github.com/WreckedSky/burpgpt/internal/infra/db/sqlite"
	"github.com/WreckedSky/burpgpt/internal/infra/httpserver"
	minioStore "github.com/WreckedSky/burpgpt/internal/infra/storage"
	"github.com/WreckedSky/burpgpt/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	level := slog.LevelInfo
	if cfg.App.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx := context.Background()
	checkers := map[string]middleware.HealthChecker{}

	// findings repository (optional)
	var repo findings.Repository
	var db *sql.DB
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		repo = mysqlp.NewFindingRepository(db)
	case "postgres":
		db, err = pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		repo = pgp.NewFindingRepository(db)
	case "sqlite":
		db, err = sqlitep.Connect(ctx, cfg.Database.Path)
		if err != nil {
			log.Fatalf("sqlite open error: %v", err)
		}
		repo = sqlitep.NewFindingRepository(db)
	}
	if db != nil {
		defer db.Close()
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	// init minio (optional)
	var archive analysis.Archive
	if cfg.MinioEnabled() {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		archive = store
		checkers["storage"] = store
	}

	// init analyzer
	analyzer := aiopenai.NewClient(aiopenai.Options{
		APIKey:        cfg.OpenAI.APIKey,
		Model:         cfg.OpenAI.Model,
		BaseURL:       cfg.OpenAI.BaseURL,
		MaxPromptSize: cfg.OpenAI.MaxPromptSize,
		Template:      cfg.OpenAI.PromptTemplate,
		Timeout:       cfg.OpenAITimeout(),
	})
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("openai api key is empty; every audit will report a failed analysis")
	}

	// init service
	svc := &appscan.Service{
		Analyzer: analyzer,
		Synth:    findings.NewSynthesizer(cfg.App.Provider, cfg.App.Debug, logger),
		Repo:     repo,
		Archive:  archive,
		Logger:   logger,
		Clock:    application.SystemClock{},
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
	defer limiter.Stop()

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(svc, httpserver.Options{
		APIKeys:        cfg.Auth.APIKeys,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Limiter:        limiter,
		Logger:         logger,
		HealthCheckers: checkers,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.OpenAITimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", "addr", addr, "model", cfg.OpenAI.Model, "database", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
