package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adampdxdotcom/GeordiLogger/internal/application"
	"github.com/adampdxdotcom/GeordiLogger/internal/application/appsettings"
	"github.com/adampdxdotcom/GeordiLogger/internal/application/monitor"
	"github.com/adampdxdotcom/GeordiLogger/internal/config"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/abnormalities"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/settings"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/summaries"
	aiopenai "github.com/adampdxdotcom/GeordiLogger/internal/infra/ai/openai"
	mysqlp "github.com/adampdxdotcom/GeordiLogger/internal/infra/db/mysql"
	postgresp "github.com/adampdxdotcom/GeordiLogger/internal/infra/db/postgres"
	"github.com/adampdxdotcom/GeordiLogger/internal/infra/docker"
	"github.com/adampdxdotcom/GeordiLogger/internal/infra/httpserver"
	minioStore "github.com/adampdxdotcom/GeordiLogger/internal/infra/storage"
	"github.com/adampdxdotcom/GeordiLogger/internal/middleware"
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

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// connect database (mysql or postgres)
	var (
		db           *sql.DB
		abnormRepo   abnormalities.Repository
		summaryRepo  summaries.Repository
		settingsRepo settings.Repository
	)
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		if err := mysqlp.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("mysql schema error: %v", err)
		}
		abnormRepo = mysqlp.NewAbnormalityRepository(db)
		summaryRepo = mysqlp.NewSummaryRepository(db)
		settingsRepo = mysqlp.NewSettingsRepository(db)
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		if err := postgresp.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("postgres schema error: %v", err)
		}
		abnormRepo = postgresp.NewAbnormalityRepository(db)
		summaryRepo = postgresp.NewSummaryRepository(db)
		settingsRepo = postgresp.NewSettingsRepository(db)
	default:
		log.Fatalf("unknown database driver: %q", cfg.Database.Driver)
	}
	defer db.Close()

	// settings service (stored values over defaults)
	settingsSvc := appsettings.NewService(settingsRepo)
	if _, err := settingsSvc.Load(ctx); err != nil {
		log.Printf("settings load failed, using defaults: %v", err)
	}

	// optional minio archive for raw logs
	var archive abnormalities.Archive
	if cfg.Minio.Enabled {
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
	}

	// AI classifier (any OpenAI-compatible endpoint, including Ollama /v1)
	classifier := aiopenai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)

	// docker log provider
	provider := docker.NewProvider()

	clock := application.SystemClock{}
	healthStore := monitor.NewHealthStore()

	policy := &monitor.Policy{
		Repo:    abnormRepo,
		Store:   healthStore,
		Archive: archive,
		Clock:   clock,
	}
	executor := &monitor.Executor{
		Provider:   provider,
		Classifier: classifier,
		Policy:     policy,
		Store:      healthStore,
		Clock:      clock,
	}
	ctrl := &monitor.Controller{
		Provider:   provider,
		Executor:   executor,
		Settings:   settingsSvc,
		Repo:       abnormRepo,
		Summaries:  summaryRepo,
		Classifier: classifier,
		Clock:      clock,
	}
	if err := ctrl.Start(ctx); err != nil {
		log.Fatalf("controller start error: %v", err)
	}

	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}
	handler := httpserver.NewRouter(ctrl, healthStore, abnormRepo, summaryRepo, classifier, settingsSvc, checkers)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
