package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-prospector/internal/analytics"
	"social-prospector/internal/auth"
	"social-prospector/internal/classify"
	"social-prospector/internal/config"
	"social-prospector/internal/contacts"
	"social-prospector/internal/goals"
	"social-prospector/internal/history"
	"social-prospector/internal/httpapi"
	"social-prospector/internal/metrics"
	"social-prospector/internal/plans"
	"social-prospector/internal/quota"
	"social-prospector/internal/sequence"
	"social-prospector/internal/store"
	"social-prospector/pkg/logger"
	"social-prospector/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	table := plans.Default()
	if cfg.Quota.PlansFile != "" {
		if table, err = plans.LoadFile(cfg.Quota.PlansFile); err != nil {
			log.Error("plan table load failed", "path", cfg.Quota.PlansFile, "err", err)
			os.Exit(1)
		}
	}
	catalog := goals.Default()
	m := metrics.Registry(cfg.Metrics.Namespace)

	db, dialect, err := openDB(rootCtx, cfg)
	if err != nil {
		log.Error("database init failed", "driver", cfg.Store.Driver, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	st := store.New(db, dialect)
	if err := st.Migrate(rootCtx); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	var (
		locker sequence.Locker = sequence.NewKeyedMutex()
		rdb    *redis.Client
	)
	if cfg.Lock.Backend == "redis" {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		locker = sequence.NewRedisLocker(rdb, cfg.Lock.TTL)
	}

	var classifier classify.Classifier
	if cfg.Classifier.BaseURL != "" {
		classifier, err = classify.NewHTTPClassifier(classify.HTTPConfig{
			BaseURL:       cfg.Classifier.BaseURL,
			APIKey:        cfg.Classifier.APIKey,
			Model:         cfg.Classifier.Model,
			Timeout:       cfg.Classifier.Timeout,
			MinConfidence: cfg.Classifier.MinConfidence,
		}, nil)
		if err != nil {
			log.Error("classifier init failed", "err", err)
			os.Exit(1)
		}
	} else {
		log.Warn("no classifier configured; replies will be saved unclassified")
	}

	policy := quota.FailClosed
	if cfg.Quota.FailOpen {
		policy = quota.FailOpen
	}
	guard := quota.NewGuard(table, st, quota.Options{
		Policy:            policy,
		Location:          cfg.QuotaLocation(),
		UnlimitedActorIDs: cfg.Quota.UnlimitedActorIDs,
		Logger:            log,
		Metrics:           m,
	})

	analyticsSvc := analytics.NewService(st, catalog)
	engine, err := sequence.NewEngine(sequence.Deps{
		Catalog:    catalog,
		Classifier: classifier,
		History:    history.NewService(st),
		Store:      st,
		Contacts:   st,
		Locker:     locker,
		Analytics:  analyticsSvc,
		Usage:      guard,
		Logger:     log,
		Metrics:    m,
	}, sequence.Options{
		ClassifierTimeout: cfg.Classifier.Timeout,
		ContextTurns:      cfg.Classifier.ContextTurns,
		MinConfidence:     cfg.Classifier.MinConfidence,
	})
	if err != nil {
		log.Error("sequence engine init failed", "err", err)
		os.Exit(1)
	}

	h := httpapi.Handlers{
		Auth:      authManager,
		Goals:     catalog,
		Quota:     guard,
		Actors:    st,
		Contacts:  contacts.NewService(st, guard),
		Sequences: engine,
		Analytics: analyticsSvc,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerPublicRoutes(r, db, rdb)
	registerRoutes(r, h, guard, st, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           withCORS(r, cfg.CORS.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "store", cfg.Store.Driver, "lock", cfg.Lock.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, store.Dialect, error) {
	dialect, err := store.ParseDialect(cfg.Store.Driver)
	if err != nil {
		return nil, "", err
	}
	if dialect == store.DialectSQLite {
		db, err := utils.OpenSQLite(ctx, cfg.Store.SQLitePath)
		return db, dialect, err
	}
	db, err := utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.PoolConfig{
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
	})
	return db, dialect, err
}

// withCORS allows browser clients from the configured origins. No origins means no CORS headers.
func withCORS(h http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return h
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: true,
	}).Handler(h)
}
