package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tessera.org/internal/auth"
	"tessera.org/internal/config"
	"tessera.org/internal/httpapi"
	"tessera.org/internal/obs"
)

var version = "0.3.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("TESSERA_COMMIT"))
	log := obs.Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	// Without a DSN the service runs on in-memory stores; sessions and
	// accounts then live only as long as the process.
	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open db")
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var (
		dir    auth.Directory
		tokens auth.TokenStore
	)
	if db != nil {
		dir = auth.NewPGDirectory(db)
		tokens = auth.NewPGTokens(db, cfg.Auth.TokenTTL)
	} else {
		log.Warn().Msg("no TESSERA_PG_DSN set, using in-memory stores")
		dir = auth.NewMemoryDirectory()
		tokens = auth.NewMemoryTokens(cfg.Auth.TokenTTL)
	}

	svc, err := auth.NewService(dir, tokens,
		auth.WithSalt(cfg.Auth.Salt),
		auth.WithLogger(log),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build auth service")
	}
	validator, err := auth.NewValidator(dir)
	if err != nil {
		log.Fatal().Err(err).Msg("build validator")
	}

	api := httpapi.New(svc, dir, validator, httpapi.ReadyProbe{DB: db}, version,
		httpapi.WithRateLimit(cfg.Rate.Burst, cfg.Rate.PerSecond),
		httpapi.WithAPILogger(log),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting tessera-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Info().Msg("stopped")
}
