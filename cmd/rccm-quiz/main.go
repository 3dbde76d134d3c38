package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"rccm-quiz/internal/catalog"
	"rccm-quiz/internal/config"
	"rccm-quiz/internal/httpapi"
	"rccm-quiz/internal/quiz"
	"rccm-quiz/internal/quiz/sqlstore"
	"rccm-quiz/internal/session"
)

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "directory holding 4-1.csv and 4-2_<year>.csv")
	flag.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "sqlite3, sqlite or postgres")
	flag.StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "database DSN or SQLite file")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = randomSecret()
		logger.Printf("SECRET_KEY is not set; sessions will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("rccm-quiz: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	departments, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return err
	}

	loadStart := time.Now()
	bank, err := quiz.NewLoader(cfg.DataDir, departments, logger).LoadBank(ctx)
	if err != nil {
		return err
	}
	logger.Printf("loaded %d questions from %s in %s", bank.Len(), cfg.DataDir, time.Since(loadStart).Round(time.Millisecond))
	if bank.Len() == 0 {
		logger.Printf("warning: no questions found in %s", cfg.DataDir)
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := sqlstore.Open(openCtx, cfg.DBDriver, cfg.DBDSN)
	cancel()
	if err != nil {
		return err
	}
	defer store.Close()

	srs, err := quiz.NewScheduler(cfg.SRSIntervals)
	if err != nil {
		return err
	}
	service := quiz.NewService(bank, departments, store, store, store, quiz.Options{
		QuestionCounts: cfg.QuestionCounts,
		Scheduler:      srs,
		Logger:         logger,
	})

	sessions, err := session.NewManager(cfg.SecretKey, cfg.SessionLifetime, cfg.CookieSecure)
	if err != nil {
		return err
	}
	handler, err := httpapi.NewRouter(httpapi.Options{
		Service:        service,
		Sessions:       sessions,
		Pinger:         store,
		Logger:         logger,
		CORSOrigins:    cfg.CORSOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("rccm-quiz listening on %s (%s, db=%s)", cfg.Addr, cfg.Env, store.Driver())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Printf("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
