package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"rccm-quiz/internal/catalog"
	"rccm-quiz/internal/cli"
	"rccm-quiz/internal/config"
	"rccm-quiz/internal/quiz"
	"rccm-quiz/internal/quiz/sqlstore"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	opts := cli.Options{}
	flag.StringVar(&opts.Department, "dept", "basic", "department ID or name, e.g. road or 道路")
	flag.IntVar(&opts.Year, "year", 0, "exam year (2008-2019); 0 draws from every year")
	flag.IntVar(&opts.Count, "n", 10, "number of questions")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "directory holding the question CSV files")
	record := flag.Bool("record", false, "save the result to the configured database")
	verbose := flag.Bool("v", false, "log loader warnings")
	flag.Parse()

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, opts, *record, logger); err != nil {
		if errors.Is(err, cli.ErrAbandoned) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts cli.Options, record bool, logger *log.Logger) error {
	departments, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return err
	}
	bank, err := quiz.NewLoader(cfg.DataDir, departments, logger).LoadBank(ctx)
	if err != nil {
		return err
	}

	var store *sqlstore.Store
	if record {
		store, err = sqlstore.Open(ctx, cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer store.Close()
	}
	service, err := newService(cfg, bank, departments, store, logger)
	if err != nil {
		return err
	}
	return cli.Run(ctx, service, opts, os.Stdin, os.Stdout)
}

// newService builds the same service as the server. store may be nil, in
// which case nothing is recorded.
func newService(cfg config.Config, bank *quiz.Bank, departments *catalog.Catalog, store *sqlstore.Store, logger *log.Logger) (*quiz.Service, error) {
	srs, err := quiz.NewScheduler(cfg.SRSIntervals)
	if err != nil {
		return nil, err
	}
	opts := quiz.Options{
		QuestionCounts: cfg.QuestionCounts,
		Scheduler:      srs,
		Logger:         logger,
	}
	if store == nil {
		return quiz.NewService(bank, departments, nil, nil, nil, opts), nil
	}
	return quiz.NewService(bank, departments, store, store, store, opts), nil
}
