// Command monitor runs the monitoring pipeline from the shell: the whole
// observe-to-act cycle, or any single stage for debugging and backfill.
//
//	monitor init-db    apply migrations and exit
//	monitor observe    ingest sources only
//	monitor orient     assess stored items only
//	monitor decide     decide assessed items only
//	monitor act        synthesize the action package only
//	monitor run        full cycle (default)
//
// A full cycle that observes nothing new exits with code 3.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repwatch_backend/internal/act"
	"repwatch_backend/internal/decide"
	"repwatch_backend/internal/events"
	"repwatch_backend/internal/observe"
	"repwatch_backend/internal/orient"
	"repwatch_backend/internal/reports"
	"repwatch_backend/internal/watch"
	"repwatch_backend/internal/watch/repository"
	"repwatch_backend/platform/config"
	"repwatch_backend/platform/db"
	"repwatch_backend/platform/logger"
	"repwatch_backend/platform/textgen"
)

const exitNoNewItems = 3

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := "run"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	var database *db.DB
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		d, err := db.Open(ctx, cfg)
		if err != nil {
			return err
		}
		database = d
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		log.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	if command == "init-db" {
		log.Info("database initialized")
		return
	}

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		log.Error("failed to load watch profile", "error", err)
		os.Exit(1)
	}
	subject, err := profile.ResolveSubject(cfg)
	if err != nil {
		log.Error("failed to resolve subject", "error", err)
		os.Exit(1)
	}
	log.Info("starting monitor", "env", cfg.Env, "subject", subject, "command", command)

	repo := repository.New(database)
	bus := events.NewInMemoryBus(log)
	defer bus.Wait()

	observeSvc := observe.NewService(repo, observe.NewFeedSources(profile.Observe.Feeds), profile, subject, log)

	runStage := func(fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			log.Error("stage failed", "command", command, "error", err)
			os.Exit(1)
		}
	}

	switch command {
	case "observe":
		runStage(func(ctx context.Context) error {
			_, err := observeSvc.Run(ctx)
			return err
		})

	case "orient", "decide", "act", "run":
		gen, err := textgen.NewClient(ctx, cfg, log)
		if err != nil {
			log.Error("failed to initialize text generation client", "error", err)
			os.Exit(1)
		}

		orientSvc := orient.NewService(repo, gen, profile, subject, log)
		decideSvc := decide.NewService(repo, gen, profile, subject, log)
		actSvc := act.NewService(repo, gen, bus, profile, subject, log)
		reportSvc := reports.NewService(repo, profile, subject, cfg, log)
		reports.Subscribe(bus, reportSvc, repo, subject, log)

		switch command {
		case "orient":
			runStage(func(ctx context.Context) error {
				_, err := orientSvc.Run(ctx)
				return err
			})
		case "decide":
			runStage(func(ctx context.Context) error {
				_, err := decideSvc.Run(ctx)
				return err
			})
		case "act":
			runStage(func(ctx context.Context) error {
				_, err := actSvc.Run(ctx)
				return err
			})
		case "run":
			p := watch.NewPipeline(observeSvc, orientSvc, decideSvc, actSvc, bus, subject, log)
			if err := p.Run(ctx); err != nil {
				if errors.Is(err, watch.ErrNoNewItems) {
					bus.Wait()
					os.Exit(exitNoNewItems)
				}
				log.Error("pipeline failed", "error", err)
				os.Exit(1)
			}
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		os.Exit(2)
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
