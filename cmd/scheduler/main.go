// Command scheduler runs the pipeline on an interval: an asynq worker
// consumes pipeline-run tasks and a periodic trigger enqueues one per
// configured interval. Manual runs enqueue into the same queue, so at most
// one cycle executes at a time.
package main

import (
	"context"
	"errors"
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
	"repwatch_backend/internal/scheduler"
	"repwatch_backend/internal/watch"
	"repwatch_backend/internal/watch/repository"
	"repwatch_backend/platform/config"
	"repwatch_backend/platform/db"
	"repwatch_backend/platform/logger"
	"repwatch_backend/platform/textgen"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
		panic("failed to connect to database: " + err.Error())
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		log.Error("failed to migrate database", "error", err)
		panic("failed to migrate database: " + err.Error())
	}

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		log.Error("failed to load watch profile", "error", err)
		panic("failed to load watch profile: " + err.Error())
	}
	subject, err := profile.ResolveSubject(cfg)
	if err != nil {
		log.Error("failed to resolve subject", "error", err)
		panic("failed to resolve subject: " + err.Error())
	}

	gen, err := textgen.NewClient(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize text generation client", "error", err)
		panic("failed to initialize text generation client: " + err.Error())
	}

	repo := repository.New(database)
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	observeSvc := observe.NewService(repo, observe.NewFeedSources(profile.Observe.Feeds), profile, subject, log)
	orientSvc := orient.NewService(repo, gen, profile, subject, log)
	decideSvc := decide.NewService(repo, gen, profile, subject, log)
	actSvc := act.NewService(repo, gen, eventBus, profile, subject, log)
	reportSvc := reports.NewService(repo, profile, subject, cfg, log)
	reports.Subscribe(eventBus, reportSvc, repo, subject, log)

	pipeline := watch.NewPipeline(observeSvc, orientSvc, decideSvc, actSvc, eventBus, subject, log)

	worker, err := scheduler.NewWorker(cfg, pipeline, subject, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	log.Info("scheduler ready", "subject", subject, "interval", cfg.PipelineInterval.String())
	worker.Run(ctx)
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
