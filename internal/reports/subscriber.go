package reports

import (
	"context"

	"repwatch_backend/internal/events"
	"repwatch_backend/internal/watch/domain"
	"repwatch_backend/platform/logger"
)

// RunStore loads the act run a report is written for.
type RunStore interface {
	LatestActRun(ctx context.Context, subject string) (domain.ActRun, error)
}

// Subscribe registers the report writers on the event bus: every persisted
// action package produces a run directory without the pipeline knowing about
// report formats.
func Subscribe(bus events.Bus, svc *Service, runs RunStore, subject string, log *logger.Logger) {
	bus.Subscribe(events.ActPackageReady{}.EventName(), events.HandlerFunc(
		func(ctx context.Context, e events.Event) error {
			run, err := runs.LatestActRun(ctx, subject)
			if err != nil {
				log.Error("report_run_load_failed", "error", err.Error())
				return err
			}
			dir, err := svc.Write(ctx, run)
			if err != nil {
				log.Error("report_write_failed", "error", err.Error())
				return err
			}
			log.Info("report_written", "dir", dir)
			return nil
		}))
}
