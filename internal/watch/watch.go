// Package watch wires the four stages into one observe-to-act pipeline run.
// Each stage is idempotent and restartable on its own; the pipeline only
// sequences them and reports what happened.
package watch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"repwatch_backend/internal/act"
	"repwatch_backend/internal/decide"
	"repwatch_backend/internal/events"
	"repwatch_backend/internal/observe"
	"repwatch_backend/internal/orient"
	"repwatch_backend/internal/pipeline"
	"repwatch_backend/platform/apperr"
	"repwatch_backend/platform/logger"
)

// ErrNoNewItems signals a short cycle: the observe stage stored nothing new,
// so the downstream stages were not run.
var ErrNoNewItems = errors.New("no new items observed")

// Pipeline runs the full monitoring flow for one subject.
type Pipeline struct {
	observe *observe.Service
	orient  *orient.Service
	decide  *decide.Service
	act     *act.Service
	bus     events.Bus
	subject string
	log     *logger.Logger
}

func NewPipeline(obs *observe.Service, ori *orient.Service, dec *decide.Service, a *act.Service, bus events.Bus, subject string, log *logger.Logger) *Pipeline {
	return &Pipeline{
		observe: obs,
		orient:  ori,
		decide:  dec,
		act:     a,
		bus:     bus,
		subject: subject,
		log:     log,
	}
}

// Run executes observe, orient, decide, and act in order. A run with zero
// new items stops after observe and returns ErrNoNewItems; the backlog, if
// any, is handled on the next full cycle.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	ctx = context.WithValue(ctx, logger.SubjectKey, p.subject)
	log := p.log.WithContext(ctx)
	started := time.Now()

	obsSum, err := p.observe.Run(ctx)
	if err != nil {
		return err
	}
	// Filtered candidates are expected attrition, not errors: they count as
	// skipped alongside duplicates, and Failed stays reserved for real faults.
	p.publishStage(ctx, runID, "observe", pipeline.Summary{
		Eligible:  obsSum.Fetched,
		Processed: obsSum.New,
		Skipped:   obsSum.Duplicate + (obsSum.Fetched - obsSum.Relevant),
	})

	if obsSum.New == 0 {
		p.bus.Publish(ctx, events.PipelineCompleted{
			BaseEvent:  events.NewBaseEvent(),
			RunID:      runID,
			Subject:    p.subject,
			NewItems:   0,
			Duration:   time.Since(started),
			ShortCycle: true,
		})
		log.Info("pipeline_short_cycle", "reason", "no new items")
		return ErrNoNewItems
	}

	oriSum, err := p.orient.Run(ctx)
	if err != nil {
		return err
	}
	p.publishStage(ctx, runID, "orient", oriSum)

	decSum, err := p.decide.Run(ctx)
	if err != nil {
		return err
	}
	p.publishStage(ctx, runID, "decide", decSum)

	if _, err := p.act.Run(ctx); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			log.Info("act_skipped", "reason", "empty decided window")
		} else {
			return err
		}
	}

	p.bus.Publish(ctx, events.PipelineCompleted{
		BaseEvent: events.NewBaseEvent(),
		RunID:     runID,
		Subject:   p.subject,
		NewItems:  obsSum.New,
		Duration:  time.Since(started),
	})
	log.Info("pipeline_completed", "new_items", obsSum.New, "duration", time.Since(started).String())
	return nil
}

func (p *Pipeline) publishStage(ctx context.Context, runID, stage string, sum pipeline.Summary) {
	p.bus.Publish(ctx, events.StageCompleted{
		BaseEvent: events.NewBaseEvent(),
		RunID:     runID,
		Subject:   p.subject,
		Stage:     stage,
		Eligible:  sum.Eligible,
		Processed: sum.Processed,
		Skipped:   sum.Skipped,
		Failed:    sum.Failed,
	})
}
