// Package pipeline runs one stage of the monitoring flow: select the
// eligible work units, fan the service calls out over a bounded worker pool,
// then write the results sequentially. A unit that fails is dropped for this
// run only; the selection query picks it up again next time.
package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"repwatch_backend/platform/apperr"
	"repwatch_backend/platform/logger"
)

// DefaultWorkers bounds the fan-out when a stage does not set its own.
const DefaultWorkers = 20

// Summary is the outcome of one stage invocation.
type Summary struct {
	Eligible  int
	Processed int
	Skipped   int
	Failed    int
}

// Stage describes one pipeline stage over work units of type I producing
// results of type O. Dispatch runs concurrently; Write runs sequentially in
// unit order and reports whether the result was actually persisted (false
// means another run claimed the unit first).
type Stage[I, O any] struct {
	Name     string
	Workers  int
	Select   func(ctx context.Context) ([]I, error)
	Dispatch func(ctx context.Context, unit I) (O, error)
	Write    func(ctx context.Context, unit I, out O) (bool, error)
	Title    func(unit I) string
	Smoke    func(ctx context.Context) error
	Log      *logger.Logger
}

type result[O any] struct {
	out O
	err error
}

// Run executes the stage once. A smoke failure aborts only when the service
// rejected the credentials or quota; transient smoke errors are logged and
// the stage proceeds. Dispatch errors with those same kinds abort the whole
// run, everything else drops the single unit.
func (s *Stage[I, O]) Run(ctx context.Context) (Summary, error) {
	log := s.Log.WithStage(s.Name)

	units, err := s.Select(ctx)
	if err != nil {
		return Summary{}, apperr.Wrap(apperr.KindInternal, "select eligible units", err).WithOp(s.Name)
	}
	sum := Summary{Eligible: len(units)}
	if len(units) == 0 {
		log.StageSummary(s.Name, 0, 0, 0)
		return sum, nil
	}

	if s.Smoke != nil {
		if err := s.Smoke(ctx); err != nil {
			if apperr.IsFatalServiceErr(err) {
				return sum, err
			}
			log.Warn("smoke_check_failed", "error", err.Error())
		}
	}

	workers := s.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]result[O], len(units))
	var fatalOnce sync.Once
	var fatal error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, unit := range units {
		g.Go(func() error {
			out, err := s.Dispatch(gctx, unit)
			results[i] = result[O]{out: out, err: err}
			if err != nil && apperr.IsFatalServiceErr(err) {
				fatalOnce.Do(func() { fatal = err })
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && fatal != nil {
		return sum, fatal
	}
	if err := ctx.Err(); err != nil {
		return sum, apperr.Timeout("stage interrupted", err).WithOp(s.Name)
	}

	for i, unit := range units {
		res := results[i]
		if res.err != nil {
			sum.Failed++
			log.RecordDropped(s.Name, s.Title(unit), res.err)
			continue
		}
		written, err := s.Write(ctx, unit, res.out)
		if err != nil {
			sum.Failed++
			log.RecordDropped(s.Name, s.Title(unit), err)
			continue
		}
		if !written {
			sum.Skipped++
			continue
		}
		sum.Processed++
		log.RecordProgress(s.Name, s.Title(unit))
	}

	log.StageSummary(s.Name, sum.Processed, sum.Skipped, sum.Failed)
	return sum, nil
}
