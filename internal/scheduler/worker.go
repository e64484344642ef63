package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"repwatch_backend/internal/watch"
	"repwatch_backend/platform/config"
	"repwatch_backend/platform/logger"
)

// PipelineRunner is the piece of the watch pipeline the worker drives.
type PipelineRunner interface {
	Run(ctx context.Context) error
}

// Worker consumes pipeline-run tasks and also enqueues them periodically.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	runner    PipelineRunner
	subject   string
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner PipelineRunner, subject string, log *logger.Logger) (*Worker, error) {
	opt, queue, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 1
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	sched := asynq.NewScheduler(opt, nil)
	task, err := NewPipelineRunTask(PipelineRunPayload{Subject: subject, Reason: "interval"})
	if err != nil {
		return nil, err
	}
	spec := fmt.Sprintf("@every %s", cfg.GetPipelineInterval())
	if _, err := sched.Register(spec, task, asynq.Queue(queue)); err != nil {
		return nil, err
	}

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		scheduler: sched,
		mux:       mux,
		runner:    runner,
		subject:   subject,
		log:       log,
	}
	mux.HandleFunc(TaskPipelineRun, w.handlePipelineRun)

	return w, nil
}

// handlePipelineRun executes one full pipeline cycle. A short cycle with no
// new items is a normal outcome, not a task failure.
func (w *Worker) handlePipelineRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParsePipelineRunPayload(task)
	if err != nil {
		return err
	}
	w.log.Info("pipeline_run_started", "subject", payload.Subject, "reason", payload.Reason)

	if err := w.runner.Run(ctx); err != nil {
		if errors.Is(err, watch.ErrNoNewItems) {
			return nil
		}
		return err
	}
	return nil
}

// Run serves tasks and the periodic trigger until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.scheduler.Shutdown()
		w.server.Shutdown()
	}()

	go func() {
		if err := w.scheduler.Run(); err != nil {
			w.log.Error("periodic scheduler stopped", "error", err)
		}
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
