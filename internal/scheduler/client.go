package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"repwatch_backend/platform/config"
)

type Client struct {
	client *asynq.Client
	queue  string
}

// PipelineTrigger enqueues an on-demand pipeline run.
type PipelineTrigger interface {
	TriggerPipelineRun(ctx context.Context, payload PipelineRunPayload) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, queue, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) TriggerPipelineRun(ctx context.Context, payload PipelineRunPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewPipelineRunTask(payload)
	if err != nil {
		return err
	}

	// One queued run at a time. A trigger arriving while a run is pending
	// collapses into it instead of stacking.
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID("pipeline-run-"+payload.Subject),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	return nil
}

func redisClientOpt(cfg config.SchedulerConfig) (asynq.RedisConnOpt, string, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, "", fmt.Errorf("redis url not configured")
	}

	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, "", err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return opt, queue, nil
}
