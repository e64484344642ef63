// Package events defines the domain events of the monitoring pipeline.
// Infrastructure (Bus, Handler) lives in platform/events.
package events

import (
	"time"

	"repwatch_backend/platform/events"
	"repwatch_backend/platform/logger"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// StageCompleted is published after each stage invocation finishes.
type StageCompleted struct {
	BaseEvent
	RunID     string `json:"runId"`
	Subject   string `json:"subject"`
	Stage     string `json:"stage"`
	Eligible  int    `json:"eligible"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

func (e StageCompleted) EventName() string { return "watch.stage.completed" }

// ActPackageReady is published when an act run has been persisted.
type ActPackageReady struct {
	BaseEvent
	RunID    string `json:"runId"`
	Subject  string `json:"subject"`
	ActRunID string `json:"actRunId"`
}

func (e ActPackageReady) EventName() string { return "watch.act.package_ready" }

// PipelineCompleted is published when a full observe-to-act run finishes.
type PipelineCompleted struct {
	BaseEvent
	RunID      string        `json:"runId"`
	Subject    string        `json:"subject"`
	NewItems   int           `json:"newItems"`
	Duration   time.Duration `json:"duration"`
	ShortCycle bool          `json:"shortCycle"`
}

func (e PipelineCompleted) EventName() string { return "watch.pipeline.completed" }
