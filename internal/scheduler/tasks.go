package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskPipelineRun = "watch:pipeline:run"

type PipelineRunPayload struct {
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
}

func NewPipelineRunTask(payload PipelineRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPipelineRun, data), nil
}

func ParsePipelineRunPayload(task *asynq.Task) (PipelineRunPayload, error) {
	var payload PipelineRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PipelineRunPayload{}, err
	}
	return payload, nil
}
