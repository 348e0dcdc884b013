package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskNormalizeBatch = "phone.normalize_batch"

type NormalizeBatchPayload struct {
	JobID string `json:"jobId"`
}

func NewNormalizeBatchTask(payload NormalizeBatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNormalizeBatch, data), nil
}

func ParseNormalizeBatchPayload(task *asynq.Task) (NormalizeBatchPayload, error) {
	var payload NormalizeBatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NormalizeBatchPayload{}, err
	}
	return payload, nil
}
