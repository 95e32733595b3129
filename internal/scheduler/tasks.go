package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskMetricsSnapshotDaily = "metrics.snapshot.daily"

type MetricsSnapshotPayload struct {
	Date string `json:"date"` // YYYY-MM-DD
}

func NewMetricsSnapshotTask(payload MetricsSnapshotPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMetricsSnapshotDaily, data), nil
}

func ParseMetricsSnapshotPayload(task *asynq.Task) (MetricsSnapshotPayload, error) {
	var payload MetricsSnapshotPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return MetricsSnapshotPayload{}, err
	}
	return payload, nil
}
