package scheduler

import (
	"encoding/json"

	"command_center_backend/internal/postgrest"
	"command_center_backend/internal/uplinesync"

	"github.com/hibiken/asynq"
)

const TaskSyncUpline = "sync.upline"

type SyncUplinePayload struct {
	Table  string        `json:"table"`
	Origin string        `json:"origin"`
	Record postgrest.Row `json:"record"`
}

func NewSyncUplineTask(payload SyncUplinePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncUpline, data), nil
}

func ParseSyncUplinePayload(task *asynq.Task) (SyncUplinePayload, error) {
	var payload SyncUplinePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SyncUplinePayload{}, err
	}
	return payload, nil
}

func payloadFromJob(job uplinesync.Job) SyncUplinePayload {
	return SyncUplinePayload{Table: job.Table, Origin: job.Origin, Record: job.Record}
}

func (p SyncUplinePayload) job(attempt int) uplinesync.Job {
	return uplinesync.Job{Table: p.Table, Origin: p.Origin, Record: p.Record, Attempt: attempt}
}
