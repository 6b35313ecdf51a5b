package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDirectoryRefresh invalidates the directory cache so every web
	// process reloads the user collection.
	TaskDirectoryRefresh = "directory:refresh"
)

// DirectoryRefreshPayload describes why a refresh was requested.
type DirectoryRefreshPayload struct {
	Reason string `json:"reason"`
}

// NewDirectoryRefreshTask constructs an Asynq task.
func NewDirectoryRefreshTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "manual"
	}
	data, err := json.Marshal(DirectoryRefreshPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDirectoryRefresh, data), nil
}
