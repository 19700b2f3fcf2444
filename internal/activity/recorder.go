package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TaskTypeRecord is the asynq task type carrying one activity entry.
const TaskTypeRecord = "activity:record"

// NewRecordTask builds the asynq task for an entry.
func NewRecordTask(entry Entry) (*asynq.Task, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRecord, payload), nil
}

// QueueRecorder enqueues entries onto the job queue; the worker persists them.
// Enqueue failures are logged and swallowed.
type QueueRecorder struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewQueueRecorder constructs a QueueRecorder.
func NewQueueRecorder(client *asynq.Client, logger *slog.Logger) *QueueRecorder {
	return &QueueRecorder{client: client, logger: logger}
}

// Record enqueues the entry. Never returns an error to the caller.
func (r *QueueRecorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.client == nil {
		return
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	task, err := NewRecordTask(entry)
	if err != nil {
		r.log("marshal activity entry", err)
		return
	}
	if _, err := r.client.EnqueueContext(ctx, task); err != nil {
		r.log("enqueue activity entry", err)
	}
}

func (r *QueueRecorder) log(msg string, err error) {
	if r.logger != nil {
		r.logger.Warn(msg, slog.Any("error", err))
	}
}

// StoreRecorder writes entries straight to storage. Used by the worker and in
// deployments without a queue. Failures are logged and swallowed.
type StoreRecorder struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewStoreRecorder constructs a StoreRecorder.
func NewStoreRecorder(repo RepositoryPort, logger *slog.Logger) *StoreRecorder {
	return &StoreRecorder{repo: repo, logger: logger}
}

// Record persists the entry. Never returns an error to the caller.
func (r *StoreRecorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.repo == nil {
		return
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	if err := r.repo.Insert(ctx, entry); err != nil && r.logger != nil {
		r.logger.Warn("persist activity entry", slog.Any("error", err))
	}
}

var (
	_ Recorder = (*QueueRecorder)(nil)
	_ Recorder = (*StoreRecorder)(nil)
)
