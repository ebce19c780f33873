package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/petavatar/api/internal/config"
	"github.com/petavatar/api/internal/model"
)

// TaskTypeProcess is the single task type carried by the work queue.
const TaskTypeProcess = "avatar:process"

// QueueProcess is the asynq queue name for avatar processing.
const QueueProcess = "process"

// Enqueuer puts process messages onto the work queue. Delivery is
// at-least-once; consumers must tolerate duplicates.
type Enqueuer interface {
	EnqueueProcess(ctx context.Context, jobID, sourceKey string) error
}

// AsynqEnqueuer wraps an asynq client with the queue's retry, retention
// and timeout policy. Tasks that exhaust MaxRetry are archived by asynq,
// which serves as the dead-letter path for manual inspection.
type AsynqEnqueuer struct {
	client *asynq.Client
	cfg    *config.QueueConfig
	// taskTimeout bounds one delivery attempt; it must exceed the
	// pipeline deadline so the worker, not the lease, ends the job.
	taskTimeout time.Duration
}

func NewAsynqEnqueuer(client *asynq.Client, cfg *config.QueueConfig, pipelineDeadline time.Duration) *AsynqEnqueuer {
	return &AsynqEnqueuer{
		client:      client,
		cfg:         cfg,
		taskTimeout: pipelineDeadline + time.Minute,
	}
}

func (e *AsynqEnqueuer) EnqueueProcess(ctx context.Context, jobID, sourceKey string) error {
	task, err := NewProcessTask(jobID, sourceKey)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueProcess),
		asynq.MaxRetry(e.cfg.MaxRetry),
		asynq.Timeout(e.taskTimeout),
		asynq.Retention(e.cfg.Retention),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue process task for job %s: %w", jobID, err)
	}
	return nil
}

// NewProcessTask builds the queue message for one job.
func NewProcessTask(jobID, sourceKey string) (*asynq.Task, error) {
	payload := model.ProcessTaskPayload{
		JobID:     jobID,
		SourceKey: sourceKey,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeProcess, data), nil
}
