package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/petavatar/api/internal/client"
	"github.com/petavatar/api/internal/config"
	"github.com/petavatar/api/internal/metrics"
	"github.com/petavatar/api/internal/model"
	"github.com/petavatar/api/internal/retry"
	"github.com/petavatar/api/internal/store"
)

// Pipeline stage names, in execution order.
const (
	StageAnalyzePet       = "analyze_pet"
	StageMapCareer        = "map_career"
	StageGenerateAvatar   = "generate_avatar"
	StageGenerateIdentity = "generate_identity"
)

// ProcessWorker consumes process tasks and advances jobs through the
// four-stage avatar pipeline. Any number of workers may run; the
// queued→processing compare-and-swap guarantees at most one of them
// processes a given job, and terminal statuses are never mutated again.
type ProcessWorker struct {
	store           store.Store
	storage         client.StorageClient
	ai              client.AvatarAI
	generatedBucket string
	retryPolicy     retry.Policy
	deadline        time.Duration
}

func NewProcessWorker(jobStore store.Store, storage client.StorageClient, ai client.AvatarAI, s3cfg *config.S3Config, pipeline *config.PipelineConfig) *ProcessWorker {
	return &ProcessWorker{
		store:           jobStore,
		storage:         storage,
		ai:              ai,
		generatedBucket: s3cfg.GeneratedBucket,
		retryPolicy: retry.Policy{
			MaxAttempts: pipeline.StageMaxAttempts,
			BaseDelay:   pipeline.StageBaseDelay,
			Multiplier:  2,
		},
		deadline: pipeline.Deadline,
	}
}

// pipelineResult holds everything a successful run persists atomically
// on the completed transition. Nothing is persisted on failure.
type pipelineResult struct {
	analysis  *model.PetAnalysis
	career    *model.CareerProfile
	identity  *model.IdentityPackage
	resultKey string
}

// ProcessTask handles one queue delivery. Returning nil acknowledges the
// message; an error is returned only for infra-level problems where an
// asynq redelivery can help.
func (w *ProcessWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ProcessTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}
	jobID := payload.JobID

	job, err := w.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("Discarding message for unknown job %s (record expired?)", jobID)
			return nil
		}
		return err
	}

	// Duplicate or late delivery for a finished job: ack and discard.
	if job.Status.IsTerminal() {
		log.Printf("Discarding message for job %s already in terminal status %s", jobID, job.Status)
		return nil
	}

	// Claim the job. The conditional write succeeds for exactly one
	// consumer; everyone else abandons the message without error.
	claimed, err := w.store.ConditionalUpdate(ctx, jobID, model.JobStatusQueued, store.Fields{
		"status":   string(model.JobStatusProcessing),
		"progress": "10",
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if !claimed {
		log.Printf("Job %s already claimed by another worker, abandoning message", jobID)
		return nil
	}

	log.Printf("Processing job %s (source s3://%s/%s)", jobID, job.SourceBucket, job.SourceKey)
	start := time.Now()

	pctx, cancel := context.WithTimeout(ctx, w.deadline)
	defer cancel()

	result, err := w.runPipeline(pctx, job)
	if err != nil {
		if pctx.Err() != nil && ctx.Err() == nil {
			metrics.JobsTimedOut.Inc()
			w.failJob(ctx, jobID, fmt.Sprintf("pipeline deadline of %s exceeded: %v", w.deadline, err))
			return nil
		}
		w.failJob(ctx, jobID, err.Error())
		return nil
	}

	analysisJSON, _ := json.Marshal(result.analysis)
	careerJSON, _ := json.Marshal(result.career)
	identityJSON, _ := json.Marshal(result.identity)

	applied, err := w.store.ConditionalUpdate(ctx, jobID, model.JobStatusProcessing, store.Fields{
		"status":           string(model.JobStatusCompleted),
		"progress":         "100",
		"result_key":       result.resultKey,
		"pet_analysis":     string(analysisJSON),
		"career_profile":   string(careerJSON),
		"identity_package": string(identityJSON),
	})
	if err != nil {
		return fmt.Errorf("failed to save result for job %s: %w", jobID, err)
	}
	if !applied {
		log.Printf("Job %s advanced concurrently, dropping completion", jobID)
		return nil
	}

	metrics.JobsCompleted.Inc()
	log.Printf("Completed job %s in %s", jobID, time.Since(start).Round(time.Millisecond))
	return nil
}

// runPipeline executes the stages in strict sequence, each wrapped in
// the uniform retry policy, each stage's output feeding the next.
func (w *ProcessWorker) runPipeline(ctx context.Context, job *model.Job) (*pipelineResult, error) {
	image, err := w.storage.Download(ctx, job.SourceBucket, job.SourceKey)
	if err != nil {
		return nil, fmt.Errorf("failed to download source image: %w", err)
	}
	w.updateProgress(ctx, job.ID, 20)

	var analysis *model.PetAnalysis
	err = w.runStage(ctx, job.ID, StageAnalyzePet, func(ctx context.Context) error {
		var err error
		analysis, err = w.ai.AnalyzePet(ctx, image, http.DetectContentType(image))
		return err
	})
	if err != nil {
		return nil, err
	}
	w.updateProgress(ctx, job.ID, 40)

	var career *model.CareerProfile
	err = w.runStage(ctx, job.ID, StageMapCareer, func(ctx context.Context) error {
		var err error
		career, err = w.ai.MapCareer(ctx, analysis)
		return err
	})
	if err != nil {
		return nil, err
	}
	w.updateProgress(ctx, job.ID, 55)

	var avatar []byte
	err = w.runStage(ctx, job.ID, StageGenerateAvatar, func(ctx context.Context) error {
		var err error
		avatar, err = w.ai.GenerateAvatar(ctx, career, analysis)
		return err
	})
	if err != nil {
		return nil, err
	}
	w.updateProgress(ctx, job.ID, 75)

	var identity *model.IdentityPackage
	err = w.runStage(ctx, job.ID, StageGenerateIdentity, func(ctx context.Context) error {
		var err error
		identity, err = w.ai.GenerateIdentity(ctx, analysis, career)
		return err
	})
	if err != nil {
		return nil, err
	}
	w.updateProgress(ctx, job.ID, 85)

	resultKey := fmt.Sprintf("generated/%s/avatar.png", job.ID)
	if err := w.storage.Upload(ctx, w.generatedBucket, resultKey, avatar, "image/png"); err != nil {
		return nil, fmt.Errorf("failed to store generated avatar: %w", err)
	}
	w.updateProgress(ctx, job.ID, 90)

	return &pipelineResult{
		analysis:  analysis,
		career:    career,
		identity:  identity,
		resultKey: resultKey,
	}, nil
}

func (w *ProcessWorker) runStage(ctx context.Context, jobID, stage string, fn func(ctx context.Context) error) error {
	err := w.retryPolicy.Do(ctx, fn, func(attempt int, attemptErr error) {
		log.Printf("Stage %s attempt %d failed for job %s: %v", stage, attempt, jobID, attemptErr)
		metrics.StageAttemptFailures.WithLabelValues(stage).Inc()
	})
	if err != nil {
		if ctx.Err() == nil {
			metrics.StageFailures.WithLabelValues(stage).Inc()
		}
		return fmt.Errorf("stage %s failed: %w", stage, err)
	}
	return nil
}

func (w *ProcessWorker) updateProgress(ctx context.Context, jobID string, progress int) {
	applied, err := w.store.ConditionalUpdate(ctx, jobID, model.JobStatusProcessing, store.Fields{
		"progress": strconv.Itoa(progress),
	})
	if err != nil || !applied {
		log.Printf("Failed to update progress for job %s: applied=%v err=%v", jobID, applied, err)
	}
}

// failJob records the terminal failure. No partial results are persisted;
// a failed job exposes no result reference or payload.
func (w *ProcessWorker) failJob(ctx context.Context, jobID, detail string) {
	applied, err := w.store.ConditionalUpdate(ctx, jobID, model.JobStatusProcessing, store.Fields{
		"status": string(model.JobStatusFailed),
		"error":  detail,
	})
	if err != nil || !applied {
		log.Printf("Failed to mark job %s as failed: applied=%v err=%v", jobID, applied, err)
		return
	}
	metrics.JobsFailed.Inc()
	log.Printf("Job %s failed: %s", jobID, detail)
}
