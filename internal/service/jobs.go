package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petavatar/api/internal/client"
	"github.com/petavatar/api/internal/config"
	"github.com/petavatar/api/internal/model"
	"github.com/petavatar/api/internal/store"
)

// resultGrantTTL is the expiration window of issued result links.
const resultGrantTTL = time.Hour

// JobService is the read-only query surface over the job store.
type JobService struct {
	store           store.Store
	storage         client.StorageClient
	generatedBucket string
}

func NewJobService(jobStore store.Store, storage client.StorageClient, cfg *config.S3Config) *JobService {
	return &JobService{
		store:           jobStore,
		storage:         storage,
		generatedBucket: cfg.GeneratedBucket,
	}
}

// GetStatus returns the current status and progress of a job.
func (s *JobService) GetStatus(ctx context.Context, jobID string) (*model.StatusResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	resp := &model.StatusResponse{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
	}
	if job.Status == model.JobStatusFailed {
		resp.Error = job.Error
	}
	return resp, nil
}

// GetResult returns the identity package of a completed job together
// with a short-lived access grant for the generated avatar.
func (s *JobService) GetResult(ctx context.Context, jobID string) (*model.ResultResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	if job.Status != model.JobStatusCompleted {
		return nil, fmt.Errorf("%w: current status %s", ErrNotReady, job.Status)
	}
	if job.ResultKey == "" {
		return nil, fmt.Errorf("completed job %s has no result reference", jobID)
	}

	avatarURL, err := s.storage.PresignGet(ctx, s.generatedBucket, job.ResultKey, resultGrantTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue result grant: %w", err)
	}

	return &model.ResultResponse{
		JobID:       job.ID,
		AvatarURL:   avatarURL,
		Identity:    job.Identity,
		PetAnalysis: job.PetAnalysis,
	}, nil
}
