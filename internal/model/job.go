package model

import (
	"encoding/json"
	"time"
)

// Job represents one end-to-end avatar generation unit of work, from
// uploaded pet image to generated identity package.
type Job struct {
	ID           string          `json:"jobId"`
	Status       JobStatus       `json:"status"`
	Progress     int             `json:"progress"`
	SourceBucket string          `json:"sourceBucket"`
	SourceKey    string          `json:"sourceKey"`
	ResultKey    string          `json:"resultKey,omitempty"`
	Error        string          `json:"error,omitempty"`
	PetAnalysis  json.RawMessage `json:"petAnalysis,omitempty"`
	Career       json.RawMessage `json:"careerProfile,omitempty"`
	Identity     json.RawMessage `json:"identityPackage,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NewJob builds a fresh queued job for an uploaded source object.
func NewJob(id, bucket, key string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:           id,
		Status:       JobStatusQueued,
		SourceBucket: bucket,
		SourceKey:    key,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ProcessTaskPayload is the queue message carried by a process task.
// Delivery is at-least-once; the worker reduces duplicates through the
// job status guard, so the payload stays minimal.
type ProcessTaskPayload struct {
	JobID     string    `json:"jobId"`
	SourceKey string    `json:"sourceKey"`
	Timestamp time.Time `json:"timestamp"`
}
