package model

import "encoding/json"

// UploadGrantResponse is returned by POST /api/uploads.
type UploadGrantResponse struct {
	JobID     string `json:"jobId"`
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}

// ProcessRequest is the body of POST /api/process.
type ProcessRequest struct {
	S3URI string `json:"s3Uri" validate:"required"`
}

// ProcessResponse acknowledges that processing was initiated.
type ProcessResponse struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
}

// StatusResponse is returned by GET /api/jobs/:jobId/status.
type StatusResponse struct {
	JobID    string    `json:"jobId"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Error    string    `json:"error,omitempty"`
}

// ResultResponse is returned by GET /api/jobs/:jobId/result once the job
// is completed. AvatarURL is a short-lived presigned link.
type ResultResponse struct {
	JobID       string          `json:"jobId"`
	AvatarURL   string          `json:"avatarUrl"`
	Identity    json.RawMessage `json:"identity"`
	PetAnalysis json.RawMessage `json:"petAnalysis"`
}

// StorageEvent mirrors the bucket-notification JSON posted to
// /events/storage. Only the bucket name and object key are used.
type StorageEvent struct {
	Records []StorageEventRecord `json:"Records"`
}

type StorageEventRecord struct {
	S3 struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

// StorageEventResponse summarizes processing of one notification batch.
type StorageEventResponse struct {
	Processed int `json:"processed"`
	Discarded int `json:"discarded"`
}
