package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/petavatar/api/internal/client"
	"github.com/petavatar/api/internal/config"
	"github.com/petavatar/api/internal/metrics"
	"github.com/petavatar/api/internal/model"
	"github.com/petavatar/api/internal/queue"
	"github.com/petavatar/api/internal/store"
)

const (
	// maxImageBytes is the upload size ceiling (50MB).
	maxImageBytes = 50 * 1024 * 1024
	// uploadGrantTTL bounds how long an issued upload URL stays valid.
	uploadGrantTTL = 15 * time.Minute
)

var acceptedFormats = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/heic": true,
}

var (
	s3URIPattern     = regexp.MustCompile(`^s3://([^/]+)/(.+)$`)
	uploadKeyPattern = regexp.MustCompile(`^uploads/([^/]+)/.+`)
)

// IngestService registers jobs and enqueues them for processing, via
// either the direct-request path or the storage-event path. Both paths
// converge on the same job record through CreateIfAbsent; repeated
// triggers for one job id produce at most one record and any number of
// queue messages, which the worker reduces via its status guard.
type IngestService struct {
	store        store.Store
	enqueuer     queue.Enqueuer
	storage      client.StorageClient
	uploadBucket string
}

func NewIngestService(jobStore store.Store, enqueuer queue.Enqueuer, storage client.StorageClient, cfg *config.S3Config) *IngestService {
	return &IngestService{
		store:        jobStore,
		enqueuer:     enqueuer,
		storage:      storage,
		uploadBucket: cfg.UploadBucket,
	}
}

// IssueUploadGrant assigns a job id and returns a presigned upload URL
// for it. The job record itself is created later, by whichever ingestion
// path observes the finished upload first.
func (s *IngestService) IssueUploadGrant(ctx context.Context) (*model.UploadGrantResponse, error) {
	jobID := uuid.New().String()
	key := fmt.Sprintf("uploads/%s/original", jobID)

	url, err := s.storage.PresignPut(ctx, s.uploadBucket, key, uploadGrantTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue upload grant: %w", err)
	}

	return &model.UploadGrantResponse{
		JobID:     jobID,
		UploadURL: url,
		Key:       key,
		ExpiresIn: int(uploadGrantTTL.Seconds()),
	}, nil
}

// Process handles direct-request ingestion: validates the client-supplied
// object reference, verifies the object against the format/size policy,
// then upserts the job record and enqueues exactly one message.
func (s *IngestService) Process(ctx context.Context, s3URI string) (*model.ProcessResponse, error) {
	m := s3URIPattern.FindStringSubmatch(s3URI)
	if m == nil {
		return nil, &ValidationError{Message: "Invalid S3 URI format. Expected: s3://bucket-name/key"}
	}
	bucket, key := m[1], m[2]

	info, err := s.storage.Head(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect object: %w", err)
	}
	if !info.Exists {
		return nil, fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, bucket, key)
	}
	if !acceptedFormats[info.ContentType] {
		return nil, &PolicyError{
			Rule:    "format",
			Message: fmt.Sprintf("Invalid image format: %s. Supported formats: JPEG, PNG, HEIC", info.ContentType),
		}
	}
	if info.Size > maxImageBytes {
		return nil, &PolicyError{
			Rule:    "size",
			Message: fmt.Sprintf("Image too large: %d bytes. Maximum size: %d bytes (50MB)", info.Size, maxImageBytes),
		}
	}

	jobID := extractJobID(key)
	if err := s.register(ctx, jobID, bucket, key); err != nil {
		return nil, err
	}

	metrics.IngestAccepted.WithLabelValues("direct").Inc()
	return &model.ProcessResponse{JobID: jobID, Status: model.JobStatusQueued}, nil
}

// HandleStorageEvent consumes upload notifications. Keys that do not
// match the expected uploads/{job_id}/... pattern are logged and
// discarded; this is deliberately tolerant of unrelated uploads.
func (s *IngestService) HandleStorageEvent(ctx context.Context, event *model.StorageEvent) *model.StorageEventResponse {
	resp := &model.StorageEventResponse{}

	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key := record.S3.Object.Key
		if bucket == "" || key == "" {
			resp.Discarded++
			metrics.EventsDiscarded.Inc()
			continue
		}

		m := uploadKeyPattern.FindStringSubmatch(key)
		if m == nil {
			log.Printf("Discarding storage event for non-upload key: %s", key)
			resp.Discarded++
			metrics.EventsDiscarded.Inc()
			continue
		}
		jobID := m[1]

		if err := s.register(ctx, jobID, bucket, key); err != nil {
			log.Printf("Failed to register job %s from storage event: %v", jobID, err)
			resp.Discarded++
			continue
		}

		metrics.IngestAccepted.WithLabelValues("event").Inc()
		resp.Processed++
	}

	return resp
}

// register upserts the job record and enqueues one processing message.
// If a record already exists (the other ingestion path got here first,
// or a duplicate event was delivered) the existing status and source
// reference are left untouched; only a fresh enqueue is performed.
func (s *IngestService) register(ctx context.Context, jobID, bucket, key string) error {
	created, err := s.store.CreateIfAbsent(ctx, model.NewJob(jobID, bucket, key))
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	if !created {
		if err := s.store.Touch(ctx, jobID); err != nil {
			log.Printf("Failed to touch job %s: %v", jobID, err)
		}
	}

	if err := s.enqueuer.EnqueueProcess(ctx, jobID, key); err != nil {
		return err
	}
	return nil
}

// extractJobID reuses a job id embedded in an uploads/{job_id}/... key,
// or assigns a fresh one for references outside that layout.
func extractJobID(key string) string {
	if m := uploadKeyPattern.FindStringSubmatch(key); m != nil {
		return m[1]
	}
	return uuid.New().String()
}
