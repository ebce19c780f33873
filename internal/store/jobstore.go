package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petavatar/api/internal/model"
)

// ErrNotFound is returned when no record exists for a job id.
var ErrNotFound = errors.New("job not found")

// recordTTL is the retention horizon after which a job record and its
// objects become eligible for deletion.
const recordTTL = 7 * 24 * time.Hour

// Fields is a partial set of job record fields for a conditional write.
type Fields map[string]string

// Store is the durable job record set. Concurrency correctness of the
// whole system rests on CreateIfAbsent and ConditionalUpdate being
// atomic; they are the only synchronization primitives the design uses.
type Store interface {
	// CreateIfAbsent inserts the record only if no record exists for the
	// job id. Returns true when the record was created.
	CreateIfAbsent(ctx context.Context, job *model.Job) (bool, error)
	// ConditionalUpdate applies the fields only if the stored status still
	// equals expected at write time (compare-and-swap). Returns true when
	// applied, false when another writer advanced the status first, and
	// ErrNotFound when no record exists.
	ConditionalUpdate(ctx context.Context, jobID string, expected model.JobStatus, fields Fields) (bool, error)
	// Touch refreshes updated_at on an existing record without changing
	// status or source reference. A no-op if the record is gone.
	Touch(ctx context.Context, jobID string) error
	Get(ctx context.Context, jobID string) (*model.Job, error)
}

// createIfAbsent: ARGV[1] = ttl seconds, ARGV[2..] = field/value pairs.
var createIfAbsentScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV, 2))
redis.call("EXPIRE", KEYS[1], ARGV[1])
return 1
`)

// conditionalUpdate: ARGV[1] = expected status, ARGV[2..] = field/value pairs.
var conditionalUpdateScript = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "status")
if not cur then
  return -1
end
if cur ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV, 2))
return 1
`)

var touchScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "updated_at", ARGV[1])
return 1
`)

// RedisStore keeps job records as redis hashes under job:{id}.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func (s *RedisStore) CreateIfAbsent(ctx context.Context, job *model.Job) (bool, error) {
	args := []interface{}{int(recordTTL.Seconds())}
	args = appendFields(args, Fields{
		"status":        string(job.Status),
		"progress":      strconv.Itoa(job.Progress),
		"source_bucket": job.SourceBucket,
		"source_key":    job.SourceKey,
		"created_at":    job.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":    job.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})

	n, err := createIfAbsentScript.Run(ctx, s.redis, []string{jobKey(job.ID)}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("create job %s: %w", job.ID, err)
	}
	return n == 1, nil
}

func (s *RedisStore) ConditionalUpdate(ctx context.Context, jobID string, expected model.JobStatus, fields Fields) (bool, error) {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	args := appendFields([]interface{}{string(expected)}, fields)

	n, err := conditionalUpdateScript.Run(ctx, s.redis, []string{jobKey(jobID)}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("update job %s: %w", jobID, err)
	}
	switch n {
	case -1:
		return false, ErrNotFound
	case 1:
		return true, nil
	default:
		return false, nil
	}
}

func (s *RedisStore) Touch(ctx context.Context, jobID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return touchScript.Run(ctx, s.redis, []string{jobKey(jobID)}, now).Err()
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	vals, err := s.redis.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}

	job := &model.Job{
		ID:           jobID,
		Status:       model.JobStatus(vals["status"]),
		SourceBucket: vals["source_bucket"],
		SourceKey:    vals["source_key"],
		ResultKey:    vals["result_key"],
		Error:        vals["error"],
	}
	if v := vals["progress"]; v != "" {
		job.Progress, _ = strconv.Atoi(v)
	}
	if v := vals["pet_analysis"]; v != "" {
		job.PetAnalysis = []byte(v)
	}
	if v := vals["career_profile"]; v != "" {
		job.Career = []byte(v)
	}
	if v := vals["identity_package"]; v != "" {
		job.Identity = []byte(v)
	}
	if t, err := time.Parse(time.RFC3339Nano, vals["created_at"]); err == nil {
		job.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, vals["updated_at"]); err == nil {
		job.UpdatedAt = t
	}
	return job, nil
}

func appendFields(args []interface{}, fields Fields) []interface{} {
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
