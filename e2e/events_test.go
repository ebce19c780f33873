package e2e

import (
	"fmt"
	"net/http"
	"testing"
)

func storageEventBody(bucket, key string) string {
	return fmt.Sprintf(`{"Records":[{"s3":{"bucket":{"name":%q},"object":{"key":%q}}}]}`, bucket, key)
}

func TestStorageEvent_RegistersJob(t *testing.T) {
	ta := setupApp(t)
	jobID, key := seedUpload(t, ta)

	resp, err := doAuthRequest(t, ta.app, "POST", "/events/storage", storageEventBody("uploads-test", key))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["processed"].(float64) != 1 {
		t.Errorf("expected processed=1, got %v", body["processed"])
	}

	// The job record is visible through the status endpoint.
	resp, err = doAuthRequest(t, ta.app, "GET", "/api/jobs/"+jobID+"/status", "")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	status := parseJSON(t, resp)
	if status["status"] != "queued" {
		t.Errorf("expected queued, got %v", status["status"])
	}
}

func TestStorageEvent_DiscardsForeignKeys(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, "POST", "/events/storage", storageEventBody("uploads-test", "backups/2024/dump.sql"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["discarded"].(float64) != 1 {
		t.Errorf("expected discarded=1, got %v", body["discarded"])
	}
	if body["processed"].(float64) != 0 {
		t.Errorf("expected processed=0, got %v", body["processed"])
	}
}

func TestStorageEvent_BothPathsConverge(t *testing.T) {
	ta := setupApp(t)
	jobID, key := seedUpload(t, ta)

	// Event path registers the job, then the client calls process directly.
	resp, err := doAuthRequest(t, ta.app, "POST", "/events/storage", storageEventBody("uploads-test", key))
	if err != nil {
		t.Fatalf("event request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	readBody(t, resp)

	processBody := fmt.Sprintf(`{"s3Uri":"s3://uploads-test/%s"}`, key)
	resp, err = doAuthRequest(t, ta.app, "POST", "/api/process", processBody)
	if err != nil {
		t.Fatalf("process request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	result := parseJSON(t, resp)
	if result["jobId"] != jobID {
		t.Errorf("both paths must converge on job %q, got %v", jobID, result["jobId"])
	}

	// One worker run completes the single converged record.
	runWorker(t, ta, jobID, key)
	resp, err = doAuthRequest(t, ta.app, "GET", "/api/jobs/"+jobID+"/status", "")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	status := parseJSON(t, resp)
	if status["status"] != "completed" {
		t.Errorf("expected completed, got %v", status["status"])
	}
}

func TestStorageEvent_RequiresAuth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, "POST", "/events/storage", storageEventBody("uploads-test", "uploads/x/original"), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
}
