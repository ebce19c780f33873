package e2e

import (
	"fmt"
	"net/http"
	"testing"
)

func TestProcess_StartsJob(t *testing.T) {
	ta := setupApp(t)
	jobID, key := seedUpload(t, ta)

	body := fmt.Sprintf(`{"s3Uri":"s3://uploads-test/%s"}`, key)
	resp, err := doAuthRequest(t, ta.app, "POST", "/api/process", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)

	result := parseJSON(t, resp)
	if result["jobId"] != jobID {
		t.Errorf("expected job id %q, got %v", jobID, result["jobId"])
	}
	if result["status"] != "queued" {
		t.Errorf("expected queued, got %v", result["status"])
	}
}

func TestProcess_MissingBody(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, "POST", "/api/process", `{}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
	if code := errorCode(t, resp); code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %s", code)
	}
}

func TestProcess_MalformedURI(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, "POST", "/api/process", `{"s3Uri":"http://not-s3/object"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestProcess_ObjectMissing(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, "POST", "/api/process", `{"s3Uri":"s3://uploads-test/uploads/nothing-here/original"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
	if code := errorCode(t, resp); code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %s", code)
	}
}

func TestProcess_RejectsUnsupportedFormat(t *testing.T) {
	ta := setupApp(t)
	ta.storage.Put("uploads-test", "uploads/bad-format/original", []byte("%PDF-1.4"), "application/pdf")

	resp, err := doAuthRequest(t, ta.app, "POST", "/api/process", `{"s3Uri":"s3://uploads-test/uploads/bad-format/original"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnprocessableEntity)
	if code := errorCode(t, resp); code != "POLICY_VIOLATION" {
		t.Errorf("expected POLICY_VIOLATION, got %s", code)
	}
}
