package e2e

import (
	"net/http"
	"testing"
)

func TestHealthCheck(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, "GET", "/health", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	services, ok := body["services"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected services map, got %v", body["services"])
	}
	if services["avatar_ai"] != false {
		t.Error("avatar AI should report unconfigured in tests")
	}
}

func TestAPIRequiresKey(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, "POST", "/api/uploads", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
	if code := errorCode(t, resp); code != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED, got %s", code)
	}
}

func TestAPIRejectsWrongKey(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, "GET", "/api/jobs/some-id/status", "", map[string]string{
		"x-api-key": "wrong-key",
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
}
