package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/petavatar/api/internal/config"
	"github.com/petavatar/api/internal/model"
)

// AvatarAI is the uniform contract for the four external pipeline
// capabilities. Each invocation is synchronous and may fail transiently;
// retry policy is applied by the caller, not here.
type AvatarAI interface {
	AnalyzePet(ctx context.Context, image []byte, contentType string) (*model.PetAnalysis, error)
	MapCareer(ctx context.Context, analysis *model.PetAnalysis) (*model.CareerProfile, error)
	GenerateAvatar(ctx context.Context, career *model.CareerProfile, analysis *model.PetAnalysis) ([]byte, error)
	GenerateIdentity(ctx context.Context, analysis *model.PetAnalysis, career *model.CareerProfile) (*model.IdentityPackage, error)
}

// AvatarAIClient talks to the avatar model gateway. When no base URL is
// configured it falls back to deterministic mock outputs so the full
// pipeline runs in development and tests.
type AvatarAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewAvatarAIClient(cfg *config.AvatarAIConfig) *AvatarAIClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &AvatarAIClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}
}

// IsConfigured returns true if the client has a real endpoint to call.
func (c *AvatarAIClient) IsConfigured() bool {
	return c.baseURL != ""
}

func (c *AvatarAIClient) AnalyzePet(ctx context.Context, image []byte, contentType string) (*model.PetAnalysis, error) {
	if !c.IsConfigured() {
		return mockAnalysis(), nil
	}

	req := struct {
		ImageBase64 string `json:"imageBase64"`
		ContentType string `json:"contentType"`
	}{
		ImageBase64: base64.StdEncoding.EncodeToString(image),
		ContentType: contentType,
	}

	var analysis model.PetAnalysis
	if err := c.post(ctx, "/v1/analyze", req, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (c *AvatarAIClient) MapCareer(ctx context.Context, analysis *model.PetAnalysis) (*model.CareerProfile, error) {
	if !c.IsConfigured() {
		return mockCareer(), nil
	}

	var career model.CareerProfile
	if err := c.post(ctx, "/v1/career", analysis, &career); err != nil {
		return nil, err
	}
	return &career, nil
}

func (c *AvatarAIClient) GenerateAvatar(ctx context.Context, career *model.CareerProfile, analysis *model.PetAnalysis) ([]byte, error) {
	if !c.IsConfigured() {
		return mockAvatarPNG(), nil
	}

	req := struct {
		Career   *model.CareerProfile `json:"careerProfile"`
		Analysis *model.PetAnalysis   `json:"petAnalysis"`
	}{Career: career, Analysis: analysis}

	var resp struct {
		ImageBase64 string `json:"imageBase64"`
	}
	if err := c.post(ctx, "/v1/avatar", req, &resp); err != nil {
		return nil, err
	}

	img, err := base64.StdEncoding.DecodeString(resp.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode avatar image: %w", err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("empty avatar image in response")
	}
	return img, nil
}

func (c *AvatarAIClient) GenerateIdentity(ctx context.Context, analysis *model.PetAnalysis, career *model.CareerProfile) (*model.IdentityPackage, error) {
	if !c.IsConfigured() {
		return mockIdentity(), nil
	}

	req := struct {
		Analysis *model.PetAnalysis   `json:"petAnalysis"`
		Career   *model.CareerProfile `json:"careerProfile"`
	}{Analysis: analysis, Career: career}

	var identity model.IdentityPackage
	if err := c.post(ctx, "/v1/identity", req, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (c *AvatarAIClient) post(ctx context.Context, path string, payload, out interface{}) error {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("avatar AI error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// Mock fallbacks for development when the AI gateway is not configured.

func mockAnalysis() *model.PetAnalysis {
	return &model.PetAnalysis{
		Species:    model.SpeciesDog,
		Breed:      "golden_retriever",
		Expression: "relaxed, attentive",
		Posture:    "upright, ears forward",
		PersonalityDimensions: map[string]int{
			"confidence":         78,
			"leadership":         64,
			"assertiveness":      55,
			"strategic_thinking": 61,
			"creativity":         72,
			"organization":       58,
		},
		DominantTraits: []string{"friendly", "loyal", "curious"},
		Vibe:           "friendly helper",
	}
}

func mockCareer() *model.CareerProfile {
	return &model.CareerProfile{
		JobTitle:          "Senior Product Manager",
		Seniority:         model.SenioritySenior,
		Industry:          "Technology",
		WorkStyle:         "collaborative, people-first",
		AttireStyle:       model.AttireBusinessCasual,
		BackgroundSetting: model.BackgroundOpenOffice,
		ConfidenceScore:   85,
	}
}

func mockIdentity() *model.IdentityPackage {
	return &model.IdentityPackage{
		HumanName: "Greg Cooper",
		JobTitle:  "Senior Product Manager",
		Seniority: model.SenioritySenior,
		Bio:       "People-first product leader who brings boundless energy to every standup.",
		Skills:    []string{"Roadmapping", "Stakeholder Management", "Fetching Requirements"},
		CareerTrajectory: model.CareerTrajectory{
			Past:    "Started as an associate PM chasing every new feature idea",
			Present: "Leads a cross-functional squad with infectious enthusiasm",
			Future:  "Aspiring to VP of Product, or at least to the corner office window",
		},
		SimilarityScore: 85.0,
	}
}

// mockAvatarPNG returns a valid 1x1 PNG so the artifact write path is
// exercised end to end without a real generator.
func mockAvatarPNG() []byte {
	data, _ := base64.StdEncoding.DecodeString(
		"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")
	return data
}
