package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Analyzer produces a Result for free-text symptoms.
type Analyzer interface {
	Analyze(ctx context.Context, symptoms string) (*Result, error)
}

type aiRequest struct {
	Symptoms string `json:"symptoms"`
}

type aiResponse struct {
	Specialization     string  `json:"specialization"`
	Urgency            Urgency `json:"urgency"`
	RecommendedDoctors []int64 `json:"recommended_doctors"`
	Advice             string  `json:"advice"`
}

// AIClient calls the external symptom analysis service.
type AIClient struct {
	http   *resty.Client
	url    string
	logger zerolog.Logger
}

func NewAIClient(url string, timeout time.Duration, logger zerolog.Logger) *AIClient {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &AIClient{http: client, url: url, logger: logger}
}

// Analyze posts the symptoms to the AI service. Transport failures and
// timeouts are errors; a non-2xx answer yields the generic result.
func (c *AIClient) Analyze(ctx context.Context, symptoms string) (*Result, error) {
	var body aiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(aiRequest{Symptoms: symptoms}).
		SetResult(&body).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("call AI service: %w", err)
	}
	if !resp.IsSuccess() {
		c.logger.Warn().Int("status", resp.StatusCode()).Msg("AI service returned non-success status")
		return genericResult(), nil
	}

	res := &Result{
		SuggestedSpecialization: body.Specialization,
		Urgency:                 body.Urgency,
		RecommendedDoctors:      body.RecommendedDoctors,
		Advice:                  body.Advice,
	}
	if res.SuggestedSpecialization == "" {
		res.SuggestedSpecialization = DefaultSpecialization
	}
	if !res.Urgency.Valid() {
		res.Urgency = UrgencyMedium
	}
	if res.RecommendedDoctors == nil {
		res.RecommendedDoctors = []int64{}
	}
	return res, nil
}
