package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/repos"
	"github.com/studypath/studypath-backend/internal/requestdata"
	"github.com/studypath/studypath-backend/internal/types"
	"github.com/studypath/studypath-backend/internal/utils"
)

// GeminiClient implements AIClient against the Gemini API. It performs a
// single attempt per call and classifies quota errors as ErrAIRateLimited;
// every round trip is recorded in the ai_call_log table.
type GeminiClient struct {
	log     *logger.Logger
	client  *genai.Client
	model   string
	logRepo repos.AICallLogRepo
}

func NewGeminiClient(log *logger.Logger, logRepo repos.AICallLogRepo) (*GeminiClient, error) {
	apiKey := utils.GetEnv("GEMINI_API_KEY", "", log)
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	model := utils.GetEnv("GEMINI_MODEL", "gemini-2.0-flash", log)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{
		log:     log.With("service", "GeminiClient"),
		client:  client,
		model:   model,
		logRepo: logRepo,
	}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string, wantJSON bool) (string, error) {
	return c.CompleteWithModel(ctx, c.model, prompt, wantJSON)
}

// CompleteWithModel targets a specific model; the chat path uses it to walk
// its fallback chain.
func (c *GeminiClient) CompleteWithModel(ctx context.Context, model, prompt string, wantJSON bool) (string, error) {
	var cfg *genai.GenerateContentConfig
	if wantJSON {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	latency := time.Since(start)

	text := ""
	if err == nil && result != nil {
		text = result.Text()
	}
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			err = fmt.Errorf("%w: %s", ErrAIRateLimited, apiErr.Message)
		}
	}
	c.audit(ctx, model, prompt, text, latency, err)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *GeminiClient) audit(ctx context.Context, model, prompt, output string, latency time.Duration, callErr error) {
	if c.logRepo == nil {
		return
	}
	entry := &types.AICallLog{
		Kind:        "completion",
		Model:       model,
		PromptChars: len(prompt),
		OutputChars: len(output),
		LatencyMs:   latency.Milliseconds(),
	}
	if rd := requestdata.GetRequestData(ctx); rd != nil {
		entry.UserID = rd.UserID
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	if err := c.logRepo.Create(ctx, nil, entry); err != nil {
		c.log.Warn("Failed to write AI call log", "error", err)
	}
}
