package services

import (
	"context"
	"errors"
	"time"
)

// AIClient is the text-completion oracle boundary. Implementations perform a
// single attempt; retry policy belongs to the caller.
type AIClient interface {
	// Complete sends one prompt and returns the raw response text. With
	// wantJSON the model is asked for a JSON-only response, but the output
	// is still untrusted and must be validated by the caller.
	Complete(ctx context.Context, prompt string, wantJSON bool) (string, error)
}

// ModelAIClient is implemented by clients that can target a specific model.
// Callers walking a model fallback chain assert to it and fall back to
// Complete when the assertion fails.
type ModelAIClient interface {
	CompleteWithModel(ctx context.Context, model, prompt string, wantJSON bool) (string, error)
}

// ErrAIRateLimited is wrapped into errors the oracle returns on quota
// exhaustion (HTTP 429 / RESOURCE_EXHAUSTED). It is the only error kind the
// retry loop backs off on.
var ErrAIRateLimited = errors.New("ai rate limited")

const aiMaxAttempts = 3

// completeWithRetry runs up to three serial attempts against the oracle.
// Rate-limit errors back off 2^attempt seconds before the next try; any
// other error aborts immediately. sleep is injectable for tests.
func completeWithRetry(ctx context.Context, ai AIClient, prompt string, wantJSON bool, sleep func(time.Duration)) (string, error) {
	if sleep == nil {
		sleep = time.Sleep
	}
	var lastErr error
	for attempt := 1; attempt <= aiMaxAttempts; attempt++ {
		text, err := ai.Complete(ctx, prompt, wantJSON)
		if err == nil && text != "" {
			return text, nil
		}
		if err == nil {
			// Empty completion; try again without backing off.
			lastErr = errors.New("empty response")
			continue
		}
		lastErr = err
		if !errors.Is(err, ErrAIRateLimited) {
			break
		}
		if attempt < aiMaxAttempts {
			sleep(time.Duration(1<<attempt) * time.Second)
		}
	}
	return "", lastErr
}
