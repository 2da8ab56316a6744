package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompleteWithRetryBacksOffOnRateLimit(t *testing.T) {
	ai := &fakeAI{steps: []fakeAIStep{
		{err: fmt.Errorf("%w: quota", ErrAIRateLimited)},
		{err: fmt.Errorf("%w: quota", ErrAIRateLimited)},
		{text: "ok"},
	}}
	var slept []time.Duration
	sleep := func(d time.Duration) { slept = append(slept, d) }

	text, err := completeWithRetry(context.Background(), ai, "p", true, sleep)
	require.NoError(t, err)
	require.Equal(t, "ok", text)
	require.Equal(t, 3, ai.calls)
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, slept)
}

func TestCompleteWithRetryStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("invalid argument")
	ai := &fakeAI{steps: []fakeAIStep{{err: boom}, {text: "never reached"}}}
	var slept []time.Duration

	_, err := completeWithRetry(context.Background(), ai, "p", false, func(d time.Duration) { slept = append(slept, d) })
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, ai.calls)
	require.Empty(t, slept)
}

func TestCompleteWithRetryRetriesEmptyWithoutBackoff(t *testing.T) {
	ai := &fakeAI{steps: []fakeAIStep{{text: ""}, {text: "second try"}}}
	var slept []time.Duration

	text, err := completeWithRetry(context.Background(), ai, "p", false, func(d time.Duration) { slept = append(slept, d) })
	require.NoError(t, err)
	require.Equal(t, "second try", text)
	require.Equal(t, 2, ai.calls)
	require.Empty(t, slept)
}

func TestCompleteWithRetryGivesUpAfterThreeAttempts(t *testing.T) {
	ai := &fakeAI{steps: []fakeAIStep{
		{err: fmt.Errorf("%w", ErrAIRateLimited)},
		{err: fmt.Errorf("%w", ErrAIRateLimited)},
		{err: fmt.Errorf("%w", ErrAIRateLimited)},
		{text: "never reached"},
	}}

	_, err := completeWithRetry(context.Background(), ai, "p", false, func(time.Duration) {})
	require.ErrorIs(t, err, ErrAIRateLimited)
	require.Equal(t, 3, ai.calls)
}

func TestExtractJSONArrayStripsFences(t *testing.T) {
	raw := "```json\n[{\"a\":1}]\n```"
	require.Equal(t, `[{"a":1}]`, extractJSONArray(raw))

	noisy := "Here you go:\n[{\"a\":1}, {\"a\":2}] hope it helps"
	require.Equal(t, `[{"a":1}, {"a":2}]`, extractJSONArray(noisy))
}

func TestDecodeArrayToleratesGarbage(t *testing.T) {
	type item struct {
		A int `json:"a"`
	}
	require.Nil(t, decodeArray[item]("not json at all"))
	require.Len(t, decodeArray[item](`[{"a":1},{"a":2}]`), 2)
}
