package services

import (
	"encoding/json"
	"strconv"
	"strings"
)

// extractJSONArray pulls the first JSON array out of a model response,
// tolerating markdown code fences and prose around the payload.
func extractJSONArray(text string) string {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start >= 0 && end > start {
		return cleaned[start : end+1]
	}
	return cleaned
}

// decodeArray unmarshals a model response into a slice, returning nil on any
// parse failure. Malformed output is handled by the fallback policy, never
// surfaced.
func decodeArray[T any](text string) []T {
	var out []T
	if err := json.Unmarshal([]byte(extractJSONArray(text)), &out); err != nil {
		return nil
	}
	return out
}

// asFloat coerces the loosely typed numbers models emit (float, int, or
// numeric string) into a float64. Anything else becomes zero.
func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
