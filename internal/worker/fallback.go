package worker

import (
	"encoding/json"
	"strings"
)

// fallbackConfidence marks results substituted for malformed generations.
// Kept below the 0.8 threshold callers use to flag degraded output.
const fallbackConfidence = 0.5

const malformedWarning = "completion response was not valid JSON; fallback result substituted"

// parseOrFallback decodes a completion response into T. A malformed
// response is not an error: the caller's fallback value is returned with
// ok=false so the pipeline stays live and the worker can mark the result
// degraded.
func parseOrFallback[T any](raw string, fallback T) (T, bool) {
	var v T
	if err := json.Unmarshal([]byte(extractJSON(raw)), &v); err != nil {
		return fallback, false
	}
	return v, true
}

// extractJSON tolerates fenced or chatty responses by slicing from the
// first '{' to the last '}'.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return raw
	}
	return raw[start : end+1]
}
