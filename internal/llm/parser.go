package llm

import (
	"encoding/json"
	"strings"
)

// stripCodeFence removes a leading markdown fence such as ```json ... ```
func stripCodeFence(text string) string {
	stripped := strings.TrimSpace(text)
	if !strings.HasPrefix(stripped, "```") {
		return stripped
	}
	if _, rest, found := strings.Cut(stripped, "\n"); found {
		stripped = rest
	}
	return strings.TrimSpace(strings.TrimRight(stripped, "`"))
}

// collapseWhitespace joins all whitespace-separated tokens with single
// spaces
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeText turns raw LLM output text into structured JSON where
// possible. Code fences are stripped first; when the remainder still
// fails to parse the whitespace-normalized string is returned as a
// best effort, leaving the caller to decide whether that is an error.
func NormalizeText(text string) any {
	stripped := stripCodeFence(text)
	var parsed any
	if err := json.Unmarshal([]byte(stripped), &parsed); err == nil {
		return parsed
	}
	return collapseWhitespace(stripped)
}

// contentChunk is one element of a chunked response content list
type contentChunk struct {
	Text string `json:"text"`
}

// NormalizeContent normalizes a response content field that may be a
// plain string or a list of text chunks. Chunks are concatenated
// before normalization.
func NormalizeContent(raw json.RawMessage) any {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return NormalizeText(text)
	}
	var chunks []json.RawMessage
	if err := json.Unmarshal(raw, &chunks); err == nil {
		parts := make([]string, 0, len(chunks))
		for _, c := range chunks {
			var chunk contentChunk
			if err := json.Unmarshal(c, &chunk); err == nil && chunk.Text != "" {
				parts = append(parts, chunk.Text)
				continue
			}
			var s string
			if err := json.Unmarshal(c, &s); err == nil {
				parts = append(parts, s)
			}
		}
		combined := collapseWhitespace(strings.Join(parts, " "))
		if combined == "" {
			return ""
		}
		return NormalizeText(combined)
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err == nil {
		return parsed
	}
	return collapseWhitespace(string(raw))
}

// EnsureTotals recomputes the totals block of a parsed evaluation by
// summing every numeric sub-score across all analyzed indicators,
// keyed by score dimension with a _sum suffix. Any totals embedded in
// the input are discarded, which makes the recompute idempotent.
func EnsureTotals(value any) any {
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}
	analysis, ok := m["analysis"].([]any)
	if !ok {
		return value
	}
	totals := map[string]any{}
	for _, item := range analysis {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		score, ok := entry["score"].(map[string]any)
		if !ok {
			continue
		}
		for dim, v := range score {
			num, ok := v.(float64)
			if !ok {
				continue
			}
			key := dim + "_sum"
			prev, _ := totals[key].(float64)
			totals[key] = prev + num
		}
	}
	m["totals"] = totals
	return m
}
