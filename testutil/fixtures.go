package testutil

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

// SessionStart is the recording start timestamp used by all fixtures
const SessionStart = "2025-03-10T09:00:00Z"

// ConversationTurns returns two fully timed conversation turns
func ConversationTurns() []map[string]any {
	return []map[string]any{
		{
			"turn_number":  1,
			"user_message": "Akhir-akhir ini aku susah tidur.",
			"ai_message":   "Maaf mendengarnya. Sudah berapa lama kamu merasakannya?",
			"user_timing":  map[string]any{"start": 0.0, "end": 10.0},
			"ai_timing":    map[string]any{"start": 10.0, "end": 14.0},
			"created_at":   "2025-03-10T09:00:14Z",
		},
		{
			"turn_number":  2,
			"user_message": "Kira-kira dua minggu, rasanya capek terus.",
			"ai_message":   "Terima kasih sudah cerita. Kita bahas pelan-pelan ya.",
			"user_timing":  map[string]any{"start": 14.0, "end": 25.0},
			"ai_timing":    map[string]any{"start": 25.0, "end": 30.0},
			"created_at":   "2025-03-10T09:00:30Z",
		},
	}
}

// FrameLine builds one analysis frame record offset seconds after the
// session start
func FrameLine(offset float64, expression string, intensity float64) map[string]any {
	start, _ := time.Parse(time.RFC3339, SessionStart)
	ts := start.Add(time.Duration(offset * float64(time.Second)))
	return map[string]any{
		"type":      "result",
		"timestamp": ts.UTC().Format("2006-01-02T15:04:05.000000"),
		"analysis": map[string]any{
			"facial_expression": expression,
			"au_intensities":    map[string]any{"AU01": intensity, "AU04": intensity / 2},
		},
	}
}

// MetadataLine builds the leading metadata record of an analysis file
func MetadataLine() map[string]any {
	return map[string]any{
		"type":       "metadata",
		"started_at": SessionStart,
		"fps":        0.5,
	}
}

// CreateConversationFile writes a conversation file with the given turns
func CreateConversationFile(t *testing.T, dir string, turns []map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, "llm_conversation.json")
	WriteJSONFile(t, path, map[string]any{"conversations": turns})
	return path
}

// CreateSessionFolder writes a complete session folder fixture under
// root and returns its path
func CreateSessionFolder(t *testing.T, root, name string) string {
	t.Helper()
	folder := filepath.Join(root, name)

	CreateConversationFile(t, folder, ConversationTurns())

	phqLines := []any{
		MetadataLine(),
		FrameLine(1, "neutral", 0.4),
		FrameLine(3, "sad", 0.8),
	}
	WriteJSONLFile(t, filepath.Join(folder, "phq_analysis.jsonl"), phqLines)

	llmLines := []any{
		MetadataLine(),
		FrameLine(2, "neutral", 0.3),
		FrameLine(8, "sad", 0.6),
		FrameLine(16, "sad", 0.9),
	}
	WriteJSONLFile(t, filepath.Join(folder, "llm_analysis.jsonl"), llmLines)

	responses := map[string]any{
		"total_score":        9,
		"max_possible_score": 27,
		"responses":          phqResponseItems(),
	}
	WriteJSONFile(t, filepath.Join(folder, "phq_responses.json"), responses)

	meta := map[string]any{
		"llm_analysis": map[string]any{"started_at": SessionStart, "frames": 3},
		"phq_analysis": map[string]any{"frames": 2},
	}
	WriteJSONFile(t, filepath.Join(folder, "metadata.json"), meta)

	return folder
}

func phqResponseItems() map[string]any {
	items := map[string]any{}
	for i := 1; i <= 9; i++ {
		items[fmt.Sprintf("Q%d", i)] = (i % 3)
	}
	return items
}

// EvaluationResponse returns a well-formed model response with two
// scored indicators
func EvaluationResponse() map[string]any {
	return map[string]any{
		"analysis": []any{
			map[string]any{
				"indicator": "mood_depresif",
				"context":   "menyebut merasa capek terus",
				"score":     map[string]any{"phq": 2},
			},
			map[string]any{
				"indicator": "gangguan_tidur",
				"context":   "susah tidur dua minggu",
				"score":     map[string]any{"phq": 1},
			},
		},
		"totals": map[string]any{"phq_sum": 3},
		"notes":  "ringkasan singkat",
	}
}
