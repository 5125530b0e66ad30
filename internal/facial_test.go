package internal

import (
	"math"
	"path/filepath"
	"testing"
)

func TestParseISOTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"rfc3339 with Z", "2025-03-10T09:00:00Z", true},
		{"rfc3339 with offset", "2025-03-10T09:00:00+07:00", true},
		{"naive with microseconds", "2025-03-10T09:00:02.345600", true},
		{"naive with space separator", "2025-03-10 09:00:02.345600", true},
		{"empty", "", false},
		{"garbage", "not-a-timestamp", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseISOTimestamp(tt.input)
			if ok != tt.valid {
				t.Errorf("ParseISOTimestamp(%q) valid = %v, want %v", tt.input, ok, tt.valid)
			}
		})
	}
}

func TestUserTimingWindows(t *testing.T) {
	turns := []ConversationTurn{
		timedTurn(2, 14, 25),
		timedTurn(1, 0, 10),
		// no timing, no end, end before start, no turn number: all skipped
		{TurnNumber: intPtr(3)},
		{TurnNumber: intPtr(4), UserTiming: &TurnTiming{Start: flexPtr(5)}},
		{TurnNumber: intPtr(5), UserTiming: &TurnTiming{Start: flexPtr(9), End: flexPtr(3)}},
		{UserTiming: &TurnTiming{Start: flexPtr(1), End: flexPtr(2)}},
	}

	windows := UserTimingWindows(turns)
	if len(windows) != 2 {
		t.Fatalf("UserTimingWindows() returned %d windows, want 2", len(windows))
	}
	if windows[0].TurnNumber != 1 || windows[1].TurnNumber != 2 {
		t.Errorf("windows not sorted by start: got turns %d, %d", windows[0].TurnNumber, windows[1].TurnNumber)
	}
	if windows[0].Start != 0 || windows[0].End != 10 {
		t.Errorf("window 0 = [%v, %v], want [0, 10]", windows[0].Start, windows[0].End)
	}
}

func TestUserTimingWindowsInvalidFlexValues(t *testing.T) {
	turns := []ConversationTurn{
		{
			TurnNumber: intPtr(1),
			UserTiming: &TurnTiming{Start: &FlexFloat{}, End: flexPtr(10)},
		},
	}
	if windows := UserTimingWindows(turns); len(windows) != 0 {
		t.Errorf("expected invalid timing to be excluded, got %d windows", len(windows))
	}
}

func TestCollectPHQFramesMissingFile(t *testing.T) {
	summary, frames, err := CollectPHQFrames(filepath.Join(t.TempDir(), "phq_analysis.jsonl"))
	if err != nil {
		t.Fatalf("CollectPHQFrames() error = %v", err)
	}
	if summary != nil || frames != nil {
		t.Errorf("expected nil summary and frames for missing file, got %v, %v", summary, frames)
	}
}

func TestCollectPHQFramesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phq_analysis.jsonl")
	writeLines(t, path, `{"type":"metadata","started_at":"2025-03-10T09:00:00Z"}`)

	summary, frames, err := CollectPHQFrames(path)
	if err != nil {
		t.Fatalf("CollectPHQFrames() error = %v", err)
	}
	if summary == nil {
		t.Fatal("expected zero summary, got nil")
	}
	if summary.FrameCount != 0 {
		t.Errorf("FrameCount = %d, want 0", summary.FrameCount)
	}
	if len(frames) != 0 {
		t.Errorf("expected no frames, got %d", len(frames))
	}
}

func TestCollectPHQFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phq_analysis.jsonl")
	writeLines(t, path,
		`{"type":"metadata","started_at":"2025-03-10T09:00:00Z"}`,
		frameLine("2025-03-10T09:00:01Z", "neutral", 0.5),
		`not json at all`,
		frameLine("2025-03-10T09:00:03Z", "sad", 0.25),
		frameLine("2025-03-10T09:00:05Z", "sad", 0.3),
	)

	summary, frames, err := CollectPHQFrames(path)
	if err != nil {
		t.Fatalf("CollectPHQFrames() error = %v", err)
	}
	if summary.FrameCount != 3 {
		t.Errorf("FrameCount = %d, want 3", summary.FrameCount)
	}
	if summary.EmotionDistribution["sad"] != 2 || summary.EmotionDistribution["neutral"] != 1 {
		t.Errorf("EmotionDistribution = %v", summary.EmotionDistribution)
	}
	if got := summary.AverageAUIntensities["AU01"]; got != 0.35 {
		t.Errorf("average AU01 = %v, want 0.35", got)
	}
	for i, frame := range frames {
		if frame.Index != i {
			t.Errorf("frame %d has index %d", i, frame.Index)
		}
	}
}

func TestCollectPHQFramesAverageRounding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phq_analysis.jsonl")
	writeLines(t, path,
		frameLine("2025-03-10T09:00:01Z", "neutral", 0.1),
		frameLine("2025-03-10T09:00:02Z", "neutral", 0.2),
		frameLine("2025-03-10T09:00:03Z", "neutral", 0.2),
	)

	summary, _, err := CollectPHQFrames(path)
	if err != nil {
		t.Fatalf("CollectPHQFrames() error = %v", err)
	}
	// 0.5/3 rounds to 0.1667 at four decimals
	if got := summary.AverageAUIntensities["AU01"]; got != 0.1667 {
		t.Errorf("average AU01 = %v, want 0.1667", got)
	}
}

func TestCollectLLMFramesMissingFile(t *testing.T) {
	turns := []ConversationTurn{timedTurn(1, 0, 10)}
	summary, frames, err := CollectLLMFrames(filepath.Join(t.TempDir(), "llm_analysis.jsonl"), turns, "2025-03-10T09:00:00Z")
	if err != nil {
		t.Fatalf("CollectLLMFrames() error = %v", err)
	}
	if summary.Note != NoteAnalysisFileMissing {
		t.Errorf("Note = %q, want %q", summary.Note, NoteAnalysisFileMissing)
	}
	if frames != nil {
		t.Errorf("expected no frames, got %d", len(frames))
	}
}

func TestCollectLLMFramesNoWindows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_analysis.jsonl")
	writeLines(t, path, frameLine("2025-03-10T09:00:01Z", "neutral", 0.5))

	summary, _, err := CollectLLMFrames(path, []ConversationTurn{{TurnNumber: intPtr(1)}}, "2025-03-10T09:00:00Z")
	if err != nil {
		t.Fatalf("CollectLLMFrames() error = %v", err)
	}
	if summary.Note != NoteMissingUserTiming {
		t.Errorf("Note = %q, want %q", summary.Note, NoteMissingUserTiming)
	}
}

func TestCollectLLMFramesNoFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_analysis.jsonl")
	writeLines(t, path, `{"type":"metadata","started_at":"2025-03-10T09:00:00Z"}`)

	summary, _, err := CollectLLMFrames(path, []ConversationTurn{timedTurn(1, 0, 10)}, "2025-03-10T09:00:00Z")
	if err != nil {
		t.Fatalf("CollectLLMFrames() error = %v", err)
	}
	if summary.Note != NoteNoFramesAvailable {
		t.Errorf("Note = %q, want %q", summary.Note, NoteNoFramesAvailable)
	}
}

func TestCollectLLMFramesTimestampAlignment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_analysis.jsonl")
	writeLines(t, path,
		`{"type":"metadata","started_at":"2025-03-10T09:00:00Z"}`,
		frameLine("2025-03-10T09:00:02Z", "neutral", 0.4),
		frameLine("2025-03-10T09:00:08Z", "sad", 0.6),
		frameLine("2025-03-10T09:00:12Z", "sad", 0.5), // between windows, dropped
		frameLine("2025-03-10T09:00:16Z", "sad", 0.8),
		frameLine("2025-03-10T08:59:50Z", "neutral", 0.1), // before start, dropped
	)

	turns := []ConversationTurn{timedTurn(1, 0, 10), timedTurn(2, 14, 25)}
	summary, frames, err := CollectLLMFrames(path, turns, "2025-03-10T09:00:00Z")
	if err != nil {
		t.Fatalf("CollectLLMFrames() error = %v", err)
	}

	if summary.UsedSequentialTiming {
		t.Error("expected timestamp alignment, got sequential fallback")
	}
	if summary.Note != "" {
		t.Errorf("Note = %q, want empty", summary.Note)
	}
	if summary.FrameCount != 3 {
		t.Errorf("FrameCount = %d, want 3", summary.FrameCount)
	}
	if summary.FramesPerTurn[1] != 2 || summary.FramesPerTurn[2] != 1 {
		t.Errorf("FramesPerTurn = %v, want map[1:2 2:1]", summary.FramesPerTurn)
	}

	wantOffsets := []float64{2, 8, 16}
	wantTurns := []int{1, 1, 2}
	if len(frames) != len(wantOffsets) {
		t.Fatalf("got %d frames, want %d", len(frames), len(wantOffsets))
	}
	for i, frame := range frames {
		if frame.OffsetSeconds != wantOffsets[i] || frame.TurnNumber != wantTurns[i] {
			t.Errorf("frame %d = turn %d offset %v, want turn %d offset %v",
				i, frame.TurnNumber, frame.OffsetSeconds, wantTurns[i], wantOffsets[i])
		}
	}
}

func TestCollectLLMFramesOverlappingWindowsFirstMatchWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_analysis.jsonl")
	writeLines(t, path, frameLine("2025-03-10T09:00:05Z", "neutral", 0.5))

	turns := []ConversationTurn{timedTurn(2, 3, 12), timedTurn(1, 0, 10)}
	summary, frames, err := CollectLLMFrames(path, turns, "2025-03-10T09:00:00Z")
	if err != nil {
		t.Fatalf("CollectLLMFrames() error = %v", err)
	}
	if len(frames) != 1 || frames[0].TurnNumber != 1 {
		t.Fatalf("expected frame assigned to turn 1 (earliest window), got %+v", frames)
	}
	if summary.FramesPerTurn[1] != 1 {
		t.Errorf("FramesPerTurn = %v", summary.FramesPerTurn)
	}
}

func TestCollectLLMFramesOffsetRounding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_analysis.jsonl")
	writeLines(t, path, frameLine("2025-03-10T09:00:02.345678Z", "neutral", 0.5))

	summary, frames, err := CollectLLMFrames(path, []ConversationTurn{timedTurn(1, 0, 10)}, "2025-03-10T09:00:00Z")
	if err != nil {
		t.Fatalf("CollectLLMFrames() error = %v", err)
	}
	if summary.FrameCount != 1 {
		t.Fatalf("FrameCount = %d, want 1", summary.FrameCount)
	}
	if frames[0].OffsetSeconds != 2.346 {
		t.Errorf("OffsetSeconds = %v, want 2.346", frames[0].OffsetSeconds)
	}
}

func TestCollectLLMFramesSequentialWithoutTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_analysis.jsonl")
	lines := make([]string, 6)
	for i := range lines {
		lines[i] = `{"type":"result","analysis":{"facial_expression":"neutral","au_intensities":{"AU01":0.5}}}`
	}
	writeLines(t, path, lines...)

	turns := []ConversationTurn{timedTurn(1, 0, 10), timedTurn(2, 14, 25)}
	summary, frames, err := CollectLLMFrames(path, turns, "2025-03-10T09:00:00Z")
	if err != nil {
		t.Fatalf("CollectLLMFrames() error = %v", err)
	}

	if !summary.UsedSequentialTiming {
		t.Error("expected sequential fallback")
	}
	// Frames never timestamp-aligned, so no fallback note is set
	if summary.Note != "" {
		t.Errorf("Note = %q, want empty", summary.Note)
	}
	if summary.FrameCount != 6 {
		t.Errorf("FrameCount = %d, want 6", summary.FrameCount)
	}
	if summary.FramesPerTurn[1]+summary.FramesPerTurn[2] != 6 {
		t.Errorf("FramesPerTurn = %v, turns should account for all 6 frames", summary.FramesPerTurn)
	}

	// Span [0, 25] over 6 frames: offsets step by 5
	wantOffsets := []float64{0, 5, 10, 15, 20, 25}
	wantTurns := []int{1, 1, 1, 2, 2, 2}
	for i, frame := range frames {
		if math.Abs(frame.OffsetSeconds-wantOffsets[i]) > 1e-9 || frame.TurnNumber != wantTurns[i] {
			t.Errorf("frame %d = turn %d offset %v, want turn %d offset %v",
				i, frame.TurnNumber, frame.OffsetSeconds, wantTurns[i], wantOffsets[i])
		}
	}
}

func TestCollectLLMFramesSequentialFallbackNote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_analysis.jsonl")
	// Valid timestamps that land far outside every window
	writeLines(t, path,
		frameLine("2025-03-10T09:10:00Z", "neutral", 0.5),
		frameLine("2025-03-10T09:11:00Z", "sad", 0.7),
	)

	turns := []ConversationTurn{timedTurn(1, 0, 10), timedTurn(2, 14, 25)}
	summary, frames, err := CollectLLMFrames(path, turns, "2025-03-10T09:00:00Z")
	if err != nil {
		t.Fatalf("CollectLLMFrames() error = %v", err)
	}

	if !summary.UsedSequentialTiming {
		t.Error("expected sequential fallback")
	}
	if summary.Note != NoteSequentialFallback {
		t.Errorf("Note = %q, want %q", summary.Note, NoteSequentialFallback)
	}
	if len(frames) != 2 {
		t.Errorf("got %d frames, want 2", len(frames))
	}
}

func TestCollectLLMFramesDegenerateSpan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_analysis.jsonl")
	writeLines(t, path,
		`{"type":"result","analysis":{"facial_expression":"neutral","au_intensities":{"AU01":0.5}}}`,
		`{"type":"result","analysis":{"facial_expression":"sad","au_intensities":{"AU01":0.5}}}`,
	)

	turns := []ConversationTurn{timedTurn(1, 5, 5)}
	summary, frames, err := CollectLLMFrames(path, turns, "")
	if err != nil {
		t.Fatalf("CollectLLMFrames() error = %v", err)
	}
	if summary.FrameCount != 2 {
		t.Errorf("FrameCount = %d, want 2", summary.FrameCount)
	}
	for _, frame := range frames {
		if frame.TurnNumber != 1 {
			t.Errorf("frame assigned to turn %d, want 1", frame.TurnNumber)
		}
	}
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		value  float64
		places int
		want   float64
	}{
		{1.23456, 3, 1.235},
		{1.23444, 3, 1.234},
		{0.5 / 3.0, 4, 0.1667},
		{2, 3, 2},
	}
	for _, tt := range tests {
		if got := roundTo(tt.value, tt.places); got != tt.want {
			t.Errorf("roundTo(%v, %d) = %v, want %v", tt.value, tt.places, got, tt.want)
		}
	}
}
