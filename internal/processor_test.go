package internal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sindi-lab/session-postproc/testutil"
)

func testSettings() *Settings {
	return &Settings{
		LLM: LLMSettings{
			Provider:       "openai",
			MaxConcurrency: 2,
			RequestTimeout: 5,
		},
		Processor: ProcessorSettings{
			InputDir:      "data",
			OutputDir:     "post_processed",
			SessionNumber: 1,
		},
	}
}

func TestSplitFolderName(t *testing.T) {
	tests := []struct {
		input       string
		wantUser    string
		wantSession string
	}{
		{"u1_session1", "u1", "session1"},
		{"maria_dewi_session2", "maria_dewi", "session2"},
		{"nounderscores", "nounderscores", "session1"},
	}

	for _, tt := range tests {
		user, session := SplitFolderName(tt.input)
		if user != tt.wantUser || session != tt.wantSession {
			t.Errorf("SplitFolderName(%q) = (%q, %q), want (%q, %q)",
				tt.input, user, session, tt.wantUser, tt.wantSession)
		}
	}
}

func TestProcessFolder(t *testing.T) {
	root := t.TempDir()
	folder := testutil.CreateSessionFolder(t, root, "u1_session1")
	outputRoot := filepath.Join(root, "post_processed")

	processor := NewSessionProcessor(testSettings())
	result, err := processor.ProcessFolder(folder, outputRoot)
	if err != nil {
		t.Fatalf("ProcessFolder() error = %v", err)
	}

	if result.UserID != "u1" || result.SessionID != "session1" {
		t.Errorf("identity = %s/%s, want u1/session1", result.UserID, result.SessionID)
	}

	formatted, _ := result.Metadata["formatted_conversation"].(string)
	if !strings.HasPrefix(formatted, "sindi: Halo! Aku Sindi.") {
		t.Errorf("formatted conversation should open with the greeting, got %q", formatted)
	}
	if !strings.Contains(formatted, "mahasiswa: Akhir-akhir ini aku susah tidur.") {
		t.Errorf("formatted conversation missing user line:\n%s", formatted)
	}

	outputFolder := filepath.Join(outputRoot, "u1_session1")
	for _, name := range []string{
		ResultFileName,
		PHQResponsesFileName,
		MetadataFileName,
		"llm_frames_by_turn.json",
		filepath.Join("facial_analysis", "phq_summary.json"),
		filepath.Join("facial_analysis", "phq_frames.jsonl"),
		filepath.Join("facial_analysis", "llm_summary.json"),
		filepath.Join("facial_analysis", "llm_frames.jsonl"),
	} {
		if _, err := os.Stat(filepath.Join(outputFolder, name)); err != nil {
			t.Errorf("expected output file %s: %v", name, err)
		}
	}

	if result.PHQSummary == nil {
		t.Fatal("PHQSummary is nil")
	}
	if result.PHQSummary.Extra["total_score"] != 9 {
		t.Errorf("phq extra total_score = %v, want 9", result.PHQSummary.Extra["total_score"])
	}
	if result.PHQSummary.Extra["frame_count"] != 2 {
		t.Errorf("phq extra frame_count = %v, want 2", result.PHQSummary.Extra["frame_count"])
	}

	if result.LLMSummary == nil {
		t.Fatal("LLMSummary is nil")
	}
	if result.LLMSummary.Extra["frame_count"] != 3 {
		t.Errorf("llm extra frame_count = %v, want 3", result.LLMSummary.Extra["frame_count"])
	}
}

func TestProcessFolderAlignsFrames(t *testing.T) {
	root := t.TempDir()
	folder := testutil.CreateSessionFolder(t, root, "u1_session1")
	outputRoot := filepath.Join(root, "post_processed")

	processor := NewSessionProcessor(testSettings())
	result, err := processor.ProcessFolder(folder, outputRoot)
	if err != nil {
		t.Fatalf("ProcessFolder() error = %v", err)
	}

	// Fixture frames sit at offsets 2, 8 (turn 1 window) and 16 (turn 2)
	framesPerTurn, ok := result.LLMSummary.Extra["frames_per_turn"].(map[int]int)
	if !ok {
		t.Fatalf("frames_per_turn has type %T", result.LLMSummary.Extra["frames_per_turn"])
	}
	if framesPerTurn[1] != 2 || framesPerTurn[2] != 1 {
		t.Errorf("frames_per_turn = %v, want map[1:2 2:1]", framesPerTurn)
	}
	if result.LLMSummary.Extra["used_sequential_timing"] != nil {
		t.Error("timestamp alignment should not fall back to sequential")
	}
}

func TestProcessFolderMissingConversation(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "u2_session1")
	testutil.WriteJSONFile(t, filepath.Join(folder, PHQResponsesFileName), map[string]any{"total_score": 3})

	processor := NewSessionProcessor(testSettings())
	_, err := processor.ProcessFolder(folder, filepath.Join(root, "post_processed"))
	if err == nil {
		t.Fatal("expected error for missing conversation file")
	}
	var sessionErr *SessionError
	if !errors.As(err, &sessionErr) {
		t.Errorf("error type = %T, want *SessionError", err)
	}
	if sessionErr.Folder != "u2_session1" {
		t.Errorf("failed folder = %q", sessionErr.Folder)
	}
}

func TestProcessFolderWithoutCompanionFiles(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "u3_session1")
	testutil.CreateConversationFile(t, folder, testutil.ConversationTurns())

	processor := NewSessionProcessor(testSettings())
	result, err := processor.ProcessFolder(folder, filepath.Join(root, "post_processed"))
	if err != nil {
		t.Fatalf("ProcessFolder() error = %v", err)
	}
	if result.PHQSummary != nil {
		t.Errorf("PHQSummary = %+v, want nil without phq_analysis.jsonl", result.PHQSummary)
	}
	// The conversation-recording summary still exists and records the
	// missing analysis file
	if result.LLMSummary != nil {
		t.Errorf("LLMSummary = %+v, want nil without llm_analysis.jsonl", result.LLMSummary)
	}
	if _, ok := result.Metadata["phq_responses_file"]; ok {
		t.Error("metadata should not reference files that were never copied")
	}
}
