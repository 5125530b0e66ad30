package internal

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sindi-lab/session-postproc/testutil"
)

func TestLoadTurns(t *testing.T) {
	dir := t.TempDir()
	path := testutil.CreateConversationFile(t, dir, testutil.ConversationTurns())

	turns, err := LoadTurns(path)
	if err != nil {
		t.Fatalf("LoadTurns() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].TurnNumber == nil || *turns[0].TurnNumber != 1 {
		t.Errorf("first turn number = %v, want 1", turns[0].TurnNumber)
	}
	if turns[0].CreatedAt == "" {
		t.Error("expected created_at to be preserved by LoadTurns")
	}
}

func TestLoadTurnsMissingFile(t *testing.T) {
	_, err := LoadTurns(filepath.Join(t.TempDir(), "llm_conversation.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Errorf("error type = %T, want *StorageError", err)
	}
}

func TestLoadTurnsWithoutCreatedAt(t *testing.T) {
	dir := t.TempDir()
	path := testutil.CreateConversationFile(t, dir, testutil.ConversationTurns())

	turns, err := LoadTurnsWithoutCreatedAt(path)
	if err != nil {
		t.Fatalf("LoadTurnsWithoutCreatedAt() error = %v", err)
	}
	for i, turn := range turns {
		if turn.CreatedAt != "" {
			t.Errorf("turn %d retained created_at %q", i, turn.CreatedAt)
		}
	}
}

func TestTransformTurns(t *testing.T) {
	turns := []ConversationTurn{
		{UserMessage: "halo", AIMessage: "hai"},
		{UserMessage: "apa kabar"},
		{AIMessage: "baik"},
		{},
	}

	t.Run("ai first", func(t *testing.T) {
		messages := TransformTurns(turns)
		want := []Message{
			{Role: RoleAI, Content: "hai"},
			{Role: RoleUser, Content: "halo"},
			{Role: RoleUser, Content: "apa kabar"},
			{Role: RoleAI, Content: "baik"},
		}
		assertMessages(t, messages, want)
	})

	t.Run("user first", func(t *testing.T) {
		messages := TransformTurnsUserFirst(turns)
		want := []Message{
			{Role: RoleUser, Content: "halo"},
			{Role: RoleAI, Content: "hai"},
			{Role: RoleUser, Content: "apa kabar"},
			{Role: RoleAI, Content: "baik"},
		}
		assertMessages(t, messages, want)
	})
}

func assertMessages(t *testing.T, got, want []Message) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		wantErr  bool
	}{
		{"valid", []Message{{Role: RoleUser, Content: "halo"}}, false},
		{"empty list", nil, false},
		{"blank content", []Message{{Role: RoleUser, Content: "   "}}, true},
		{"missing role and content", []Message{{}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessages(tt.messages)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMessages() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var formatErr *FormatError
				if !errors.As(err, &formatErr) {
					t.Errorf("error type = %T, want *FormatError", err)
				}
			}
		})
	}
}

func TestFormatMessages(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "Akhir-akhir ini aku susah tidur."},
		{Role: RoleAI, Content: "Sudah berapa lama?"},
	}

	got, err := FormatMessages(messages, false)
	if err != nil {
		t.Fatalf("FormatMessages() error = %v", err)
	}

	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], LabelAI+": Halo! Aku Sindi.") {
		t.Errorf("transcript should open with the greeting, got %q", lines[0])
	}
	if lines[1] != "mahasiswa: Akhir-akhir ini aku susah tidur." {
		t.Errorf("line 1 = %q", lines[1])
	}
	if lines[2] != "sindi: Sudah berapa lama?" {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestFormatMessagesWithTurnNumbers(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "halo"},
		{Role: RoleAI, Content: "hai"},
	}

	got, err := FormatMessages(messages, true)
	if err != nil {
		t.Fatalf("FormatMessages() error = %v", err)
	}

	lines := strings.Split(got, "\n")
	if lines[1] != "[Turn 1] mahasiswa: halo" {
		t.Errorf("line 1 = %q", lines[1])
	}
	if lines[2] != "[Turn 2] sindi: hai" {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestFormatMessagesInvalidContent(t *testing.T) {
	_, err := FormatMessages([]Message{{Role: RoleUser, Content: " "}}, false)
	if err == nil {
		t.Fatal("expected error for blank content")
	}
}

func TestFormatConversationFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.CreateConversationFile(t, dir, testutil.ConversationTurns())

	got, err := FormatConversationFile(path)
	if err != nil {
		t.Fatalf("FormatConversationFile() error = %v", err)
	}

	lines := strings.Split(got, "\n")
	// Greeting + two messages per turn, user first
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	if !strings.HasPrefix(lines[1], "mahasiswa: ") {
		t.Errorf("turn 1 should start with the user message, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "sindi: ") {
		t.Errorf("turn 1 reply should follow, got %q", lines[2])
	}
}

func TestMessageStats(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		stats := MessageStats(nil)
		if stats.Total != 0 || stats.AvgLength != 0 {
			t.Errorf("MessageStats(nil) = %+v, want zeroes", stats)
		}
	})

	t.Run("counts and average", func(t *testing.T) {
		messages := []Message{
			{Role: RoleUser, Content: "abcd"},
			{Role: RoleAI, Content: "ab"},
			{Role: RoleUser, Content: "abc"},
		}
		stats := MessageStats(messages)
		if stats.UserMessages != 2 || stats.AIMessages != 1 {
			t.Errorf("role counts = %d user, %d ai", stats.UserMessages, stats.AIMessages)
		}
		if stats.TotalChars != 9 {
			t.Errorf("TotalChars = %d, want 9", stats.TotalChars)
		}
		if stats.AvgLength != 3 {
			t.Errorf("AvgLength = %v, want 3", stats.AvgLength)
		}
	})

	t.Run("multibyte content counts runes", func(t *testing.T) {
		stats := MessageStats([]Message{{Role: RoleUser, Content: "héllo"}})
		if stats.TotalChars != 5 {
			t.Errorf("TotalChars = %d, want 5", stats.TotalChars)
		}
	})
}

func TestPHQSeverity(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "none"},
		{4, "none"},
		{5, "mild"},
		{9, "mild"},
		{10, "moderate"},
		{14, "moderate"},
		{15, "moderately_severe"},
		{19, "moderately_severe"},
		{20, "severe"},
		{27, "severe"},
	}

	for _, tt := range tests {
		if got := PHQSeverity(tt.score); got != tt.want {
			t.Errorf("PHQSeverity(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
