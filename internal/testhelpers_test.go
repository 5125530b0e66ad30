package internal

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func intPtr(v int) *int {
	return &v
}

func flexPtr(v float64) *FlexFloat {
	return &FlexFloat{Value: v, Valid: true}
}

// timedTurn builds a turn with a user speaking window
func timedTurn(number int, start, end float64) ConversationTurn {
	return ConversationTurn{
		TurnNumber:  intPtr(number),
		UserMessage: "pesan pengguna",
		AIMessage:   "balasan sindi",
		UserTiming:  &TurnTiming{Start: flexPtr(start), End: flexPtr(end)},
	}
}

// writeLines writes raw lines joined with newlines
func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// frameLine renders a result frame record as JSON
func frameLine(timestamp, expression string, au float64) string {
	return `{"type":"result","timestamp":"` + timestamp + `","analysis":{"facial_expression":"` + expression +
		`","au_intensities":{"AU01":` + strconv.FormatFloat(au, 'f', -1, 64) + `}}}`
}
