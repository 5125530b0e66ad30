package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sindi-lab/session-postproc/internal"
)

// JSONLExporter exports processed results in JSONL format (one result per line)
type JSONLExporter struct{}

// Export writes one JSON line per result to w
func (e *JSONLExporter) Export(results []*internal.ProcessedResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for _, result := range results {
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result %s/%s: %w", result.UserID, result.SessionID, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
