package export

import (
	"encoding/json"
	"io"

	"github.com/sindi-lab/session-postproc/internal"
)

// JSONExporter exports processed results as a pretty-printed JSON array
type JSONExporter struct{}

// Export writes all results to w in JSON format
func (e *JSONExporter) Export(results []*internal.ProcessedResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(results)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
