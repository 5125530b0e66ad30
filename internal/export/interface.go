package export

import (
	"fmt"
	"io"

	"github.com/sindi-lab/session-postproc/internal"
)

// Exporter defines the interface for all combined-results export formats
type Exporter interface {
	Export(results []*internal.ProcessedResult, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, yaml, json)", format)
	}
}
