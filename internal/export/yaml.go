package export

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sindi-lab/session-postproc/internal"
)

// YAMLExporter exports processed results in YAML format
type YAMLExporter struct{}

// Export writes all results to w as a YAML sequence
func (e *YAMLExporter) Export(results []*internal.ProcessedResult, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(results)
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
