package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// JSONMarshal marshals a value to JSON for testing
func JSONMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal JSON: %v", err)
	}
	return data
}

// JSONUnmarshal unmarshals JSON for testing
func JSONUnmarshal(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}
}

// WriteFile writes a file for testing, creating parent directories
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// WriteJSONFile writes a value as a JSON file for testing
func WriteJSONFile(t *testing.T, path string, v any) {
	t.Helper()
	WriteFile(t, path, JSONMarshal(t, v))
}

// WriteJSONLFile writes one JSON line per record for testing
func WriteJSONLFile(t *testing.T, path string, records []any) {
	t.Helper()
	var data []byte
	for _, record := range records {
		data = append(data, JSONMarshal(t, record)...)
		data = append(data, '\n')
	}
	WriteFile(t, path, data)
}

// ReadJSONFile reads and unmarshals a JSON file for testing
func ReadJSONFile(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	JSONUnmarshal(t, data, v)
}
