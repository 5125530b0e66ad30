package internal

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
)

// WriteJSON writes a pretty-printed JSON file, creating parent
// directories as needed
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// WriteJSONL writes records to a JSONL file, one JSON object per line
func WriteJSONL[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return &StorageError{Path: path, Op: "write", Err: err}
		}
	}
	return nil
}

// CopyFile copies src to dst, creating parent directories as needed
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return &StorageError{Path: src, Op: "copy", Err: err}
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &StorageError{Path: dst, Op: "copy", Err: err}
	}
	out, err := os.Create(dst)
	if err != nil {
		return &StorageError{Path: dst, Op: "copy", Err: err}
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return &StorageError{Path: dst, Op: "copy", Err: err}
	}
	return nil
}
