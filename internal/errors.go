package internal

import "fmt"

// StorageError represents errors accessing input or output files
type StorageError struct {
	Path string
	Op   string // "open", "read", "write", "copy"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// LineError represents a malformed record in a JSONL stream. Malformed
// lines are skipped during aggregation; the error type exists for
// callers that want to surface them.
type LineError struct {
	Path string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line error %s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// FormatError represents an invalid message list passed to the
// conversation formatter
type FormatError struct {
	Index  int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error: message %d: %s", e.Index, e.Reason)
}

// SessionError represents a per-folder processing failure. It is caught
// at the batch boundary and recorded; the batch continues.
type SessionError struct {
	Folder string
	Err    error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session error [%s]: %v", e.Folder, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// EvalError represents a failed LLM scoring call for a single model
type EvalError struct {
	Model string
	Err   error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluation error [%s]: %v", e.Model, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}
