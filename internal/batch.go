package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrNothingToProcess is returned when a data folder contains no
// session folders matching the requested session number
var ErrNothingToProcess = errors.New("no session folders found")

// Folder processing statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// FolderResult records the outcome for one session folder
type FolderResult struct {
	Folder     string `json:"folder"`
	Status     string `json:"status"`
	OutputPath string `json:"output_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BatchResult aggregates a whole batch run
type BatchResult struct {
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Total     int            `json:"total"`
	Results   []FolderResult `json:"results"`
}

// BatchProcessor traverses a data folder of session directories and
// processes each one. A failure in one session is recorded and the
// batch continues.
type BatchProcessor struct {
	settings  *Settings
	processor *SessionProcessor
}

// NewBatchProcessor creates a BatchProcessor
func NewBatchProcessor(settings *Settings) *BatchProcessor {
	return &BatchProcessor{
		settings:  settings,
		processor: NewSessionProcessor(settings),
	}
}

// SessionFolders lists directories under dataFolder matching
// *_session<N>, sorted by name
func SessionFolders(dataFolder string, sessionNumber int) ([]string, error) {
	pattern := filepath.Join(dataFolder, fmt.Sprintf("*_session%d", sessionNumber))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	var folders []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.IsDir() {
			continue
		}
		folders = append(folders, m)
	}
	sort.Strings(folders)
	return folders, nil
}

// ProcessDataFolder processes every matching session folder under
// dataFolder, writing outputs under outputFolder. It returns
// ErrNothingToProcess when no session folders are found; individual
// session failures are recorded in the result, never returned.
func (b *BatchProcessor) ProcessDataFolder(dataFolder, outputFolder string, sessionNumber int) (*BatchResult, error) {
	if err := os.MkdirAll(outputFolder, 0o755); err != nil {
		return nil, &StorageError{Path: outputFolder, Op: "write", Err: err}
	}

	folders, err := SessionFolders(dataFolder, sessionNumber)
	if err != nil {
		return nil, err
	}
	if len(folders) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNothingToProcess, dataFolder)
	}

	batch := &BatchResult{Total: len(folders)}
	for _, folder := range folders {
		name := filepath.Base(folder)
		result, err := b.processor.ProcessFolder(folder, outputFolder)
		if err != nil {
			batch.Failed++
			batch.Results = append(batch.Results, FolderResult{
				Folder: name,
				Status: StatusFailed,
				Error:  err.Error(),
			})
			PrintError(fmt.Sprintf("Failed %s: %v", name, err))
			continue
		}
		outputPath := filepath.Join(outputFolder, name, ResultFileName)
		batch.Processed++
		batch.Results = append(batch.Results, FolderResult{
			Folder:     name,
			Status:     StatusSuccess,
			OutputPath: filepath.ToSlash(outputPath),
		})
		LogDebug("processed %s -> %s (user=%s session=%s)", name, outputPath, result.UserID, result.SessionID)
		PrintSuccess(fmt.Sprintf("Processed %s", name))
	}
	return batch, nil
}
