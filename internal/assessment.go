package internal

import (
	"bufio"
	"encoding/json"
	"os"
)

// LoadAssessmentSummary reads a JSONL assessment file and returns a
// lightweight summary: the first metadata record, the total row count,
// and the count of data rows. A missing file yields nil. Rows that fail
// to parse still count toward total_rows but contribute no metadata.
func LoadAssessmentSummary(path string) (*AssessmentSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	defer func() { _ = f.Close() }()

	var metadata map[string]any
	totalRows := 0

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		totalRows++
		if metadata != nil {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			continue
		}
		if t, _ := payload["type"].(string); t == LineTypeMetadata {
			metadata = payload
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}

	dataRows := totalRows
	if metadata != nil {
		dataRows--
	}
	if dataRows < 0 {
		dataRows = 0
	}
	return &AssessmentSummary{
		Metadata:  metadata,
		TotalRows: totalRows,
		DataRows:  dataRows,
	}, nil
}

// LoadJSON reads an optional companion JSON file. Both a missing file
// and unparseable content yield nil, per the missing-input policy.
func LoadJSON(path string) map[string]any {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		LogDebug("skipping unparseable JSON file %s: %v", path, err)
		return nil
	}
	return payload
}

// LoadPHQResponses reads phq_responses.json. A missing or unparseable
// file yields nil.
func LoadPHQResponses(path string) *PHQResponses {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var responses PHQResponses
	if err := json.Unmarshal(data, &responses); err != nil {
		LogDebug("skipping unparseable PHQ responses %s: %v", path, err)
		return nil
	}
	return &responses
}
