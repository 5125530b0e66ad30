package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Well-known file names inside a session folder
const (
	ConversationFileName = "llm_conversation.json"
	PHQAnalysisFileName  = "phq_analysis.jsonl"
	LLMAnalysisFileName  = "llm_analysis.jsonl"
	PHQResponsesFileName = "phq_responses.json"
	MetadataFileName     = "metadata.json"
	ResultFileName       = "analysis_result.json"
)

// SessionProcessor turns one session folder into a ProcessedResult and
// its derived artifacts. It holds no per-session state, so a single
// instance is safe to use across sessions concurrently.
type SessionProcessor struct {
	settings *Settings
}

// NewSessionProcessor creates a SessionProcessor
func NewSessionProcessor(settings *Settings) *SessionProcessor {
	return &SessionProcessor{settings: settings}
}

// SplitFolderName splits a session folder name of the form
// <user_id>_<session_id> at the last underscore
func SplitFolderName(name string) (userID, sessionID string) {
	idx := strings.LastIndex(name, "_")
	if idx < 0 {
		return name, "session1"
	}
	return name[:idx], name[idx+1:]
}

// relTo returns path relative to root using forward slashes, falling
// back to the path itself when it cannot be made relative
func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// startedAtFrom pulls the recording start timestamp out of the
// llm_analysis block of session metadata
func startedAtFrom(sessionMeta map[string]any) string {
	block, _ := sessionMeta["llm_analysis"].(map[string]any)
	if block == nil {
		return ""
	}
	startedAt, _ := block["started_at"].(string)
	return startedAt
}

// ProcessFolder processes a single session folder and writes its output
// under outputRoot, mirroring the folder name. The conversation file is
// required; every companion file is optional. Any error returned here
// is a per-session failure to be recorded by the batch layer.
func (p *SessionProcessor) ProcessFolder(folder, outputRoot string) (*ProcessedResult, error) {
	folderName := filepath.Base(folder)
	convPath := filepath.Join(folder, ConversationFileName)
	if _, err := os.Stat(convPath); err != nil {
		return nil, &SessionError{Folder: folderName, Err: fmt.Errorf("no %s", ConversationFileName)}
	}

	turns, err := LoadTurnsWithoutCreatedAt(convPath)
	if err != nil {
		return nil, &SessionError{Folder: folderName, Err: err}
	}
	formatted, err := FormatMessages(TransformTurnsUserFirst(turns), false)
	if err != nil {
		return nil, &SessionError{Folder: folderName, Err: err}
	}

	userID, sessionID := SplitFolderName(folderName)
	outputFolder := filepath.Join(outputRoot, folderName)
	if err := os.MkdirAll(outputFolder, 0o755); err != nil {
		return nil, &SessionError{Folder: folderName, Err: err}
	}

	metadata := map[string]any{
		"folder_name":            folderName,
		"data_path":              filepath.ToSlash(convPath),
		"formatted_conversation": formatted,
		"raw_conversation":       turns,
	}

	phqSummary, err := LoadAssessmentSummary(filepath.Join(folder, PHQAnalysisFileName))
	if err != nil {
		return nil, &SessionError{Folder: folderName, Err: err}
	}
	llmSummary, err := LoadAssessmentSummary(filepath.Join(folder, LLMAnalysisFileName))
	if err != nil {
		return nil, &SessionError{Folder: folderName, Err: err}
	}

	phqResponses := LoadPHQResponses(filepath.Join(folder, PHQResponsesFileName))
	sessionMeta := LoadJSON(filepath.Join(folder, MetadataFileName))
	if sessionMeta != nil {
		metadata["session_metadata"] = sessionMeta
	}

	if phqSummary != nil {
		extra := map[string]any{}
		if phqResponses != nil {
			extra["total_score"] = phqResponses.TotalScore
			extra["max_possible_score"] = phqResponses.MaxPossibleScore
			extra["responses"] = phqResponses.Responses
		}
		if stats, ok := sessionMeta["phq_analysis"]; ok {
			extra["analysis_stats"] = stats
		}
		phqSummary = phqSummary.MergeExtra(extra)
	}
	if llmSummary != nil {
		if stats, ok := sessionMeta["llm_analysis"]; ok {
			llmSummary = llmSummary.MergeExtra(map[string]any{"analysis_stats": stats})
		}
	}

	if err := p.copyCompanionFiles(folder, outputRoot, outputFolder, metadata); err != nil {
		return nil, &SessionError{Folder: folderName, Err: err}
	}

	if err := p.writeFrameBuckets(folder, outputRoot, outputFolder, metadata); err != nil {
		return nil, &SessionError{Folder: folderName, Err: err}
	}

	phqSummary, llmSummary, err = p.writeFacialOutputs(
		folder, outputRoot, outputFolder, metadata, turns,
		startedAtFrom(sessionMeta), phqSummary, llmSummary,
	)
	if err != nil {
		return nil, &SessionError{Folder: folderName, Err: err}
	}

	result := &ProcessedResult{
		UserID:      userID,
		SessionID:   sessionID,
		ProcessedAt: time.Now(),
		Metadata:    metadata,
		PHQSummary:  phqSummary,
		LLMSummary:  llmSummary,
	}
	if err := WriteJSON(filepath.Join(outputFolder, ResultFileName), result); err != nil {
		return nil, &SessionError{Folder: folderName, Err: err}
	}
	return result, nil
}

// copyCompanionFiles copies optional input files into the output folder
// and records their relative paths in metadata
func (p *SessionProcessor) copyCompanionFiles(folder, outputRoot, outputFolder string, metadata map[string]any) error {
	copies := []struct {
		name string
		key  string
	}{
		{PHQResponsesFileName, "phq_responses_file"},
		{MetadataFileName, "session_metadata_file"},
	}
	for _, c := range copies {
		src := filepath.Join(folder, c.name)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		dst := filepath.Join(outputFolder, c.name)
		if err := CopyFile(src, dst); err != nil {
			return err
		}
		metadata[c.key] = relTo(outputRoot, dst)
	}
	return nil
}

// writeFrameBuckets extracts per-turn frame buckets and writes
// llm_frames_by_turn.json when any exist
func (p *SessionProcessor) writeFrameBuckets(folder, outputRoot, outputFolder string, metadata map[string]any) error {
	buckets, err := ExtractLLMFramesByTurn(
		filepath.Join(folder, LLMAnalysisFileName),
		filepath.Join(folder, ConversationFileName),
	)
	if err != nil {
		return err
	}
	if buckets == nil {
		return nil
	}
	path := filepath.Join(outputFolder, "llm_frames_by_turn.json")
	if err := WriteJSON(path, buckets); err != nil {
		return err
	}
	metadata["llm_frames_by_turn_file"] = relTo(outputRoot, path)
	return nil
}

// timingWindowsMeta records the raw user timing windows alongside the
// facial artifacts so consumers can audit the alignment inputs
func timingWindowsMeta(turns []ConversationTurn) []map[string]any {
	var windows []map[string]any
	for _, turn := range turns {
		if turn.UserTiming == nil {
			continue
		}
		entry := map[string]any{
			"turn_number": turn.TurnNumber,
			"start":       turn.UserTiming.Start,
			"end":         turn.UserTiming.End,
		}
		windows = append(windows, entry)
	}
	return windows
}

// writeFacialOutputs runs both aggregation passes, writes their
// artifacts under facial_analysis/, and merges the aggregates into the
// assessment summaries
func (p *SessionProcessor) writeFacialOutputs(
	folder, outputRoot, outputFolder string,
	metadata map[string]any,
	turns []ConversationTurn,
	startedAt string,
	phqSummary, llmSummary *AssessmentSummary,
) (*AssessmentSummary, *AssessmentSummary, error) {
	facialDir := filepath.Join(outputFolder, "facial_analysis")
	facialMeta := map[string]any{}

	phqFacial, phqFrames, err := CollectPHQFrames(filepath.Join(folder, PHQAnalysisFileName))
	if err != nil {
		return nil, nil, err
	}
	if phqFacial != nil {
		summaryPath := filepath.Join(facialDir, "phq_summary.json")
		framesPath := filepath.Join(facialDir, "phq_frames.jsonl")
		if err := WriteJSON(summaryPath, phqFacial); err != nil {
			return nil, nil, err
		}
		if err := WriteJSONL(framesPath, phqFrames); err != nil {
			return nil, nil, err
		}
		phqSummary = phqSummary.MergeExtra(phqFacial.ExtraFields())
		facialMeta["phq"] = map[string]any{
			"summary_file": relTo(outputRoot, summaryPath),
			"frames_file":  relTo(outputRoot, framesPath),
		}
	}

	llmFacial, llmFrames, err := CollectLLMFrames(filepath.Join(folder, LLMAnalysisFileName), turns, startedAt)
	if err != nil {
		return nil, nil, err
	}
	if llmFacial != nil {
		summaryPath := filepath.Join(facialDir, "llm_summary.json")
		framesPath := filepath.Join(facialDir, "llm_frames.jsonl")
		if err := WriteJSON(summaryPath, llmFacial); err != nil {
			return nil, nil, err
		}
		if err := WriteJSONL(framesPath, llmFrames); err != nil {
			return nil, nil, err
		}
		llmSummary = llmSummary.MergeExtra(llmFacial.ExtraFields())
		facialMeta["llm"] = map[string]any{
			"summary_file":        relTo(outputRoot, summaryPath),
			"frames_file":         relTo(outputRoot, framesPath),
			"user_timing_windows": timingWindowsMeta(turns),
		}
	}

	if len(facialMeta) > 0 {
		metadata["facial_analysis"] = facialMeta
	}
	return phqSummary, llmSummary, nil
}
