package internal

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// FlexFloat decodes JSON values that may arrive as a number or as a
// numeric string. Timing fields in conversation files are produced by
// more than one capture pipeline and both encodings occur in the wild.
type FlexFloat struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler. Unparseable values leave
// the field invalid rather than failing the surrounding record.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	f.Value, f.Valid = 0, false
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f.Value, f.Valid = v, true
		return nil
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil
	}
	f.Value, f.Valid = v, true
	return nil
}

// MarshalJSON implements json.Marshaler
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// TurnTiming is the raw speaking window attached to a conversation turn
type TurnTiming struct {
	Start *FlexFloat `json:"start,omitempty"`
	End   *FlexFloat `json:"end,omitempty"`
}

// ConversationTurn represents one turn from llm_conversation.json
type ConversationTurn struct {
	TurnNumber  *int        `json:"turn_number,omitempty"`
	UserMessage string      `json:"user_message,omitempty"`
	AIMessage   string      `json:"ai_message,omitempty"`
	UserTiming  *TurnTiming `json:"user_timing,omitempty"`
	AITiming    *TurnTiming `json:"ai_timing,omitempty"`
	CreatedAt   string      `json:"created_at,omitempty"`
}

// conversationFile is the on-disk shape of llm_conversation.json
type conversationFile struct {
	Conversations []ConversationTurn `json:"conversations"`
}

// Message is a normalized role/content pair derived from a turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TimingWindow is a validated user-speaking interval derived from a turn.
// Windows are sorted ascending by start before alignment; overlapping
// windows are resolved by first match in that order.
type TimingWindow struct {
	Start      float64
	End        float64
	TurnNumber int
}

// Frame line discriminators used in analysis JSONL streams
const (
	LineTypeMetadata = "metadata"
	LineTypeSummary  = "summary"
	LineTypeResult   = "result"
)

// FrameAnalysis carries the detector output embedded in a frame line
type FrameAnalysis struct {
	FacialExpression string             `json:"facial_expression,omitempty"`
	AUIntensities    map[string]float64 `json:"au_intensities,omitempty"`
}

// FrameLine is one record of an analysis JSONL file. Lines tagged
// metadata or summary are bookkeeping, everything else is frame data.
type FrameLine struct {
	Type      string         `json:"type,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
	Analysis  *FrameAnalysis `json:"analysis,omitempty"`
}

// Expression returns the detected emotion label, if any
func (l *FrameLine) Expression() string {
	if l.Analysis == nil {
		return ""
	}
	return l.Analysis.FacialExpression
}

// Intensities returns the action-unit intensity map, never nil
func (l *FrameLine) Intensities() map[string]float64 {
	if l.Analysis == nil || l.Analysis.AUIntensities == nil {
		return map[string]float64{}
	}
	return l.Analysis.AUIntensities
}

// PHQFrame is an aggregated frame from the PHQ recording session
type PHQFrame struct {
	Index            int                `json:"index"`
	Timestamp        string             `json:"timestamp,omitempty"`
	FacialExpression string             `json:"facial_expression,omitempty"`
	AUIntensities    map[string]float64 `json:"au_intensities"`
}

// LLMFrame is an aggregated frame matched to a conversation turn
type LLMFrame struct {
	TurnNumber       int                `json:"turn_number"`
	OffsetSeconds    float64            `json:"offset_seconds"`
	Timestamp        string             `json:"timestamp,omitempty"`
	FacialExpression string             `json:"facial_expression,omitempty"`
	AUIntensities    map[string]float64 `json:"au_intensities"`
}

// FacialSummary is the aggregate produced by one aggregation pass.
// Immutable once returned; a fresh instance is built per call.
type FacialSummary struct {
	FrameCount           int                `json:"frame_count"`
	EmotionDistribution  map[string]int     `json:"emotion_distribution"`
	AverageAUIntensities map[string]float64 `json:"average_au_intensities"`
	FramesPerTurn        map[int]int        `json:"frames_per_turn,omitempty"`
	UsedUserTiming       bool               `json:"used_user_timing,omitempty"`
	UsedSequentialTiming bool               `json:"used_sequential_timing,omitempty"`
	Note                 string             `json:"note,omitempty"`
}

// ExtraFields flattens the summary into the key set merged into an
// AssessmentSummary's extra map and written to the summary artifact.
func (s *FacialSummary) ExtraFields() map[string]any {
	if s == nil {
		return nil
	}
	fields := map[string]any{
		"frame_count":            s.FrameCount,
		"emotion_distribution":   s.EmotionDistribution,
		"average_au_intensities": s.AverageAUIntensities,
	}
	if s.FramesPerTurn != nil {
		fields["frames_per_turn"] = s.FramesPerTurn
	}
	if s.UsedUserTiming {
		fields["used_user_timing"] = true
	}
	if s.UsedSequentialTiming {
		fields["used_sequential_timing"] = true
	}
	if s.Note != "" {
		fields["note"] = s.Note
	}
	return fields
}

// AssessmentSummary is a lightweight overview of one assessment JSONL file
type AssessmentSummary struct {
	Metadata  map[string]any `json:"metadata,omitempty"`
	TotalRows int            `json:"total_rows"`
	DataRows  int            `json:"data_rows"`
	FilePath  string         `json:"file_path,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MergeExtra returns a copy of the summary with fields merged into its
// extra map. The receiver is left untouched.
func (a *AssessmentSummary) MergeExtra(fields map[string]any) *AssessmentSummary {
	if a == nil || len(fields) == 0 {
		return a
	}
	merged := *a
	merged.Extra = make(map[string]any, len(a.Extra)+len(fields))
	for k, v := range a.Extra {
		merged.Extra[k] = v
	}
	for k, v := range fields {
		merged.Extra[k] = v
	}
	return &merged
}

// PHQResponses is the questionnaire result file phq_responses.json
type PHQResponses struct {
	TotalScore       int            `json:"total_score"`
	MaxPossibleScore int            `json:"max_possible_score"`
	Responses        map[string]int `json:"responses,omitempty"`
}

// ProcessedResult is the per-session output record. It is written once;
// updates produce a new copy with a merged metadata map.
type ProcessedResult struct {
	UserID      string             `json:"user_id"`
	SessionID   string             `json:"session_id"`
	ProcessedAt time.Time          `json:"processed_at"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
	PHQSummary  *AssessmentSummary `json:"phq_summary,omitempty"`
	LLMSummary  *AssessmentSummary `json:"llm_summary,omitempty"`
}
