package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Roles used in normalized message lists
const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// Role labels used when rendering transcripts for LLM prompts
const (
	LabelUser = "mahasiswa"
	LabelAI   = "sindi"
)

// greetingLine opens every rendered transcript, attributed to the AI
// role before the first turn.
const greetingLine = "Halo! Aku Sindi. Gimana kabarmu hari ini? Cerita aja, aku siap dengerin."

// LoadTurns reads llm_conversation.json and returns its raw turns
func LoadTurns(path string) ([]ConversationTurn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	var file conversationFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &StorageError{Path: path, Op: "parse", Err: err}
	}
	return file.Conversations, nil
}

// LoadTurnsWithoutCreatedAt reads raw turns with their created_at
// fields stripped, the shape stored under raw_conversation metadata
func LoadTurnsWithoutCreatedAt(path string) ([]ConversationTurn, error) {
	turns, err := LoadTurns(path)
	if err != nil {
		return nil, err
	}
	for i := range turns {
		turns[i].CreatedAt = ""
	}
	return turns, nil
}

// TransformTurns flattens turns into messages with the AI message
// preceding the user message within each turn. Empty messages are
// dropped.
func TransformTurns(turns []ConversationTurn) []Message {
	var messages []Message
	for _, turn := range turns {
		if turn.AIMessage != "" {
			messages = append(messages, Message{Role: RoleAI, Content: turn.AIMessage})
		}
		if turn.UserMessage != "" {
			messages = append(messages, Message{Role: RoleUser, Content: turn.UserMessage})
		}
	}
	return messages
}

// TransformTurnsUserFirst flattens turns with the user message
// preceding the AI message within each turn. Downstream transcript
// rendering uses this ordering.
func TransformTurnsUserFirst(turns []ConversationTurn) []Message {
	var messages []Message
	for _, turn := range turns {
		if turn.UserMessage != "" {
			messages = append(messages, Message{Role: RoleUser, Content: turn.UserMessage})
		}
		if turn.AIMessage != "" {
			messages = append(messages, Message{Role: RoleAI, Content: turn.AIMessage})
		}
	}
	return messages
}

// LoadConversation reads a conversation file as an AI-first message list
func LoadConversation(path string) ([]Message, error) {
	turns, err := LoadTurns(path)
	if err != nil {
		return nil, err
	}
	return TransformTurns(turns), nil
}

// LoadConversationUserFirst reads a conversation file as a user-first
// message list
func LoadConversationUserFirst(path string) ([]Message, error) {
	turns, err := LoadTurns(path)
	if err != nil {
		return nil, err
	}
	return TransformTurnsUserFirst(turns), nil
}

// ValidateMessages checks a message list before formatting. A message
// whose content is empty after trimming is invalid.
func ValidateMessages(messages []Message) error {
	for i, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			if msg.Role == "" {
				return &FormatError{Index: i, Reason: "missing role and content"}
			}
			return &FormatError{Index: i, Reason: "empty content"}
		}
	}
	return nil
}

// roleLabel maps a normalized role to its transcript label. Unknown
// roles pass through unchanged.
func roleLabel(role string) string {
	switch role {
	case RoleUser:
		return LabelUser
	case RoleAI:
		return LabelAI
	default:
		return role
	}
}

// FormatMessages renders messages as "label: content" lines preceded by
// the fixed AI greeting. When includeTurnNumbers is set, each message
// line is prefixed with its 1-based position in the rendered list,
// which may differ from source turn numbers when turns were filtered.
func FormatMessages(messages []Message, includeTurnNumbers bool) (string, error) {
	if err := ValidateMessages(messages); err != nil {
		return "", err
	}
	lines := make([]string, 0, len(messages)+1)
	lines = append(lines, fmt.Sprintf("%s: %s", LabelAI, greetingLine))
	for i, msg := range messages {
		content := strings.TrimSpace(msg.Content)
		if includeTurnNumbers {
			lines = append(lines, fmt.Sprintf("[Turn %d] %s: %s", i+1, roleLabel(msg.Role), content))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %s", roleLabel(msg.Role), content))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// FormatConversationFile loads a conversation file and renders it in
// the user-first transcript form used for LLM prompts
func FormatConversationFile(path string) (string, error) {
	messages, err := LoadConversationUserFirst(path)
	if err != nil {
		return "", err
	}
	return FormatMessages(messages, false)
}

// ConversationStats summarizes a message list
type ConversationStats struct {
	Total        int     `json:"total"`
	UserMessages int     `json:"user_messages"`
	AIMessages   int     `json:"ai_messages"`
	TotalChars   int     `json:"total_chars"`
	AvgLength    float64 `json:"avg_length"`
}

// MessageStats returns counts and the average content length in
// characters. Empty input yields zeroes, never a division by zero.
func MessageStats(messages []Message) ConversationStats {
	stats := ConversationStats{Total: len(messages)}
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			stats.UserMessages++
		case RoleAI:
			stats.AIMessages++
		}
		stats.TotalChars += len([]rune(msg.Content))
	}
	if stats.Total > 0 {
		stats.AvgLength = roundTo(float64(stats.TotalChars)/float64(stats.Total), 2)
	}
	return stats
}

// PHQSeverity maps a PHQ-9 total score to its severity bucket
func PHQSeverity(totalScore int) string {
	switch {
	case totalScore >= 20:
		return "severe"
	case totalScore >= 15:
		return "moderately_severe"
	case totalScore >= 10:
		return "moderate"
	case totalScore >= 5:
		return "mild"
	default:
		return "none"
	}
}
