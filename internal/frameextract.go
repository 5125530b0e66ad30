package internal

import "os"

// ExtractLLMFramesByTurn buckets conversation-recording result frames
// per turn using each frame's index as its offset in seconds, since
// result frames arrive at roughly one per second. Turns without a
// usable user timing window are skipped; turns whose window captures no
// frames are omitted from the result. Missing inputs yield nil.
func ExtractLLMFramesByTurn(llmAnalysisPath, conversationPath string) (map[int][]FrameLine, error) {
	if _, err := os.Stat(llmAnalysisPath); os.IsNotExist(err) {
		return nil, nil
	}
	if _, err := os.Stat(conversationPath); os.IsNotExist(err) {
		return nil, nil
	}

	turns, err := LoadTurns(conversationPath)
	if err != nil {
		return nil, err
	}

	lines, err := readFrameLines(llmAnalysisPath)
	if err != nil {
		return nil, err
	}
	var resultFrames []FrameLine
	for _, line := range lines {
		if line.Type == LineTypeResult {
			resultFrames = append(resultFrames, line)
		}
	}
	if len(resultFrames) == 0 {
		return nil, nil
	}

	buckets := make(map[int][]FrameLine)
	for _, turn := range turns {
		if turn.TurnNumber == nil || turn.UserTiming == nil {
			continue
		}
		start, end := turn.UserTiming.Start, turn.UserTiming.End
		if start == nil || end == nil || !start.Valid || !end.Valid {
			continue
		}
		var inWindow []FrameLine
		for i, frame := range resultFrames {
			offset := float64(i)
			if start.Value <= offset && offset <= end.Value {
				inWindow = append(inWindow, frame)
			}
		}
		if len(inWindow) > 0 {
			buckets[*turn.TurnNumber] = inWindow
		}
	}
	if len(buckets) == 0 {
		return nil, nil
	}
	return buckets, nil
}
