package internal

import (
	"bufio"
	"encoding/json"
	"math"
	"os"
	"sort"
	"time"
)

// Diagnostic notes attached to LLM-path summaries when alignment could
// not run or had to fall back. Consumers rely on these exact strings.
const (
	NoteAnalysisFileMissing = "analysis_file_missing"
	NoteMissingUserTiming   = "missing_user_timing_or_start_time"
	NoteNoFramesAvailable   = "no_frames_available"
	NoteNoFramesMatched     = "no_frames_matched_user_timing"
	NoteSequentialFallback  = "timestamp_alignment_failed_used_sequential"
)

// timestampLayouts covers the ISO-8601 variants emitted by the capture
// pipelines. RFC 3339 handles the trailing-Z and offset forms; the bare
// layouts handle naive timestamps, which are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseISOTimestamp parses an ISO-8601 timestamp string, accepting a
// trailing 'Z' as UTC. The second return value reports success.
func ParseISOTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UserTimingWindows derives validated speaking windows from turns.
// Turns missing timing, with unparseable bounds, without a turn number,
// or with end < start are excluded. The result is sorted ascending by
// start; source order breaks ties.
func UserTimingWindows(turns []ConversationTurn) []TimingWindow {
	var windows []TimingWindow
	for _, turn := range turns {
		timing := turn.UserTiming
		if timing == nil || timing.Start == nil || timing.End == nil {
			continue
		}
		if !timing.Start.Valid || !timing.End.Valid {
			continue
		}
		if turn.TurnNumber == nil {
			continue
		}
		if timing.End.Value < timing.Start.Value {
			continue
		}
		windows = append(windows, TimingWindow{
			Start:      timing.Start.Value,
			End:        timing.End.Value,
			TurnNumber: *turn.TurnNumber,
		})
	}
	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].Start < windows[j].Start
	})
	return windows
}

// frameAccumulator keeps running sums so frames never need a second
// pass. One accumulator lives for exactly one aggregation call.
type frameAccumulator struct {
	emotionCounts map[string]int
	auSums        map[string]float64
	framesPerTurn map[int]int
	frameCount    int
}

func newFrameAccumulator() *frameAccumulator {
	return &frameAccumulator{
		emotionCounts: make(map[string]int),
		auSums:        make(map[string]float64),
		framesPerTurn: make(map[int]int),
	}
}

func (a *frameAccumulator) add(line *FrameLine, turnNumber int, perTurn bool) {
	if expr := line.Expression(); expr != "" {
		a.emotionCounts[expr]++
	}
	for au, value := range line.Intensities() {
		a.auSums[au] += value
	}
	if perTurn {
		a.framesPerTurn[turnNumber]++
	}
	a.frameCount++
}

func (a *frameAccumulator) averages() map[string]float64 {
	out := make(map[string]float64, len(a.auSums))
	if a.frameCount == 0 {
		return out
	}
	for au, total := range a.auSums {
		out[au] = roundTo(total/float64(a.frameCount), 4)
	}
	return out
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// readFrameLines streams a JSONL file, dropping blank and malformed
// lines and any line whose type is in skipTypes.
func readFrameLines(path string, skipTypes ...string) ([]FrameLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	defer func() { _ = f.Close() }()

	skip := make(map[string]bool, len(skipTypes))
	for _, t := range skipTypes {
		skip[t] = true
	}

	var lines []FrameLine
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line FrameLine
		if err := json.Unmarshal(raw, &line); err != nil {
			LogDebug("%v", &LineError{Path: path, Line: lineNo, Err: err})
			continue
		}
		if skip[line.Type] {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}
	return lines, nil
}

// CollectPHQFrames aggregates the PHQ recording's facial frames in file
// order, assigning each data frame a sequential index. A missing file
// yields a nil summary; zero frames yield an explicit zero summary.
func CollectPHQFrames(path string) (*FacialSummary, []PHQFrame, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, nil
	}

	lines, err := readFrameLines(path, LineTypeMetadata)
	if err != nil {
		return nil, nil, err
	}

	acc := newFrameAccumulator()
	frames := make([]PHQFrame, 0, len(lines))
	for i := range lines {
		line := &lines[i]
		frames = append(frames, PHQFrame{
			Index:            i,
			Timestamp:        line.Timestamp,
			FacialExpression: line.Expression(),
			AUIntensities:    line.Intensities(),
		})
		acc.add(line, 0, false)
	}

	summary := &FacialSummary{
		FrameCount:           acc.frameCount,
		EmotionDistribution:  acc.emotionCounts,
		AverageAUIntensities: acc.averages(),
	}
	return summary, frames, nil
}

// CollectLLMFrames aggregates the conversation recording's facial
// frames, aligning each frame to the turn whose user speaking window
// contains it. startedAt is the recording start from session metadata.
//
// Alignment runs in two tiers. When both the recording start time and
// at least one frame timestamp parse, each frame's offset from the
// start is matched against the windows, first containing window wins.
// When that yields nothing, frames are spread linearly across the full
// window span instead, so every frame lands on some turn at the cost of
// precision. The summary's note and used_sequential_timing fields
// report which tier produced the result.
func CollectLLMFrames(path string, turns []ConversationTurn, startedAt string) (*FacialSummary, []LLMFrame, error) {
	zeroSummary := func(note string) *FacialSummary {
		return &FacialSummary{
			EmotionDistribution:  map[string]int{},
			AverageAUIntensities: map[string]float64{},
			FramesPerTurn:        map[int]int{},
			UsedUserTiming:       true,
			Note:                 note,
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return zeroSummary(NoteAnalysisFileMissing), nil, nil
	}

	windows := UserTimingWindows(turns)
	if len(windows) == 0 {
		return zeroSummary(NoteMissingUserTiming), nil, nil
	}

	lines, err := readFrameLines(path, LineTypeMetadata, LineTypeSummary)
	if err != nil {
		return nil, nil, err
	}
	total := len(lines)
	if total == 0 {
		return zeroSummary(NoteNoFramesAvailable), nil, nil
	}

	parsed := make([]time.Time, total)
	valid := make([]bool, total)
	hasRealTimestamps := false
	for i := range lines {
		parsed[i], valid[i] = ParseISOTimestamp(lines[i].Timestamp)
		if valid[i] {
			hasRealTimestamps = true
		}
	}

	startTime, startOK := ParseISOTimestamp(startedAt)

	acc := newFrameAccumulator()
	var frames []LLMFrame
	record := func(line *FrameLine, turnNumber int, offsetSeconds float64) {
		frames = append(frames, LLMFrame{
			TurnNumber:       turnNumber,
			OffsetSeconds:    roundTo(offsetSeconds, 3),
			Timestamp:        line.Timestamp,
			FacialExpression: line.Expression(),
			AUIntensities:    line.Intensities(),
		})
		acc.add(line, turnNumber, true)
	}

	assignSequential := func() {
		startMin := windows[0].Start
		endMax := windows[0].End
		for _, w := range windows[1:] {
			if w.End > endMax {
				endMax = w.End
			}
		}
		if endMax <= startMin {
			// Degenerate span: extend by one unit per frame.
			endMax = startMin + float64(total)
		}
		step := 0.0
		if total > 1 {
			step = (endMax - startMin) / float64(total-1)
		}
		windowIndex := 0
		for i := range lines {
			offset := startMin + step*float64(i)
			for windowIndex+1 < len(windows) && offset > windows[windowIndex].End {
				windowIndex++
			}
			record(&lines[i], windows[windowIndex].TurnNumber, offset)
		}
	}

	usedSequential := false
	note := ""
	if hasRealTimestamps && startOK {
		for i := range lines {
			if !valid[i] {
				continue
			}
			offset := parsed[i].Sub(startTime).Seconds()
			if offset < 0 {
				continue
			}
			for _, w := range windows {
				if w.Start <= offset && offset <= w.End {
					record(&lines[i], w.TurnNumber, offset)
					break
				}
			}
		}
		if len(frames) == 0 {
			usedSequential = true
			assignSequential()
			if len(frames) > 0 {
				note = NoteSequentialFallback
			}
		}
	} else {
		usedSequential = true
		assignSequential()
	}

	summary := &FacialSummary{
		FrameCount:           acc.frameCount,
		EmotionDistribution:  acc.emotionCounts,
		AverageAUIntensities: acc.averages(),
		FramesPerTurn:        acc.framesPerTurn,
		UsedUserTiming:       true,
		UsedSequentialTiming: usedSequential,
	}
	if summary.FrameCount == 0 {
		summary.Note = NoteNoFramesMatched
	} else if note != "" {
		summary.Note = note
	}
	return summary, frames, nil
}
