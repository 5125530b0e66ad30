package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sindi-lab/session-postproc/internal"
)

// ExportStats reports the outcome of one CSV export
type ExportStats struct {
	Exported   int    `json:"exported"`
	OutputFile string `json:"output_file"`
}

// AllExportStats aggregates the stats of ExportAll
type AllExportStats struct {
	LLMFacial   *ExportStats            `json:"llm_facial"`
	PHQFacial   *ExportStats            `json:"phq_facial"`
	PHQScores   *ExportStats            `json:"phq_scores"`
	Evaluations map[string]*ExportStats `json:"llm_evaluation"`
}

// resultDoc is the slice of analysis_result.json the CSV exporters read
type resultDoc struct {
	UserID     string      `json:"user_id"`
	SessionID  string      `json:"session_id"`
	PHQSummary *summaryDoc `json:"phq_summary"`
	LLMSummary *summaryDoc `json:"llm_summary"`
}

type summaryDoc struct {
	Extra map[string]any `json:"extra"`
}

func (s *summaryDoc) extra() map[string]any {
	if s == nil {
		return nil
	}
	return s.Extra
}

// loadResultDocs reads every */analysis_result.json under dir in sorted
// order. Unreadable files are logged and skipped.
func loadResultDocs(dir string) ([]resultDoc, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*", internal.ResultFileName))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var docs []resultDoc
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			internal.LogWarn("skipping unreadable result %s: %v", path, err)
			continue
		}
		var doc resultDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			internal.LogWarn("skipping malformed result %s: %v", path, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// dominantEmotion returns the emotion with the highest count, breaking
// ties alphabetically
func dominantEmotion(dist map[string]any) string {
	var best string
	var bestCount float64
	for emotion, raw := range dist {
		count := asFloat(raw)
		if best == "" || count > bestCount || (count == bestCount && emotion < best) {
			best = emotion
			bestCount = count
		}
	}
	return best
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

// formatNumber renders a numeric cell without a trailing ".0" for
// integral values
func formatNumber(v any) string {
	f := asFloat(v)
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func compactJSON(v any) string {
	if v == nil {
		v = map[string]any{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &internal.StorageError{Path: path, Op: "mkdir", Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return &internal.StorageError{Path: path, Op: "create", Err: err}
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return &internal.StorageError{Path: path, Op: "write", Err: err}
	}
	if err := w.WriteAll(rows); err != nil {
		return &internal.StorageError{Path: path, Op: "write", Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &internal.StorageError{Path: path, Op: "write", Err: err}
	}
	return f.Close()
}

// ExportLLMFacialAnalysis flattens the conversation-aligned facial
// summaries of every processed session into one CSV
func ExportLLMFacialAnalysis(postProcessedDir, outputFile string) (*ExportStats, error) {
	docs, err := loadResultDocs(postProcessedDir)
	if err != nil {
		return nil, err
	}

	header := []string{
		"user_id", "session_id", "frame_count", "dominant_emotion",
		"emotion_distribution", "avg_au_intensities", "frames_per_turn",
	}
	var rows [][]string
	for _, doc := range docs {
		extra := doc.LLMSummary.extra()
		dist, _ := extra["emotion_distribution"].(map[string]any)
		rows = append(rows, []string{
			doc.UserID,
			doc.SessionID,
			formatNumber(extra["frame_count"]),
			dominantEmotion(dist),
			compactJSON(extra["emotion_distribution"]),
			compactJSON(extra["average_au_intensities"]),
			compactJSON(extra["frames_per_turn"]),
		})
	}

	if len(rows) > 0 {
		if err := writeCSV(outputFile, header, rows); err != nil {
			return nil, err
		}
	}
	return &ExportStats{Exported: len(rows), OutputFile: outputFile}, nil
}

// ExportPHQFacialAnalysis flattens the questionnaire-phase facial
// summaries of every processed session into one CSV
func ExportPHQFacialAnalysis(postProcessedDir, outputFile string) (*ExportStats, error) {
	docs, err := loadResultDocs(postProcessedDir)
	if err != nil {
		return nil, err
	}

	header := []string{
		"user_id", "session_id", "frame_count", "dominant_emotion",
		"emotion_distribution", "avg_au_intensities",
	}
	var rows [][]string
	for _, doc := range docs {
		extra := doc.PHQSummary.extra()
		dist, _ := extra["emotion_distribution"].(map[string]any)
		rows = append(rows, []string{
			doc.UserID,
			doc.SessionID,
			formatNumber(extra["frame_count"]),
			dominantEmotion(dist),
			compactJSON(extra["emotion_distribution"]),
			compactJSON(extra["average_au_intensities"]),
		})
	}

	if len(rows) > 0 {
		if err := writeCSV(outputFile, header, rows); err != nil {
			return nil, err
		}
	}
	return &ExportStats{Exported: len(rows), OutputFile: outputFile}, nil
}

// ExportPHQScores writes one row per session with the self-reported
// questionnaire total, a severity bucket, and the nine item scores
func ExportPHQScores(postProcessedDir, outputFile string) (*ExportStats, error) {
	docs, err := loadResultDocs(postProcessedDir)
	if err != nil {
		return nil, err
	}

	header := []string{"user_id", "session_id", "total_score", "max_possible_score", "severity_level"}
	for i := 1; i <= 9; i++ {
		header = append(header, fmt.Sprintf("Q%d", i))
	}

	var rows [][]string
	for _, doc := range docs {
		extra := doc.PHQSummary.extra()
		totalScore := int(asFloat(extra["total_score"]))
		maxScore := 27
		if v, ok := extra["max_possible_score"]; ok {
			maxScore = int(asFloat(v))
		}
		responses, _ := extra["responses"].(map[string]any)

		row := []string{
			doc.UserID,
			doc.SessionID,
			strconv.Itoa(totalScore),
			strconv.Itoa(maxScore),
			internal.PHQSeverity(totalScore),
		}
		for i := 1; i <= 9; i++ {
			row = append(row, formatNumber(responses[fmt.Sprintf("Q%d", i)]))
		}
		rows = append(rows, row)
	}

	if len(rows) > 0 {
		if err := writeCSV(outputFile, header, rows); err != nil {
			return nil, err
		}
	}
	return &ExportStats{Exported: len(rows), OutputFile: outputFile}, nil
}

// evaluationDoc is the slice of evaluation.json the evaluation export reads
type evaluationDoc struct {
	Response map[string]any `json:"response"`
}

// ExportEvaluations writes one wide CSV per model, with a score and
// context column for every indicator the model reported. Column sets
// are unioned across sessions so rows stay aligned when a model skips
// an indicator.
func ExportEvaluations(postProcessedDir, outputDir string) (map[string]*ExportStats, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &internal.StorageError{Path: outputDir, Op: "mkdir", Err: err}
	}

	sessions, err := filepath.Glob(filepath.Join(postProcessedDir, "*_session*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(sessions)

	modelRows := map[string][]map[string]string{}
	for _, sessionDir := range sessions {
		info, err := os.Stat(sessionDir)
		if err != nil || !info.IsDir() {
			continue
		}
		userID, sessionID := internal.SplitFolderName(filepath.Base(sessionDir))

		modelDirs, err := os.ReadDir(filepath.Join(sessionDir, "evaluations"))
		if err != nil {
			continue
		}
		for _, modelDir := range modelDirs {
			if !modelDir.IsDir() {
				continue
			}
			evalFile := filepath.Join(sessionDir, "evaluations", modelDir.Name(), "evaluation.json")
			data, err := os.ReadFile(evalFile)
			if err != nil {
				continue
			}
			var doc evaluationDoc
			if err := json.Unmarshal(data, &doc); err != nil {
				internal.LogWarn("skipping malformed evaluation %s: %v", evalFile, err)
				continue
			}

			row := map[string]string{
				"user_id":    userID,
				"session_id": sessionID,
				"phq_sum":    "0",
				"notes":      "",
			}
			if totals, ok := doc.Response["totals"].(map[string]any); ok {
				row["phq_sum"] = formatNumber(totals["phq_sum"])
			}
			if notes, ok := doc.Response["notes"].(string); ok {
				row["notes"] = notes
			}
			if analysis, ok := doc.Response["analysis"].([]any); ok {
				for _, item := range analysis {
					entry, ok := item.(map[string]any)
					if !ok {
						continue
					}
					indicator, _ := entry["indicator"].(string)
					if indicator == "" {
						continue
					}
					context, _ := entry["context"].(string)
					var score any
					if scoreMap, ok := entry["score"].(map[string]any); ok {
						score = scoreMap["phq"]
					}
					row[indicator+"_score"] = formatNumber(score)
					row[indicator+"_context"] = context
				}
			}
			modelRows[modelDir.Name()] = append(modelRows[modelDir.Name()], row)
		}
	}

	stats := map[string]*ExportStats{}
	for model, rows := range modelRows {
		fixed := map[string]bool{"user_id": true, "session_id": true, "phq_sum": true, "notes": true}
		columnSet := map[string]bool{}
		for _, row := range rows {
			for name := range row {
				if !fixed[name] {
					columnSet[name] = true
				}
			}
		}
		columns := make([]string, 0, len(columnSet))
		for name := range columnSet {
			columns = append(columns, name)
		}
		sort.Strings(columns)

		header := append([]string{"user_id", "session_id", "phq_sum"}, columns...)
		header = append(header, "notes")

		records := make([][]string, 0, len(rows))
		for _, row := range rows {
			record := make([]string, 0, len(header))
			for _, name := range header {
				record = append(record, row[name])
			}
			records = append(records, record)
		}

		safeName := strings.NewReplacer("/", "_", ".", "_").Replace(model)
		outputFile := filepath.Join(outputDir, fmt.Sprintf("llm_evaluation_%s.csv", safeName))
		if err := writeCSV(outputFile, header, records); err != nil {
			return nil, err
		}
		stats[model] = &ExportStats{Exported: len(rows), OutputFile: outputFile}
	}
	return stats, nil
}

// ExportAll writes every CSV export into outputDir
func ExportAll(postProcessedDir, outputDir string) (*AllExportStats, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &internal.StorageError{Path: outputDir, Op: "mkdir", Err: err}
	}

	all := &AllExportStats{}
	var err error

	if all.LLMFacial, err = ExportLLMFacialAnalysis(postProcessedDir, filepath.Join(outputDir, "llm_facial_analysis.csv")); err != nil {
		return nil, err
	}
	if all.PHQFacial, err = ExportPHQFacialAnalysis(postProcessedDir, filepath.Join(outputDir, "phq_facial_analysis.csv")); err != nil {
		return nil, err
	}
	if all.PHQScores, err = ExportPHQScores(postProcessedDir, filepath.Join(outputDir, "phq_scores.csv")); err != nil {
		return nil, err
	}
	if all.Evaluations, err = ExportEvaluations(postProcessedDir, outputDir); err != nil {
		return nil, err
	}
	return all, nil
}
