package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sindi-lab/session-postproc/internal"
)

// ModelTarget is one provider/model pair to score against
type ModelTarget struct {
	Provider Provider
	Model    string
	Client   *Client
}

// Evaluation is the per-model artifact written to
// evaluations/<model>/evaluation.json. Exactly one of Response and
// Error is set.
type Evaluation struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
	Response  any    `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
}

// EvalStats summarizes an evaluation run
type EvalStats struct {
	Sessions int `json:"sessions"`
	Scored   int `json:"scored"`
	Errors   int `json:"errors"`
}

// SanitizeModelName makes a model name safe for use as a folder name
func SanitizeModelName(name string) string {
	return strings.NewReplacer("/", "_", ".", "_").Replace(name)
}

// BuildTargets instantiates clients for every configured model. opts
// apply to every client, which lets tests point them at a fake server.
func BuildTargets(settings *internal.Settings, opts ...ClientOption) []ModelTarget {
	var targets []ModelTarget
	for _, model := range internal.SplitModels(settings.LLM.OpenAIModels) {
		targets = append(targets, ModelTarget{
			Provider: ProviderOpenAI,
			Model:    model,
			Client:   NewClient(ProviderOpenAI, settings.LLM.OpenAIAPIKey, opts...),
		})
	}
	for _, model := range internal.SplitModels(settings.LLM.TogetherModels) {
		targets = append(targets, ModelTarget{
			Provider: ProviderTogether,
			Model:    model,
			Client:   NewClient(ProviderTogether, settings.LLM.TogetherAPIKey, opts...),
		})
	}
	return targets
}

// Evaluator submits processed transcripts to every configured model
// and persists one artifact per model
type Evaluator struct {
	settings *internal.Settings
	targets  []ModelTarget
}

// NewEvaluator creates an Evaluator scoring against the given targets
func NewEvaluator(settings *internal.Settings, targets []ModelTarget) *Evaluator {
	return &Evaluator{settings: settings, targets: targets}
}

// processedResultFile is the subset of analysis_result.json the
// evaluator needs
type processedResultFile struct {
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Metadata  map[string]any `json:"metadata"`
}

// EvaluateSession scores one processed session against every target.
// Requests run concurrently bounded by the configured concurrency
// limit, each with its own timeout. A failure or timeout for one model
// produces an error artifact for that model alone; siblings run to
// completion and every artifact is written independently.
func (e *Evaluator) EvaluateSession(ctx context.Context, resultFile string) (*EvalStats, error) {
	data, err := os.ReadFile(resultFile)
	if err != nil {
		return nil, &internal.StorageError{Path: resultFile, Op: "open", Err: err}
	}
	var result processedResultFile
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &internal.StorageError{Path: resultFile, Op: "parse", Err: err}
	}
	formatted, _ := result.Metadata["formatted_conversation"].(string)
	if formatted == "" {
		return nil, fmt.Errorf("%s has no formatted conversation", resultFile)
	}

	messages := BuildAnalysisMessages(formatted)
	evalBase := filepath.Join(filepath.Dir(resultFile), "evaluations")
	timeout := time.Duration(e.settings.LLM.RequestTimeout * float64(time.Second))

	stats := &EvalStats{Sessions: 1}
	results := make([]Evaluation, len(e.targets))

	var g errgroup.Group
	g.SetLimit(e.settings.LLM.MaxConcurrency)
	for i, target := range e.targets {
		i, target := i, target
		g.Go(func() error {
			results[i] = e.scoreModel(ctx, target, messages, result.UserID, result.SessionID, timeout)
			return nil
		})
	}
	_ = g.Wait()

	var writeErr error
	for _, eval := range results {
		if eval.Error != "" {
			stats.Errors++
		} else {
			stats.Scored++
		}
		path := filepath.Join(evalBase, SanitizeModelName(eval.Model), "evaluation.json")
		if err := internal.WriteJSON(path, eval); err != nil {
			writeErr = err
		}
	}
	return stats, writeErr
}

// scoreModel runs a single model request and shapes its artifact
func (e *Evaluator) scoreModel(ctx context.Context, target ModelTarget, messages []ChatMessage, userID, sessionID string, timeout time.Duration) Evaluation {
	eval := Evaluation{UserID: userID, SessionID: sessionID, Model: target.Model}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := target.Client.CreateChatCompletion(reqCtx, &ChatRequest{
		Model:       target.Model,
		Messages:    messages,
		Temperature: e.settings.LLM.Temperature,
		MaxTokens:   e.settings.LLM.MaxTokens,
		Seed:        e.settings.LLM.Seed,
	})
	if err != nil {
		evalErr := &internal.EvalError{Model: target.Model, Err: err}
		if errors.Is(err, context.DeadlineExceeded) {
			eval.Error = fmt.Sprintf("timed out after %g seconds", timeout.Seconds())
		} else {
			eval.Error = err.Error()
		}
		internal.LogWarn("%v", evalErr)
		return eval
	}

	parsed := NormalizeContent(resp.FirstContent())
	eval.Response = EnsureTotals(parsed)
	return eval
}

// EvaluateBatch scores every processed session under postProcessedDir
// that has an analysis_result.json. Per-session errors are logged and
// counted; the batch continues.
func (e *Evaluator) EvaluateBatch(ctx context.Context, postProcessedDir string) (*EvalStats, error) {
	matches, err := filepath.Glob(filepath.Join(postProcessedDir, "*", "analysis_result.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no processed sessions found in %s", postProcessedDir)
	}

	total := &EvalStats{}
	for _, resultFile := range matches {
		stats, err := e.EvaluateSession(ctx, resultFile)
		if err != nil {
			internal.LogWarn("evaluation failed for %s: %v", resultFile, err)
			total.Errors++
			continue
		}
		total.Sessions += stats.Sessions
		total.Scored += stats.Scored
		total.Errors += stats.Errors
	}
	return total, nil
}
