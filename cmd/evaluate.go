package cmd

import (
	"fmt"

	"github.com/sindi-lab/session-postproc/internal"
	"github.com/sindi-lab/session-postproc/internal/llm"
	"github.com/spf13/cobra"
)

var evaluateDir string

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score processed sessions with the configured LLMs",
	Long: `Score every processed session transcript for depression indicators.

Each configured model receives the formatted conversation and returns
per-indicator scores. Results, or per-model error records, are written
to evaluations/<model>/evaluation.json inside each session's output
folder. Models are queried concurrently up to the configured limit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := internal.LoadSettings()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		if cmd.Flags().Changed("dir") {
			settings.Processor.OutputDir = evaluateDir
		}

		targets := llm.BuildTargets(settings)
		if len(targets) == 0 {
			return fmt.Errorf("no models configured (set LLM_OPENAI_MODELS or LLM_TOGETHER_MODELS)")
		}
		internal.LogInfo("Evaluating with %d model(s)", len(targets))

		evaluator := llm.NewEvaluator(settings, targets)
		stats, err := evaluator.EvaluateBatch(cmd.Context(), settings.Processor.OutputDir)
		if err != nil {
			return err
		}

		if stats.Errors > 0 {
			internal.PrintWarning(fmt.Sprintf("Scored %d response(s) across %d session(s), %d error(s)", stats.Scored, stats.Sessions, stats.Errors))
		} else {
			internal.PrintSuccess(fmt.Sprintf("Scored %d response(s) across %d session(s)", stats.Scored, stats.Sessions))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateDir, "dir", "d", "post_processed", "Directory containing processed sessions")
}
