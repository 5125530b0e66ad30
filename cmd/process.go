package cmd

import (
	"errors"
	"fmt"

	"github.com/sindi-lab/session-postproc/internal"
	"github.com/spf13/cobra"
)

var (
	inputDir      string
	outputDir     string
	sessionNumber int
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process recorded session folders",
	Long: `Process every recorded session folder in the input directory.

Each folder named <user>_session<N> is loaded, its conversation is
formatted, facial analysis frames are aligned with conversation turns,
and the combined result is written under the output directory.

Folders that fail to process are reported and skipped; the batch
continues with the remaining folders.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := internal.LoadSettings()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		if cmd.Flags().Changed("input") {
			settings.Processor.InputDir = inputDir
		}
		if cmd.Flags().Changed("output") {
			settings.Processor.OutputDir = outputDir
		}
		if cmd.Flags().Changed("session") {
			settings.Processor.SessionNumber = sessionNumber
		}

		batch := internal.NewBatchProcessor(settings)
		result, err := batch.ProcessDataFolder(settings.Processor.InputDir, settings.Processor.OutputDir, settings.Processor.SessionNumber)
		if err != nil {
			if errors.Is(err, internal.ErrNothingToProcess) {
				internal.PrintWarning(fmt.Sprintf("No session folders found in %s", settings.Processor.InputDir))
				return nil
			}
			return err
		}

		internal.PrintInfo(fmt.Sprintf("Processed %d of %d folder(s), %d failed", result.Processed, result.Total, result.Failed))
		if result.Failed > 0 {
			return fmt.Errorf("%d folder(s) failed to process", result.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&inputDir, "input", "i", "data", "Input directory containing session folders")
	processCmd.Flags().StringVarP(&outputDir, "output", "o", "post_processed", "Output directory for processed sessions")
	processCmd.Flags().IntVarP(&sessionNumber, "session", "s", 1, "Session number to process")
}
