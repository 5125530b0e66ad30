package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sindi-lab/session-postproc/internal"
	"github.com/sindi-lab/session-postproc/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportDir    string
	exportOut    string
	exportCSV    bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export processed results",
	Long: `Export processed session results.

With --csv, flattened CSV datasets are written to the output directory:
facial analysis summaries, self-reported questionnaire scores, and one
wide table per evaluation model.

Without --csv, all processed results are combined into a single file in
the chosen format (json, jsonl, yaml).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := internal.LoadSettings()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		if cmd.Flags().Changed("dir") {
			settings.Processor.OutputDir = exportDir
		}

		if exportCSV {
			return runCSVExport(settings.Processor.OutputDir, exportOut)
		}
		return runResultsExport(settings.Processor.OutputDir, exportOut, exportFormat)
	},
}

func runCSVExport(postProcessedDir, outputDir string) error {
	stats, err := export.ExportAll(postProcessedDir, outputDir)
	if err != nil {
		return fmt.Errorf("csv export failed: %w", err)
	}

	internal.PrintSuccess(fmt.Sprintf("Exported %d LLM facial, %d PHQ facial, %d PHQ score row(s) to %s",
		stats.LLMFacial.Exported, stats.PHQFacial.Exported, stats.PHQScores.Exported, outputDir))
	for model, modelStats := range stats.Evaluations {
		internal.PrintSuccess(fmt.Sprintf("Exported %d evaluation row(s) for %s", modelStats.Exported, model))
	}
	return nil
}

func runResultsExport(postProcessedDir, outputDir, format string) error {
	exporter, err := export.NewExporter(format)
	if err != nil {
		return err
	}

	results, err := loadProcessedResults(postProcessedDir)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		internal.PrintWarning(fmt.Sprintf("No processed results found in %s", postProcessedDir))
		return nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputFile := filepath.Join(outputDir, "results."+exporter.Extension())
	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outputFile, err)
	}
	defer func() { _ = f.Close() }()

	if err := exporter.Export(results, f); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	internal.PrintSuccess(fmt.Sprintf("Exported %d result(s) to %s", len(results), outputFile))
	return nil
}

func loadProcessedResults(postProcessedDir string) ([]*internal.ProcessedResult, error) {
	matches, err := filepath.Glob(filepath.Join(postProcessedDir, "*", internal.ResultFileName))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var results []*internal.ProcessedResult
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			internal.LogWarn("Skipping unreadable result %s: %v", path, err)
			continue
		}
		var result internal.ProcessedResult
		if err := json.Unmarshal(data, &result); err != nil {
			internal.LogWarn("Skipping malformed result %s: %v", path, err)
			continue
		}
		results = append(results, &result)
	}
	return results, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format (json, jsonl, yaml)")
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "post_processed", "Directory containing processed sessions")
	exportCmd.Flags().StringVarP(&exportOut, "out", "O", "csv_exports", "Output directory for exports")
	exportCmd.Flags().BoolVar(&exportCSV, "csv", false, "Write flattened CSV datasets instead of a combined results file")
}
