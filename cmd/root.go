package cmd

import (
	"fmt"
	"os"

	"github.com/sindi-lab/session-postproc/internal"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "session-postproc",
	Short: "Post-process recorded counseling sessions",
	Long: `A CLI tool to post-process recorded counseling sessions.

It aligns facial analysis frames with conversation turns, formats
transcripts, scores sessions for depression indicators with one or
more LLMs, and exports flattened CSV datasets.

Quick Start:
  session-postproc process                # Process every session folder
  session-postproc evaluate               # Score processed sessions
  session-postproc export --csv           # Export CSV datasets

Configuration is read from the environment (and an optional .env file)
using LLM_ and PROCESSOR_ prefixed variables.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
