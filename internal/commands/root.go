// Package commands wires the CLI: argument parsing, the run lifecycle
// (log file, store, scan, report, export, teardown) and the version
// subcommand.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

var rootCmd = &cobra.Command{
	Use:   "pescan <directory> <analysis-tag>",
	Short: "pescan — PE binary hardening auditor",
	Long: `pescan walks a directory tree of Windows binaries (.exe, .dll), decodes
the mitigation flags of each unique file (ASLR, DEP, SEH, CFG, ...) and
prints a fleet-wide report of which protections are missing.

Byte-identical files are analyzed once; results can be exported to a CSV
file or a replayable SQL script.`,
	Args:          cobra.ExactArgs(2),
	RunE:          runScan,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with injected build info.
func Execute(v, c, d string) error {
	version = v
	commit = c
	date = d
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVar(&scanFlags.export, "export", "", "Export format: csv, sql or none (skips the prompt)")
	rootCmd.Flags().BoolVar(&scanFlags.noProgress, "no-progress", false, "Disable the progress bar")
	rootCmd.AddCommand(versionCmd)
}
