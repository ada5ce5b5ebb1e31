package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pescan/internal/export"
	"pescan/internal/notify"
	"pescan/internal/pe"
	"pescan/internal/report"
	"pescan/internal/runlog"
	"pescan/internal/scanner"
	"pescan/internal/store"
	"pescan/internal/store/models"
)

var scanFlags struct {
	export     string
	noProgress bool
}

// runBaseName derives the shared base for the run's artifacts (log,
// store, exports). Colons are unsafe in Windows file names.
func runBaseName(tag string, now time.Time) string {
	stamp := strings.ReplaceAll(now.Format("2006-01-02 15:04:05.000000"), ":", "_")
	return tag + "__" + stamp
}

func runScan(cmd *cobra.Command, args []string) error {
	root, tag := args[0], args[1]
	ctx := cmd.Context()

	// Validate the export flag before any artifact is created.
	format, prompt, err := parseExportFlag(scanFlags.export)
	if err != nil {
		return err
	}

	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found for pescan configuration. Proceeding with environment variables.")
	}

	base := runBaseName(tag, time.Now())
	logFilename := base + ".log"

	runLog, closeLog, err := runlog.New(logFilename)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer closeLog()

	storeCfg, err := store.LoadConfig()
	if err != nil {
		return err
	}
	runStore, err := store.Open(storeCfg, base+".db", runLog)
	if err != nil {
		runLog.WithError(err).Error("Error in database initialization")
		return fmt.Errorf("database initialization (check user permissions in this directory): %w", err)
	}
	storePath := runStore.Path()

	out := cmd.OutOrStdout()

	progress := scanner.BarPrinter(cmd.ErrOrStderr())
	if scanFlags.noProgress {
		progress = nil
	}

	result, err := scanner.New(scanner.Config{
		Root:        root,
		AnalysisTag: tag,
		Provider:    pe.FileHeaderProvider{},
		Store:       runStore,
		RunLog:      runLog,
		Workers:     scanner.LoadEnvConfig().Workers,
		Progress:    progress,
		OnPrecount: func(total int) {
			fmt.Fprintf(out, "\n%d .EXE and .DLL files found in %s\n", total, root)
		},
	}).Run(ctx)
	if err != nil {
		runStore.Close(ctx)
		return err
	}

	// A statistics failure must not lose the scan, but it leaves the
	// record set unknown and disqualifies the export below.
	var riskCount int
	records, loadErr := runStore.LoadRecords(ctx)
	if loadErr != nil {
		runLog.WithError(loadErr).Error("Failed to retrieve statistics from DB")
		fmt.Fprintf(out, "Error: Failed to retrieve statistics from DB\n\tError info: %v\n", loadErr)
	} else {
		summary := report.Summarize(records)
		riskCount = len(summary.RiskFiles)
		if err := report.Render(out, summary, result.Candidates); err != nil {
			runLog.WithError(err).Error("Failed to print statistics")
		}
	}

	fmt.Fprintf(out, "\nErrors exported to %s\n", logFilename)

	if prompt {
		format = promptExportChoice(cmd.InOrStdin(), out)
	}
	if format != export.FormatNone {
		exportRecords(out, runLog, base, format, records, loadErr)
	}

	// The store is a per-run scratch file; the log, report and exports
	// are the durable outputs.
	if err := runStore.Close(ctx); err != nil {
		runLog.WithError(err).Error("Error closing database")
	}
	if err := os.Remove(storePath); err != nil {
		runLog.WithError(err).Error("Error. Unable to remove database")
	}

	notifier, err := notify.FromEnv()
	if err != nil {
		runLog.WithError(err).Error("Failed to configure notifications")
	}
	notifier.Send("pescan", fmt.Sprintf(
		"Analysis %q finished: %d unique binaries recorded, %d duplicates, %d failed, %d without any active guard",
		tag, result.Recorded, result.Duplicates, result.Failed, riskCount))

	return nil
}

// exportRecords writes the chosen export file. A record set that could
// not be loaded is an export failure up front: writing a header-only
// file and claiming success would bury the load error.
func exportRecords(out io.Writer, runLog *logrus.Logger, base string, format export.Format, records []models.Record, loadErr error) {
	if loadErr != nil {
		runLog.WithError(loadErr).Error("Error in data export")
		fmt.Fprintf(out, "Error in data export:\n\tError info: %v\n", loadErr)
		return
	}
	name, err := export.Write(base, format, records)
	if err != nil {
		runLog.WithError(err).Error("Error in data export")
		fmt.Fprintf(out, "Error in data export:\n\tError info: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Data exported to %s\n", name)
}

// parseExportFlag maps the --export value. prompt is true when no value
// was given and the operator must be asked interactively.
func parseExportFlag(value string) (format export.Format, prompt bool, err error) {
	switch strings.ToLower(value) {
	case "":
		return export.FormatNone, true, nil
	case "none", "n":
		return export.FormatNone, false, nil
	case "csv", "c":
		return export.FormatCSV, false, nil
	case "sql", "s":
		return export.FormatSQL, false, nil
	default:
		return export.FormatNone, false, fmt.Errorf("unsupported export format: %s (use csv, sql or none)", value)
	}
}

// promptExportChoice asks until one of n/s/c is entered. Input running
// out counts as a refusal.
func promptExportChoice(in io.Reader, out io.Writer) export.Format {
	fmt.Fprintln(out, "\nExport data? Press:")
	fmt.Fprintln(out, "\t n -- Don't export")
	fmt.Fprintln(out, "\t s -- Export to SQL script")
	fmt.Fprintln(out, "\t c -- Export to CSV file")

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "n":
			return export.FormatNone
		case "s":
			return export.FormatSQL
		case "c":
			return export.FormatCSV
		}
		fmt.Fprintln(out, "Please, enter a valid option [[n]/[s]/[c]]")
	}
	return export.FormatNone
}
