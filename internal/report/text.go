package report

import (
	"fmt"
	"io"
	"strings"
)

// Render writes the operator-facing report. candidateCount is the
// pre-pass total; the difference to TotalRecords covers files that
// failed analysis or deduplicated to an earlier record.
func Render(w io.Writer, s Summary, candidateCount int) error {
	ew := &errWriter{w: w}

	ew.println("")
	ew.println("RESULTS:")
	ew.println(strings.Repeat("-", 78))
	ew.printf("Total files analyzed: %d\n", s.TotalRecords)

	if s.TotalRecords == 0 {
		ew.println("\nNo PE files recorded in this run.")
		ew.println(strings.Repeat("-", 78))
		return ew.err
	}

	ew.println("\nFile types:")
	ew.line("EXE", s.NumExe, s)
	ew.line("DLL", s.NumDll, s)
	if candidateCount > s.TotalRecords {
		skipped := candidateCount - s.TotalRecords
		ew.printf("\t\tFailed or duplicate: %d/%d\n", skipped, candidateCount)
	}

	ew.println("\nArchitecture:")
	ew.line("I386", s.Architecture.I386, s)
	ew.line("AMD64", s.Architecture.AMD64, s)
	ew.line("IA64", s.Architecture.IA64, s)
	ew.line("Other", s.Architecture.Unknown, s)

	ew.println("\nGuards:")
	ew.line("ASLR (disabled)", s.Disabled.ASLR, s)
	ew.line("DEP (disabled)", s.Disabled.DEP, s)
	ew.line("SEH guard (disabled)", s.Disabled.SEHGuard, s)
	ew.line("CFG (disabled)", s.Disabled.CFG, s)
	ew.line("HIGH_ENTROPY (disabled)", s.Disabled.HighEntropyASLR, s)
	ew.line("FORCE_INTEGRITY (disabled)", s.Disabled.ForceIntegrity, s)
	ew.line("NO_ISOLATION (unset)", s.Disabled.NoIsolation, s)
	ew.line("NO_BIND (unset)", s.Disabled.NoBind, s)
	ew.line("APP_CONTAINER (unset)", s.Disabled.AppContainer, s)
	ew.line("WDM_DRIVER (unset)", s.Disabled.WDMDriver, s)
	ew.line("TERMINAL_SERVER_AWARE (unset)", s.Disabled.TerminalServerAware, s)

	ew.println("\nFiles without any active guard:")
	if len(s.RiskFiles) == 0 {
		ew.println("\t\tNo files found.")
	} else {
		for _, path := range s.RiskFiles {
			ew.printf("\t\t%s\n", path)
		}
	}

	ew.println(strings.Repeat("-", 78))
	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func (ew *errWriter) line(label string, count int, s Summary) {
	ew.printf("\t\t%s: %d/%d (%.1f%%)\n", label, count, s.TotalRecords, s.Percent(count))
}
