// Package report derives the fleet-wide mitigation report from a run's
// record set. Summarize is a pure pass over an immutable snapshot; it is
// recomputed from scratch on every request and never cached.
package report

import (
	"pescan/internal/pe"
	"pescan/internal/store/models"
)

// ArchCounts partitions the record set into the four architecture
// labels. The four counts always sum to the total record count.
type ArchCounts struct {
	I386    int
	AMD64   int
	IA64    int
	Unknown int
}

// DisabledCounts holds, per mitigation, the number of records whose
// corresponding characteristics bit is clear — the count of files
// lacking that hardening. SEHGuard is derived from the NO_SEH bit and is
// named for the missing protection rather than the bit: a clear NO_SEH
// bit means the image still dispatches SEH and carries no opt-out guard.
type DisabledCounts struct {
	ASLR                int
	DEP                 int
	SEHGuard            int
	CFG                 int
	HighEntropyASLR     int
	ForceIntegrity      int
	NoIsolation         int
	NoBind              int
	AppContainer        int
	WDMDriver           int
	TerminalServerAware int
}

// Summary is the derived fleet-wide view of one run. It is never stored.
type Summary struct {
	TotalRecords int
	NumExe       int
	NumDll       int
	Architecture ArchCounts
	Disabled     DisabledCounts

	// RiskFiles lists the paths of records with none of CFG, ASLR, DEP
	// or the SEH guard active, in record insertion order.
	RiskFiles []string
}

// Summarize computes the Summary for a record set.
func Summarize(records []models.Record) Summary {
	s := Summary{TotalRecords: len(records)}

	for _, r := range records {
		switch r.Extension {
		case ".exe":
			s.NumExe++
		case ".dll":
			s.NumDll++
		}

		switch r.Architecture {
		case pe.ArchI386:
			s.Architecture.I386++
		case pe.ArchAMD64:
			s.Architecture.AMD64++
		case pe.ArchIA64:
			s.Architecture.IA64++
		default:
			s.Architecture.Unknown++
		}

		f := r.Flags
		if !f.ASLR {
			s.Disabled.ASLR++
		}
		if !f.DEP {
			s.Disabled.DEP++
		}
		if !f.NoSEH {
			s.Disabled.SEHGuard++
		}
		if !f.CFG {
			s.Disabled.CFG++
		}
		if !f.HighEntropyASLR {
			s.Disabled.HighEntropyASLR++
		}
		if !f.ForceIntegrity {
			s.Disabled.ForceIntegrity++
		}
		if !f.NoIsolation {
			s.Disabled.NoIsolation++
		}
		if !f.NoBind {
			s.Disabled.NoBind++
		}
		if !f.AppContainer {
			s.Disabled.AppContainer++
		}
		if !f.WDMDriver {
			s.Disabled.WDMDriver++
		}
		if !f.TerminalServerAware {
			s.Disabled.TerminalServerAware++
		}

		if !f.CFG && !f.ASLR && !f.DEP && !f.NoSEH {
			s.RiskFiles = append(s.RiskFiles, r.FilePath)
		}
	}

	return s
}

// Percent returns count as a percentage of the total record count,
// guarded against an empty run.
func (s Summary) Percent(count int) float64 {
	if s.TotalRecords == 0 {
		return 0
	}
	return float64(count) / float64(s.TotalRecords) * 100
}
