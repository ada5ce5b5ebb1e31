// Package models holds the persisted shape of one analyzed binary.
package models

import "pescan/internal/pe"

// Record is the durable result of analyzing one unique binary. Exactly
// one Record exists per content digest within a run; it is never mutated
// after creation.
type Record struct {
	AnalysisTag  string             `json:"analysis_tag"`
	RootPath     string             `json:"root_path"`
	FilePath     string             `json:"file_path"`
	FileName     string             `json:"file_name"`
	Extension    string             `json:"file_extension"`
	Architecture pe.Architecture    `json:"architecture"`
	Digest       string             `json:"file_hash"`
	Flags        pe.MitigationFlags `json:"flags"`
}

// Columns is the fixed 18-column schema order shared by the SQLite
// backend and both export formats.
var Columns = []string{
	"id_analysis", "root_folder", "file_path", "file_name",
	"file_extension", "architecture", "file_hash",
	"ASLR", "DEP", "SEH", "CFG", "HIGH_ENTROPY", "FORCE_INTEGRITY",
	"NO_ISOLATION", "NO_BIND", "APPCONTAINER", "WDM_DRIVER",
	"TERMINAL_SERVER_AWARE",
}

// FlagValues returns the 11 flags in schema column order. The SEH column
// stores the raw NO_SEH characteristics bit.
func (r Record) FlagValues() []bool {
	return []bool{
		r.Flags.ASLR, r.Flags.DEP, r.Flags.NoSEH, r.Flags.CFG,
		r.Flags.HighEntropyASLR, r.Flags.ForceIntegrity,
		r.Flags.NoIsolation, r.Flags.NoBind, r.Flags.AppContainer,
		r.Flags.WDMDriver, r.Flags.TerminalServerAware,
	}
}
