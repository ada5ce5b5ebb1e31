package pe

// DllCharacteristics bits carrying the mitigation advertisements.
const (
	DLLCharacteristicsHighEntropyVA       uint16 = 0x0020
	DLLCharacteristicsDynamicBase         uint16 = 0x0040
	DLLCharacteristicsForceIntegrity      uint16 = 0x0080
	DLLCharacteristicsNXCompat            uint16 = 0x0100
	DLLCharacteristicsNoIsolation         uint16 = 0x0200
	DLLCharacteristicsNoSEH               uint16 = 0x0400
	DLLCharacteristicsNoBind              uint16 = 0x0800
	DLLCharacteristicsAppContainer        uint16 = 0x1000
	DLLCharacteristicsWDMDriver           uint16 = 0x2000
	DLLCharacteristicsGuardCF             uint16 = 0x4000
	DLLCharacteristicsTerminalServerAware uint16 = 0x8000
)

// MitigationFlags is the decoded view of a DllCharacteristics field.
// Each flag mirrors exactly one bit; NoSEH carries the raw NO_SEH bit,
// which when set means the image opts out of SEH dispatch entirely.
type MitigationFlags struct {
	HighEntropyASLR     bool `json:"high_entropy_aslr"`
	ASLR                bool `json:"aslr"`
	ForceIntegrity      bool `json:"force_integrity"`
	DEP                 bool `json:"dep"`
	NoIsolation         bool `json:"no_isolation"`
	NoSEH               bool `json:"no_seh"`
	NoBind              bool `json:"no_bind"`
	AppContainer        bool `json:"app_container"`
	WDMDriver           bool `json:"wdm_driver"`
	CFG                 bool `json:"cfg"`
	TerminalServerAware bool `json:"terminal_server_aware"`
}

// DecodeMitigations maps a DllCharacteristics value to its named flags.
// Total over all uint16 inputs; bits outside the known set are ignored.
func DecodeMitigations(characteristics uint16) MitigationFlags {
	return MitigationFlags{
		HighEntropyASLR:     characteristics&DLLCharacteristicsHighEntropyVA != 0,
		ASLR:                characteristics&DLLCharacteristicsDynamicBase != 0,
		ForceIntegrity:      characteristics&DLLCharacteristicsForceIntegrity != 0,
		DEP:                 characteristics&DLLCharacteristicsNXCompat != 0,
		NoIsolation:         characteristics&DLLCharacteristicsNoIsolation != 0,
		NoSEH:               characteristics&DLLCharacteristicsNoSEH != 0,
		NoBind:              characteristics&DLLCharacteristicsNoBind != 0,
		AppContainer:        characteristics&DLLCharacteristicsAppContainer != 0,
		WDMDriver:           characteristics&DLLCharacteristicsWDMDriver != 0,
		CFG:                 characteristics&DLLCharacteristicsGuardCF != 0,
		TerminalServerAware: characteristics&DLLCharacteristicsTerminalServerAware != 0,
	}
}
