package pe

// Architecture is the canonical label for a PE machine type.
type Architecture string

const (
	ArchI386    Architecture = "I386"
	ArchIA64    Architecture = "IA64"
	ArchAMD64   Architecture = "AMD64"
	ArchUnknown Architecture = "Unknown"
)

// IMAGE_FILE_MACHINE values recognized by the resolver.
const (
	MachineI386  uint32 = 0x014c
	MachineIA64  uint32 = 0x0200
	MachineAMD64 uint32 = 0x8664
)

// ResolveArchitecture maps a machine-type code to its architecture label.
// Total: any code outside the known set resolves to ArchUnknown.
func ResolveArchitecture(machine uint32) Architecture {
	switch machine {
	case MachineI386:
		return ArchI386
	case MachineIA64:
		return ArchIA64
	case MachineAMD64:
		return ArchAMD64
	default:
		return ArchUnknown
	}
}
