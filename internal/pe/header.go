package pe

import (
	debugpe "debug/pe"
	"fmt"
)

// HeaderFields are the two raw header values the audit consumes.
type HeaderFields struct {
	Characteristics uint16 // OptionalHeader.DllCharacteristics
	Machine         uint32 // FileHeader.Machine
}

// HeaderProvider parses a file as a PE image and returns its header
// fields, or a format error when the file is not a well-formed PE.
type HeaderProvider interface {
	ParseHeader(path string) (HeaderFields, error)
}

// FileHeaderProvider is the default HeaderProvider, backed by debug/pe.
type FileHeaderProvider struct{}

func (FileHeaderProvider) ParseHeader(path string) (HeaderFields, error) {
	f, err := debugpe.Open(path)
	if err != nil {
		return HeaderFields{}, fmt.Errorf("parse PE image: %w", err)
	}
	defer f.Close()

	fields := HeaderFields{Machine: uint32(f.FileHeader.Machine)}

	switch oh := f.OptionalHeader.(type) {
	case *debugpe.OptionalHeader32:
		fields.Characteristics = oh.DllCharacteristics
	case *debugpe.OptionalHeader64:
		fields.Characteristics = oh.DllCharacteristics
	default:
		// Object files have no optional header; the audit needs one.
		return HeaderFields{}, fmt.Errorf("parse PE image %s: missing optional header", path)
	}

	return fields, nil
}
