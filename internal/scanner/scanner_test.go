package scanner

import (
	"bytes"
	"context"
	debugpe "debug/pe"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"pescan/internal/pe"
	"pescan/internal/store"
)

// peImage assembles a minimal PE32 image with the given machine code and
// DllCharacteristics, padded so byte-identical inputs can be varied.
func peImage(t *testing.T, machine uint16, characteristics uint16, pad byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	dos := make([]byte, 0x40)
	dos[0], dos[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(dos[0x3c:], 0x40)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")

	fh := debugpe.FileHeader{
		Machine:              machine,
		SizeOfOptionalHeader: uint16(binary.Size(debugpe.OptionalHeader32{})),
		Characteristics:      0x0102,
	}
	if err := binary.Write(&buf, binary.LittleEndian, fh); err != nil {
		t.Fatal(err)
	}
	oh := debugpe.OptionalHeader32{
		Magic:               0x10b,
		DllCharacteristics:  characteristics,
		NumberOfRvaAndSizes: 16,
	}
	if err := binary.Write(&buf, binary.LittleEndian, oh); err != nil {
		t.Fatal(err)
	}
	buf.WriteByte(pad)
	return buf.Bytes()
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newRunStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "run.db"), quietLogger())
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// Corpus: A with ASLR+DEP, B with all flags, C byte-identical to A, and
// a non-PE file misnamed .dll. Expect two records, one skip, one
// isolated failure.
func TestRunScenario(t *testing.T) {
	dir := t.TempDir()
	aslrDep := pe.DLLCharacteristicsDynamicBase | pe.DLLCharacteristicsNXCompat
	imageA := peImage(t, 0x014c, aslrDep, 0)
	writeFile(t, dir, "a.exe", imageA)
	writeFile(t, dir, "b.exe", peImage(t, 0x8664, 0xffe0, 0))
	writeFile(t, dir, "c.exe", imageA)
	writeFile(t, dir, "notpe.dll", []byte("plain text wearing a dll suffix"))

	runStore := newRunStore(t)
	s := New(Config{
		Root:        dir,
		AnalysisTag: "scenario",
		Provider:    pe.FileHeaderProvider{},
		Store:       runStore,
		RunLog:      quietLogger(),
	})

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Candidates != 4 {
		t.Errorf("Candidates = %d, want 4", result.Candidates)
	}
	if result.Recorded != 2 {
		t.Errorf("Recorded = %d, want 2", result.Recorded)
	}
	if result.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1 (c.exe is byte-identical to a.exe)", result.Duplicates)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1 (the misnamed dll)", result.Failed)
	}

	records, err := runStore.LoadRecords(context.Background())
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	a, b := records[0], records[1]
	if a.FileName != "a.exe" || b.FileName != "b.exe" {
		t.Fatalf("records are %s, %s; want a.exe, b.exe", a.FileName, b.FileName)
	}
	if !a.Flags.ASLR || !a.Flags.DEP || a.Flags.CFG {
		t.Errorf("a.exe flags = %+v, want ASLR+DEP only", a.Flags)
	}
	if a.Architecture != pe.ArchI386 {
		t.Errorf("a.exe architecture = %s, want I386", a.Architecture)
	}
	if b.Architecture != pe.ArchAMD64 {
		t.Errorf("b.exe architecture = %s, want AMD64", b.Architecture)
	}
	if !b.Flags.CFG || !b.Flags.TerminalServerAware || !b.Flags.HighEntropyASLR {
		t.Errorf("b.exe flags = %+v, want all set", b.Flags)
	}
	if a.AnalysisTag != "scenario" || a.RootPath != dir {
		t.Errorf("record metadata = %s/%s, want scenario/%s", a.AnalysisTag, a.RootPath, dir)
	}
}

// Re-running over the same corpus with the same store must only skip.
func TestRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.exe", peImage(t, 0x014c, 0x0140, 0))

	runStore := newRunStore(t)
	cfg := Config{
		Root:        dir,
		AnalysisTag: "again",
		Provider:    pe.FileHeaderProvider{},
		Store:       runStore,
		RunLog:      quietLogger(),
	}

	first, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Recorded != 1 {
		t.Fatalf("first Recorded = %d, want 1", first.Recorded)
	}

	second, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Recorded != 0 || second.Duplicates != 1 || second.Failed != 0 {
		t.Errorf("second run = %+v, want only a duplicate skip", second)
	}

	count, err := runStore.CountRecords(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("CountRecords = %d, want 1", count)
	}
}

func TestRunParallelKeepsOneRecordPerDigest(t *testing.T) {
	dir := t.TempDir()
	image := peImage(t, 0x8664, 0x4140, 0)
	names := []string{"a.exe", "b.exe", "c.dll", "d.dll", "e.exe", "f.exe"}
	for _, name := range names {
		writeFile(t, dir, name, image)
	}

	runStore := newRunStore(t)
	result, err := New(Config{
		Root:        dir,
		AnalysisTag: "parallel",
		Provider:    pe.FileHeaderProvider{},
		Store:       runStore,
		RunLog:      quietLogger(),
		Workers:     4,
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Recorded != 1 {
		t.Errorf("Recorded = %d, want 1", result.Recorded)
	}
	if result.Duplicates != len(names)-1 {
		t.Errorf("Duplicates = %d, want %d", result.Duplicates, len(names)-1)
	}
	count, err := runStore.CountRecords(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("CountRecords = %d, want 1", count)
	}
}

func TestProgressIsMonotonicAcrossOutcomes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.exe", peImage(t, 0x014c, 0x0100, 0))
	writeFile(t, dir, "bad.dll", []byte("not a pe"))
	writeFile(t, dir, "skipped.txt", []byte("out of scope"))

	var calls [][2]int
	runStore := newRunStore(t)
	_, err := New(Config{
		Root:        dir,
		AnalysisTag: "progress",
		Provider:    pe.FileHeaderProvider{},
		Store:       runStore,
		RunLog:      quietLogger(),
		Progress:    func(done, total int) { calls = append(calls, [2]int{done, total}) },
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("progress called %d times, want 2 (txt files are not candidates)", len(calls))
	}
	for i, c := range calls {
		if c[0] != i+1 {
			t.Errorf("call %d: done = %d, want %d", i, c[0], i+1)
		}
		if c[1] != 2 {
			t.Errorf("call %d: total = %d, want 2", i, c[1])
		}
	}
}

func TestRunAnnouncesCandidateTotal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.exe", peImage(t, 0x014c, 0x0140, 0))
	writeFile(t, dir, "b.dll", peImage(t, 0x8664, 0x4140, 0))
	writeFile(t, dir, "notes.txt", []byte("out of scope"))

	var announced []int
	var progressed bool
	runStore := newRunStore(t)
	result, err := New(Config{
		Root:        dir,
		AnalysisTag: "precount",
		Provider:    pe.FileHeaderProvider{},
		Store:       runStore,
		RunLog:      quietLogger(),
		Progress: func(done, total int) {
			if len(announced) == 0 {
				progressed = true
			}
		},
		OnPrecount: func(total int) { announced = append(announced, total) },
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(announced) != 1 || announced[0] != 2 {
		t.Errorf("OnPrecount calls = %v, want one call with 2", announced)
	}
	if progressed {
		t.Error("progress reported before the candidate total was announced")
	}
	if result.Candidates != 2 {
		t.Errorf("Candidates = %d, want 2", result.Candidates)
	}
}

func TestIsCandidate(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"setup.exe", true},
		{"LIBRARY.DLL", true},
		{"Mixed.ExE", true},
		{"readme.txt", false},
		{"archive.exe.bak", false},
		{"exe", false},
	}
	for _, tt := range tests {
		if got := IsCandidate(tt.name); got != tt.want {
			t.Errorf("IsCandidate(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCountCandidatesMissingRoot(t *testing.T) {
	s := New(Config{
		Root:   filepath.Join(t.TempDir(), "missing"),
		RunLog: quietLogger(),
	})
	if _, err := s.CountCandidates(); err == nil {
		t.Fatal("CountCandidates succeeded on a missing root")
	}
}

func TestLoadEnvConfigWorkers(t *testing.T) {
	t.Setenv("PESCAN_WORKERS", "8")
	if cfg := LoadEnvConfig(); cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}

	t.Setenv("PESCAN_WORKERS", "zero")
	if cfg := LoadEnvConfig(); cfg.Workers != 1 {
		t.Errorf("Workers = %d, want 1 for invalid value", cfg.Workers)
	}
}
