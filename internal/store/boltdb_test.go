package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"pescan/internal/pe"
	"pescan/internal/store/models"
)

func newTestStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.db")
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	s, err := NewBoltStore(path, logger)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s, path
}

func testRecord(digest, name string) models.Record {
	return models.Record{
		AnalysisTag:  "run1",
		RootPath:     "/corpus",
		FilePath:     "/corpus/" + name,
		FileName:     name,
		Extension:    ".exe",
		Architecture: pe.ArchAMD64,
		Digest:       digest,
		Flags:        pe.MitigationFlags{ASLR: true, DEP: true},
	}
}

func TestAddRecordAndHasDigest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.AddRecord(ctx, testRecord("d1", "a.exe")); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}

	found, err := s.HasDigest(ctx, "d1")
	if err != nil {
		t.Fatalf("HasDigest: %v", err)
	}
	if !found {
		t.Error("HasDigest(d1) = false after insert")
	}

	found, err = s.HasDigest(ctx, "other")
	if err != nil {
		t.Fatalf("HasDigest: %v", err)
	}
	if found {
		t.Error("HasDigest(other) = true for unseen digest")
	}
}

func TestAddRecordRejectsDuplicateDigest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.AddRecord(ctx, testRecord("d1", "a.exe")); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	// Same bytes under a different path must be rejected.
	err := s.AddRecord(ctx, testRecord("d1", "copy_of_a.exe"))
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("AddRecord duplicate: err = %v, want ErrDuplicateRecord", err)
	}

	count, err := s.CountRecords(ctx)
	if err != nil {
		t.Fatalf("CountRecords: %v", err)
	}
	if count != 1 {
		t.Errorf("CountRecords = %d, want 1", count)
	}
}

func TestLoadRecordsPreservesInsertionOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Digests chosen in reverse lexical order to catch key-ordered reads.
	names := []string{"z.exe", "m.exe", "a.exe"}
	for i, name := range names {
		if err := s.AddRecord(ctx, testRecord(fmt.Sprintf("%c", 'z'-i), name)); err != nil {
			t.Fatalf("AddRecord %s: %v", name, err)
		}
	}

	records, err := s.LoadRecords(ctx)
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(records) != len(names) {
		t.Fatalf("len(records) = %d, want %d", len(records), len(names))
	}
	for i, name := range names {
		if records[i].FileName != name {
			t.Errorf("records[%d].FileName = %s, want %s", i, records[i].FileName, name)
		}
	}
}

func TestRecordsSurviveReopen(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	want := testRecord("d1", "a.exe")
	if err := s.AddRecord(ctx, want); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	reopened, err := NewBoltStore(path, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close(ctx)

	records, err := reopened.LoadRecords(ctx)
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0] != want {
		t.Errorf("record = %+v, want %+v", records[0], want)
	}
}

func TestLoadConfigDefaultsToBolt(t *testing.T) {
	t.Setenv("PESCAN_STORE", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Type != "bolt" {
		t.Errorf("Type = %s, want bolt", cfg.Type)
	}
}

func TestLoadConfigRejectsUnknownType(t *testing.T) {
	t.Setenv("PESCAN_STORE", "redis")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig accepted unsupported store type")
	}
}
