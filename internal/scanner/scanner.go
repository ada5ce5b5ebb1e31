// Package scanner walks a corpus of .exe/.dll files, deduplicates them
// by content digest, decodes their PE mitigation flags and appends one
// durable record per unique binary. Every per-file failure is isolated:
// it is written to the run log and the walk moves on.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"pescan/internal/identity"
	"pescan/internal/pe"
	"pescan/internal/store"
	"pescan/internal/store/models"
)

// Config wires the orchestrator's collaborators.
type Config struct {
	Root        string
	AnalysisTag string
	Provider    pe.HeaderProvider
	Store       store.Store
	RunLog      *logrus.Logger

	// Workers bounds concurrent file processing. The default of 1 keeps
	// the original strictly sequential behavior; higher values are safe
	// because the store's insert-if-absent is atomic per digest.
	Workers int64

	// Progress receives the monotonic processed count after every file,
	// whatever its outcome. total is 0 when the pre-pass failed.
	Progress func(done, total int)

	// OnPrecount receives the candidate total once the pre-pass succeeds,
	// before the first file is analyzed. Not called on pre-pass failure.
	OnPrecount func(total int)
}

// Result are the counters of one completed run.
type Result struct {
	Candidates int // pre-pass total; 0 when the pre-pass failed
	Recorded   int
	Duplicates int
	Failed     int
}

// Scanner executes one analysis run.
type Scanner struct {
	cfg Config
	sem *semaphore.Weighted
}

func New(cfg Config) *Scanner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Progress == nil {
		cfg.Progress = func(int, int) {}
	}
	return &Scanner{cfg: cfg, sem: semaphore.NewWeighted(cfg.Workers)}
}

// IsCandidate reports whether a file name is in scope for the audit.
func IsCandidate(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".exe") || strings.HasSuffix(lower, ".dll")
}

// CountCandidates walks the root once to establish the progress-bar
// denominator before any file is analyzed.
func (s *Scanner) CountCandidates() (int, error) {
	count := 0
	err := filepath.WalkDir(s.cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsCandidate(d.Name()) {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("candidate pre-count: %w", err)
	}
	return count, nil
}

// Run executes the pre-pass and the main pass. The returned error covers
// traversal of the root only; per-file failures are counted and logged,
// never propagated.
func (s *Scanner) Run(ctx context.Context) (Result, error) {
	var result Result

	total, err := s.CountCandidates()
	if err != nil {
		// Degrades progress reporting only; the scan still runs.
		s.cfg.RunLog.WithError(err).Error("Error in files pre-count")
		total = 0
	} else if s.cfg.OnPrecount != nil {
		s.cfg.OnPrecount(total)
	}
	result.Candidates = total

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		done int
	)
	finish := func(o outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch o {
		case outcomeRecorded:
			result.Recorded++
		case outcomeDuplicate:
			result.Duplicates++
		case outcomeFailed:
			result.Failed++
		}
		done++
		s.cfg.Progress(done, total)
	}

	walkErr := filepath.WalkDir(s.cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.cfg.RunLog.WithField("path", path).WithError(err).Error("Error traversing corpus")
			return nil
		}
		if d.IsDir() || !IsCandidate(d.Name()) {
			return nil
		}

		if s.cfg.Workers == 1 {
			finish(s.processFile(ctx, path))
			return nil
		}

		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.cfg.RunLog.WithError(err).Error("Failed to acquire worker slot")
			return err
		}
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			defer s.sem.Release(1)
			finish(s.processFile(ctx, p))
		}(path)
		return nil
	})
	wg.Wait()

	if walkErr != nil {
		return result, fmt.Errorf("corpus traversal: %w", walkErr)
	}
	return result, nil
}

type outcome int

const (
	outcomeRecorded outcome = iota
	outcomeDuplicate
	outcomeFailed
)

// processFile runs the per-file pipeline: hash, dedup check, header
// parse, decode, durable append. Each failure class is logged with the
// file path and contained here.
func (s *Scanner) processFile(ctx context.Context, path string) outcome {
	digest, err := identity.ComputeFile(path)
	if err != nil {
		s.cfg.RunLog.WithField("path", path).WithError(err).Error("Error calculating file hash")
		return outcomeFailed
	}

	seen, err := s.cfg.Store.HasDigest(ctx, digest)
	if err != nil {
		s.cfg.RunLog.WithField("path", path).WithError(err).Error("Error querying store for digest")
		return outcomeFailed
	}
	if seen {
		// Byte-identical to an earlier file: a skip, not an error. The
		// header is not re-parsed.
		return outcomeDuplicate
	}

	fields, err := s.cfg.Provider.ParseHeader(path)
	if err != nil {
		s.cfg.RunLog.WithField("path", path).WithError(err).Error("Error in file")
		return outcomeFailed
	}

	record := models.Record{
		AnalysisTag:  s.cfg.AnalysisTag,
		RootPath:     s.cfg.Root,
		FilePath:     path,
		FileName:     filepath.Base(path),
		Extension:    strings.ToLower(filepath.Ext(path)),
		Architecture: pe.ResolveArchitecture(fields.Machine),
		Digest:       digest,
		Flags:        pe.DecodeMitigations(fields.Characteristics),
	}

	err = s.cfg.Store.AddRecord(ctx, record)
	if errors.Is(err, store.ErrDuplicateRecord) {
		// Another worker recorded the same bytes between the existence
		// check and the insert.
		return outcomeDuplicate
	}
	if err != nil {
		s.cfg.RunLog.WithField("path", path).WithError(err).Error("Error inserting record")
		return outcomeFailed
	}
	return outcomeRecorded
}
