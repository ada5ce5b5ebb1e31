package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"pescan/internal/pe"
	"pescan/internal/store/models"
)

// SQLiteStore implements Store on SQLite. The digest column is the
// primary key, so duplicate inserts are rejected by constraint rather
// than by a separate lookup. All statements are parameterized.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *logrus.Logger
}

// NewSQLiteStore opens the backing file and creates the schema.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	// SQLite does not support multiple writers well.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path, logger: logger}
	if err := s.Initialize(context.TODO()); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize sqlite store: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS file_info (
		id_analysis TEXT NOT NULL,
		root_folder TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_name TEXT NOT NULL,
		file_extension TEXT NOT NULL,
		architecture TEXT NOT NULL,
		file_hash TEXT NOT NULL PRIMARY KEY,
		ASLR INTEGER,
		DEP INTEGER,
		SEH INTEGER,
		CFG INTEGER,
		HIGH_ENTROPY INTEGER,
		FORCE_INTEGRITY INTEGER,
		NO_ISOLATION INTEGER,
		NO_BIND INTEGER,
		APPCONTAINER INTEGER,
		WDM_DRIVER INTEGER,
		TERMINAL_SERVER_AWARE INTEGER
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) AddRecord(ctx context.Context, record models.Record) error {
	query := `
	INSERT OR IGNORE INTO file_info (
		id_analysis, root_folder, file_path, file_name, file_extension,
		architecture, file_hash,
		ASLR, DEP, SEH, CFG, HIGH_ENTROPY, FORCE_INTEGRITY,
		NO_ISOLATION, NO_BIND, APPCONTAINER, WDM_DRIVER, TERMINAL_SERVER_AWARE
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	f := record.Flags
	res, err := s.db.ExecContext(ctx, query,
		record.AnalysisTag, record.RootPath, record.FilePath,
		record.FileName, record.Extension, string(record.Architecture),
		record.Digest,
		f.ASLR, f.DEP, f.NoSEH, f.CFG, f.HighEntropyASLR, f.ForceIntegrity,
		f.NoIsolation, f.NoBind, f.AppContainer, f.WDMDriver,
		f.TerminalServerAware,
	)
	if err != nil {
		s.logger.WithError(err).Errorf("AddRecord: failed to insert digest %s", record.Digest)
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDuplicateRecord
	}
	return nil
}

func (s *SQLiteStore) HasDigest(ctx context.Context, digest string) (bool, error) {
	var one int
	query := `SELECT 1 FROM file_info WHERE file_hash = ?;`
	err := s.db.QueryRowContext(ctx, query, digest).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		s.logger.WithError(err).Errorf("HasDigest: failed to query digest %s", digest)
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) LoadRecords(ctx context.Context) ([]models.Record, error) {
	query := `
	SELECT id_analysis, root_folder, file_path, file_name, file_extension,
		architecture, file_hash,
		ASLR, DEP, SEH, CFG, HIGH_ENTROPY, FORCE_INTEGRITY,
		NO_ISOLATION, NO_BIND, APPCONTAINER, WDM_DRIVER, TERMINAL_SERVER_AWARE
	FROM file_info
	ORDER BY rowid;
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.logger.WithError(err).Error("LoadRecords: failed to execute query")
		return nil, err
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var r models.Record
		var arch string
		f := &r.Flags
		err := rows.Scan(
			&r.AnalysisTag, &r.RootPath, &r.FilePath, &r.FileName,
			&r.Extension, &arch, &r.Digest,
			&f.ASLR, &f.DEP, &f.NoSEH, &f.CFG, &f.HighEntropyASLR,
			&f.ForceIntegrity, &f.NoIsolation, &f.NoBind, &f.AppContainer,
			&f.WDMDriver, &f.TerminalServerAware,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		r.Architecture = pe.Architecture(arch)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		s.logger.WithError(err).Error("LoadRecords: row iteration error")
		return nil, err
	}
	return records, nil
}

func (s *SQLiteStore) CountRecords(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM file_info;`
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		s.logger.WithError(err).Error("CountRecords: failed to execute query")
		return 0, err
	}
	return count, nil
}
