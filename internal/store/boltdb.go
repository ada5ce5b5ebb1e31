package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"pescan/internal/store/models"
)

var (
	bucketRecords = []byte("Records")
	bucketDigests = []byte("Digests")
)

// BoltStore implements Store on bbolt. Records are keyed by an insertion
// sequence number so LoadRecords preserves insertion order; a second
// bucket maps digest to sequence key for the existence check.
type BoltStore struct {
	db     *bbolt.DB
	path   string
	logger *logrus.Logger
}

// NewBoltStore opens (creating if needed) the backing file and sets up
// the buckets.
func NewBoltStore(path string, logger *logrus.Logger) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}

	s := &BoltStore{db: db, path: path, logger: logger}
	if err := s.Initialize(context.TODO()); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize bolt store: %w", err)
	}
	return s, nil
}

// Initialize sets up the necessary buckets.
func (s *BoltStore) Initialize(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRecords); err != nil {
			return fmt.Errorf("create Records bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketDigests); err != nil {
			return fmt.Errorf("create Digests bucket: %w", err)
		}
		return nil
	})
}

func (s *BoltStore) Close(context.Context) error {
	return s.db.Close()
}

func (s *BoltStore) Path() string {
	return s.path
}

// AddRecord appends a record inside a single write transaction: the
// digest check and both puts commit together, and bbolt fsyncs on
// commit, so the record is durable before the next file is processed.
func (s *BoltStore) AddRecord(ctx context.Context, record models.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		digests := tx.Bucket(bucketDigests)
		records := tx.Bucket(bucketRecords)

		if digests.Get([]byte(record.Digest)) != nil {
			return ErrDuplicateRecord
		}

		seq, err := records.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		if err := records.Put(key, data); err != nil {
			return err
		}
		return digests.Put([]byte(record.Digest), key)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"digest": record.Digest,
		"file":   record.FileName,
	}).Debug("Record stored")
	return nil
}

func (s *BoltStore) HasDigest(ctx context.Context, digest string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketDigests).Get([]byte(digest)) != nil
		return nil
	})
	return found, err
}

func (s *BoltStore) LoadRecords(ctx context.Context) ([]models.Record, error) {
	var records []models.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			var record models.Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshal record %x: %w", k, err)
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *BoltStore) CountRecords(ctx context.Context) (int, error) {
	var count int
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(bucketRecords).Stats().KeyN
		return nil
	})
	return count, err
}
