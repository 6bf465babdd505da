package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	RecordsBucket = "records"
	MetaBucket    = "meta"

	lastSavedKey = "last_saved"
)

// BoltBackend keeps one JSON value per record in a bbolt bucket.
type BoltBackend struct {
	db *bbolt.DB
}

func NewBoltBackend(dbPath string) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	b := &BoltBackend{db: db}
	if err := b.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}
	return b, nil
}

func (b *BoltBackend) initBuckets() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range []string{RecordsBucket, MetaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

func (b *BoltBackend) Name() string { return "bolt" }

func (b *BoltBackend) Close() error {
	return b.db.Close()
}

func (b *BoltBackend) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(RecordsBucket))
		return bucket.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("%w: record %s: %v", ErrCorrupt, string(k), err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Save swaps the records bucket for a fresh one in a single transaction.
func (b *BoltBackend) Save(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(RecordsBucket)); err != nil {
			return fmt.Errorf("failed to drop records bucket: %w", err)
		}
		bucket, err := tx.CreateBucket([]byte(RecordsBucket))
		if err != nil {
			return fmt.Errorf("failed to create records bucket: %w", err)
		}

		for _, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to marshal record: %w", err)
			}
			if err := bucket.Put([]byte(rec.ID.String()), data); err != nil {
				return fmt.Errorf("failed to put record %s: %w", rec.ID, err)
			}
		}

		stamp, err := time.Now().UTC().MarshalText()
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(MetaBucket)).Put([]byte(lastSavedKey), stamp)
	})
}

func (b *BoltBackend) LastSaved(ctx context.Context) (time.Time, error) {
	var last time.Time
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(MetaBucket)).Get([]byte(lastSavedKey))
		if data == nil {
			return nil
		}
		return last.UnmarshalText(data)
	})
	return last, err
}
