package store

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/valpere/scrapping/internal/pipeline"
)

var (
	bboltURLsBucket   = []byte("dedupe_urls")
	bboltHashesBucket = []byte("dedupe_hashes")
)

// BboltDedupeStore backs pipeline.DedupeStore with an embedded bbolt file,
// a lighter-weight alternative to a full SQL dedupe store for single-host
// runs.
type BboltDedupeStore struct {
	db *bbolt.DB
}

// NewBboltDedupeStore opens (creating if needed) a bbolt file at path.
func NewBboltDedupeStore(path string) (*BboltDedupeStore, error) {
	db, err := bbolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt dedupe store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bboltURLsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bboltHashesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init bbolt dedupe buckets: %w", err)
	}
	return &BboltDedupeStore{db: db}, nil
}

func bboltKey(sourceID, id string) []byte { return []byte(sourceID + "\x00" + id) }

func (s *BboltDedupeStore) seen(bucket []byte, sourceID, id string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucket).Get(bboltKey(sourceID, id))
		found = v != nil
		return nil
	})
	return found, err
}

func (s *BboltDedupeStore) mark(bucket []byte, sourceID, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put(bboltKey(sourceID, id), []byte{1})
	})
}

func (s *BboltDedupeStore) SeenURL(_ context.Context, sourceID, url string) (bool, error) {
	return s.seen(bboltURLsBucket, sourceID, url)
}

func (s *BboltDedupeStore) MarkURL(_ context.Context, sourceID, url string) error {
	return s.mark(bboltURLsBucket, sourceID, url)
}

func (s *BboltDedupeStore) SeenContentHash(_ context.Context, sourceID, hash string) (bool, error) {
	return s.seen(bboltHashesBucket, sourceID, hash)
}

func (s *BboltDedupeStore) MarkContentHash(_ context.Context, sourceID, hash string) error {
	return s.mark(bboltHashesBucket, sourceID, hash)
}

func (s *BboltDedupeStore) Close() error { return s.db.Close() }

var _ pipeline.DedupeStore = (*BboltDedupeStore)(nil)
