package publishers

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var ledgerBucket = []byte("published_headlines")

// Ledger records headline IDs that already went out in a digest, so repeated
// runs over unchanged feeds don't resend the same headlines. This state is
// owned entirely by the publishing side; the aggregation pipeline itself
// stays stateless.
type Ledger struct {
	db *bolt.DB
}

// OpenLedger opens (or creates) the bbolt-backed ledger at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(ledgerBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init ledger bucket: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close releases the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// FilterNew returns the headlines not yet recorded in the ledger.
func (l *Ledger) FilterNew(headlines []DigestHeadline) ([]DigestHeadline, error) {
	var fresh []DigestHeadline
	err := l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(ledgerBucket)
		for _, h := range headlines {
			if b.Get([]byte(h.ID)) == nil {
				fresh = append(fresh, h)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return fresh, nil
}

// Record marks the given headlines as published.
func (l *Ledger) Record(headlines []DigestHeadline) error {
	if len(headlines) == 0 {
		return nil
	}
	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(ledgerBucket)
		for _, h := range headlines {
			if err := b.Put([]byte(h.ID), stamp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
