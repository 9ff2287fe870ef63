package linkstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
)

const (
	PrefixLink = "link:"
	PrefixMeta = "meta:"

	lastScanKey = PrefixMeta + "last-scan"
)

// Source values for Record.Source
const (
	SourceScan  = "scan"
	SourceWatch = "watch"
	SourceDeref = "deref"
)

// Record links a compatibility symlink on disk to its resolved target.
type Record struct {
	Path      string `json:"path"`
	Target    string `json:"target,omitempty"`
	PosixPath string `json:"posix,omitempty"`
	Source    string `json:"source"`
	Timestamp int64  `json:"ts"` // Nanoseconds
	Error     string `json:"error,omitempty"`
}

// Store persists records in Pebble, one key per link path.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the store in dir.
func Open(dir string, readOnly bool) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("state dir is required")
	}
	if !readOnly {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	db, err := pebble.Open(dir, &pebble.Options{ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	return db.Close()
}

// Put writes rec, replacing any earlier record for the same path.
func (s *Store) Put(rec Record) error {
	if rec.Path == "" {
		return fmt.Errorf("record path is required")
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixNano()
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if err := s.db.Set(linkKey(rec.Path), payload, pebble.Sync); err != nil {
		return fmt.Errorf("write record %s: %w", rec.Path, err)
	}
	return nil
}

// Get returns the record stored for path. ok is false when there is none.
func (s *Store) Get(path string) (rec Record, ok bool, err error) {
	val, closer, err := s.db.Get(linkKey(path))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("read record %s: %w", path, err)
	}
	defer closer.Close()

	if err := json.Unmarshal(val, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode record %s: %w", path, err)
	}
	return rec, true, nil
}

// Delete removes the record for path, if present.
func (s *Store) Delete(path string) error {
	return s.db.Delete(linkKey(path), pebble.Sync)
}

// List returns every record ordered by path. Corrupt values are skipped.
func (s *Store) List() ([]Record, error) {
	iter, err := newPrefixIter(s.db, PrefixLink)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var records []Record
	for iter.First(); iter.Valid(); iter.Next() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}
	return records, nil
}

// MarkScan records when the last full scan started.
func (s *Store) MarkScan(start time.Time) error {
	val := []byte(fmt.Sprintf("%020d", start.UnixNano()))
	return s.db.Set([]byte(lastScanKey), val, pebble.Sync)
}

// LastScan returns the time recorded by MarkScan, or the zero time.
func (s *Store) LastScan() time.Time {
	val, closer, err := s.db.Get([]byte(lastScanKey))
	if err != nil {
		return time.Time{}
	}
	defer closer.Close()

	ts, err := strconv.ParseInt(strings.TrimSpace(string(val)), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, ts)
}

func linkKey(path string) []byte {
	return []byte(PrefixLink + path)
}

func newPrefixIter(db *pebble.DB, prefix string) (*pebble.Iterator, error) {
	upper := append([]byte(prefix), 0xff)
	return db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upper,
	})
}
