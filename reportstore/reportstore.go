// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reportstore keeps the history of finalized scan reports in a bbolt
// database.
package reportstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/packcheck/report"
	"github.com/google/packcheck/violation"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	// ErrNotFound is returned by Get for unknown scan IDs.
	ErrNotFound = errors.New("scan report not found")
	// ErrDuplicate is returned by Save when a report with the same scan ID was
	// already saved. Saved reports are never overwritten.
	ErrDuplicate = errors.New("scan report already saved")
)

var (
	reportsBucket = []byte("reports")
	indexBucket   = []byte("index")
)

// Summary describes one saved report.
type Summary struct {
	ScanID      string             `json:"scanId"`
	SavedAt     time.Time          `json:"savedAt"`
	Outcome     report.Outcome     `json:"outcome"`
	Violations  int                `json:"violations"`
	MaxSeverity violation.Severity `json:"maxSeverity"`
}

type record struct {
	Summary Summary         `json:"summary"`
	Report  json.RawMessage `json:"report"`
}

// Store is an append-only report history. It is safe for concurrent use.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening report history %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{reportsBucket, indexBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing report history %s: %w", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save appends rep to the history and returns the scan ID it is saved under.
// Reports without a scan ID get a random one.
func (s *Store) Save(rep *report.ScanReport) (string, error) {
	id := rep.ScanID
	if id == "" {
		id = uuid.NewString()
	}
	var buf bytes.Buffer
	if err := report.Write(&buf, rep); err != nil {
		return "", err
	}
	rec := record{
		Summary: Summary{
			ScanID:      id,
			SavedAt:     s.now().UTC(),
			Outcome:     rep.Outcome,
			Violations:  len(rep.Violations),
			MaxSeverity: rep.MaxSeverity(),
		},
		Report: buf.Bytes(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(indexBucket)
		if index.Get([]byte(id)) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicate, id)
		}
		reports := tx.Bucket(reportsBucket)
		seq, err := reports.NextSequence()
		if err != nil {
			return err
		}
		key := binary.BigEndian.AppendUint64(nil, seq)
		if err := reports.Put(key, data); err != nil {
			return err
		}
		return index.Put([]byte(id), key)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Get returns the report saved under scanID.
func (s *Store) Get(scanID string) (*report.ScanReport, error) {
	var rep *report.ScanReport
	err := s.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket(indexBucket).Get([]byte(scanID))
		if key == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, scanID)
		}
		rec, err := decode(tx.Bucket(reportsBucket).Get(key))
		if err != nil {
			return fmt.Errorf("scan %s: %w", scanID, err)
		}
		rep, err = report.Read(bytes.NewReader(rec.Report))
		return err
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// List returns the summaries of all saved reports, oldest first.
func (s *Store) List() ([]Summary, error) {
	result := []Summary{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(reportsBucket).ForEach(func(k, v []byte) error {
			rec, err := decode(v)
			if err != nil {
				return fmt.Errorf("record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			result = append(result, rec.Summary)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func decode(data []byte) (*record, error) {
	if data == nil {
		return nil, errors.New("history is inconsistent: record missing")
	}
	rec := &record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("unmarshalling record: %w", err)
	}
	return rec, nil
}
