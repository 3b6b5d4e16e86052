// Package history keeps a JSON log of analyses, newest first, and aggregates
// it into a heatmap of recurring issues.
package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jacobarthurs/pgguard/internal/advisor"
	"github.com/jacobarthurs/pgguard/internal/metrics"
	"github.com/jacobarthurs/pgguard/internal/stats"
)

// Record is either an analysis (Advice, Metrics, Locks) or a manual entry
// describing an action taken (Action, Result, BeforeMetrics, AfterMetrics).
type Record struct {
	Date    time.Time         `json:"date"`
	Query   string            `json:"query"`
	Table   string            `json:"table,omitempty"`
	Advice  []advisor.Flag    `json:"advice,omitempty"`
	Metrics metrics.Snapshot  `json:"metrics,omitempty"`
	Locks   *stats.LockReport `json:"locks,omitempty"`

	Action        string           `json:"action,omitempty"`
	Result        string           `json:"result,omitempty"`
	BeforeMetrics metrics.Snapshot `json:"before_metrics,omitempty"`
	AfterMetrics  metrics.Snapshot `json:"after_metrics,omitempty"`
}

type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns all records, newest first. A missing or empty file is an
// empty history.
func (s *Store) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add prepends rec. A zero Date is set to the current UTC time.
func (s *Store) Add(rec Record) (Record, error) {
	if rec.Date.IsZero() {
		rec.Date = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return rec, err
	}
	records = append([]Record{rec}, records...)
	return rec, s.save(records)
}

func (s *Store) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing history %s: %w", s.path, err)
	}
	return records, nil
}

func (s *Store) save(records []Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return os.Rename(tmp, s.path)
}
