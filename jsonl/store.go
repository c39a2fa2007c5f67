package jsonl

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/fwojciec/untangle"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ untangle.GroupStore = (*Store)(nil)

// Record is one line of a group export.
type Record struct {
	RunID    string `json:"run_id"`
	Position int    `json:"position"`
	untangle.Group
}

// Store persists analysis results as JSONL, one group per line in creation
// order. Every line carries the id of the run that wrote it.
type Store struct {
	RunID string
}

// NewStore creates a new Store with a fresh run id.
func NewStore() *Store {
	return &Store{RunID: uuid.NewString()}
}

// Load reads a result from a JSONL file. Returns an empty result if the file
// doesn't exist. Groups are ordered by their saved position; lines sharing a
// position keep file order.
func (s *Store) Load(path string) (*untangle.Result, error) {
	result := &untangle.Result{
		Groups: make(map[string]*untangle.Group),
		Index:  make(map[untangle.HunkID]string),
	}
	var records []Record
	err := scan(path, func(line []byte) error {
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		if r.ID == "" {
			return errors.New("record without group id")
		}
		if _, dup := result.Groups[r.ID]; dup {
			return fmt.Errorf("duplicate group %s", r.ID)
		}
		g := r.Group
		result.Groups[g.ID] = &g
		records = append(records, r)
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(records, func(a, b Record) int {
		return cmp.Compare(a.Position, b.Position)
	})
	for _, r := range records {
		result.Order = append(result.Order, r.ID)
		for _, id := range r.HunkIDs {
			result.Index[id] = r.ID
		}
	}
	return result, nil
}

// Save writes result to a JSONL file, creating parent directories if needed.
func (s *Store) Save(path string, result *untangle.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i, g := range result.Ordered() {
		if err := enc.Encode(Record{RunID: s.RunID, Position: i, Group: *g}); err != nil {
			return err
		}
	}
	return f.Close()
}
