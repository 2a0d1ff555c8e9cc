package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"claimingIndexer/internal/model"
)

// Store keeps records in memory, keyed by kind and id.
type Store struct {
	mu      sync.RWMutex
	records map[model.Kind]map[string]model.Record
	writes  int
}

func NewStore() *Store {
	return &Store{records: make(map[model.Kind]map[string]model.Record)}
}

// Upsert writes a copy of record under id, replacing any existing entry.
func (s *Store) Upsert(_ context.Context, kind model.Kind, id model.RecordID, record model.Record) error {
	if len(id) == 0 {
		return fmt.Errorf("record id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.records[kind]
	if !ok {
		byID = make(map[string]model.Record)
		s.records[kind] = byID
	}
	byID[string(id)] = record.Clone()
	s.writes++
	return nil
}

// Get returns the record stored under kind and id.
func (s *Store) Get(kind model.Kind, id model.RecordID) (model.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[kind][string(id)]
	if !ok {
		return model.Record{}, false
	}
	return rec.Clone(), true
}

// Len returns the number of distinct records of kind.
func (s *Store) Len(kind model.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[kind])
}

// Writes returns the total number of upserts received.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// All returns every record of kind in no particular order.
func (s *Store) All(kind model.Kind) []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Record, 0, len(s.records[kind]))
	for _, rec := range s.records[kind] {
		out = append(out, rec.Clone())
	}
	return out
}

// sorted returns the records of kind ordered by block number, then id.
func (s *Store) sorted(kind model.Kind) []model.Record {
	out := s.All(kind)
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return bytes.Compare(out[i].ID, out[j].ID) < 0
	})
	return out
}

// FindRoot returns the earliest RootSubmitted record carrying root.
func (s *Store) FindRoot(_ context.Context, root common.Hash) (model.RootSubmitted, bool, error) {
	for _, rec := range s.sorted(model.KindRootSubmitted) {
		var submitted model.RootSubmitted
		if err := rec.Decode(&submitted); err != nil {
			return model.RootSubmitted{}, false, err
		}
		if submitted.Root == root {
			return submitted, true, nil
		}
	}
	return model.RootSubmitted{}, false, nil
}

// PaymentClaims returns every PaymentClaimed record ordered by block number, then id.
func (s *Store) PaymentClaims(_ context.Context) ([]model.PaymentClaimed, error) {
	records := s.sorted(model.KindPaymentClaimed)
	out := make([]model.PaymentClaimed, 0, len(records))
	for _, rec := range records {
		var claim model.PaymentClaimed
		if err := rec.Decode(&claim); err != nil {
			return nil, err
		}
		out = append(out, claim)
	}
	return out, nil
}
