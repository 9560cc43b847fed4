// internal/state/records.go
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/user/kernel6/internal/types"
)

// Mode says where the record store persists its mirror.
type Mode string

const (
	ModeRemote    Mode = "remote"
	ModeLocalOnly Mode = "local"
)

// RecordStore is the in-memory set of finalized reports, mirrored as a
// single JSON array document. Every mutation rewrites the whole document.
// Mutations and their writes are serialized; the remote side is last write
// wins.
type RecordStore struct {
	docs types.DocumentStore
	name string
	// detached is set when Load could not read the remote document. The
	// store then runs local-only so the remote copy is never overwritten
	// with a partial set.
	detached bool

	mu      sync.RWMutex
	reports []*types.Report
}

// NewRecordStore creates a store mirrored to the named document of docs.
// A nil docs yields a local-only store.
func NewRecordStore(docs types.DocumentStore, name string) *RecordStore {
	return &RecordStore{docs: docs, name: name}
}

// NewLocalRecordStore creates a store whose Save is a no-op.
func NewLocalRecordStore() *RecordStore {
	return &RecordStore{}
}

func (s *RecordStore) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.docs == nil || s.detached {
		return ModeLocalOnly
	}
	return ModeRemote
}

// Load replaces the in-memory set with the remote document. A missing
// document is created. On a read or decode failure the store falls back to
// an empty local-only set: later mutations stay in memory and the remote
// document is left untouched. The cause is returned so the caller can log
// it; a later successful Load reattaches the store.
func (s *RecordStore) Load(ctx context.Context) error {
	return s.load(ctx, true)
}

// LoadExisting is Load without creating a missing document. A missing
// document loads as empty and the store stays attached.
func (s *RecordStore) LoadExisting(ctx context.Context) error {
	return s.load(ctx, false)
}

func (s *RecordStore) load(ctx context.Context, create bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = nil
	s.detached = false
	if s.docs == nil {
		slog.Warn("record store has no remote backend, using local memory only")
		return nil
	}

	data, err := s.docs.GetDocument(ctx, s.name)
	if errors.Is(err, types.ErrDocumentNotFound) {
		if !create {
			return nil
		}
		slog.Info("record document missing, creating it", "document", s.name)
		if err := s.saveLocked(ctx); err != nil {
			return err
		}
		return nil
	}
	if err != nil {
		s.detach(err)
		return fmt.Errorf("load records: %w", err)
	}

	reports, err := decodeReports(data)
	if err != nil {
		s.detach(err)
		return fmt.Errorf("decode records: %w", err)
	}
	s.reports = reports
	slog.Info("records loaded", "document", s.name, "count", len(reports))
	return nil
}

func (s *RecordStore) detach(cause error) {
	s.detached = true
	slog.Error("record document unreadable, running local only until restart; the remote document will not be written",
		"document", s.name, "error", cause)
}

// Append adds a report and persists the mirror. The report is kept in
// memory even when the write fails.
func (s *RecordStore) Append(ctx context.Context, r *types.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	s.reports = append(s.reports, &cp)
	return s.saveLocked(ctx)
}

// Remove deletes the report with the given id and persists the mirror. It
// reports whether a report was removed; removing an absent id is a no-op.
func (s *RecordStore) Remove(ctx context.Context, id types.ReportID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.reports)
	s.reports = slices.DeleteFunc(s.reports, func(r *types.Report) bool { return r.ID == id })
	if len(s.reports) == before {
		return false, nil
	}
	return true, s.saveLocked(ctx)
}

// Save writes the full in-memory set to the document store.
func (s *RecordStore) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *RecordStore) saveLocked(ctx context.Context) error {
	if s.docs == nil || s.detached {
		return nil
	}
	reports := s.reports
	if reports == nil {
		reports = []*types.Report{}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal records: %w", types.ErrPersistence, err)
	}
	if err := s.docs.PutDocument(ctx, s.name, data); err != nil {
		slog.Error("record document write failed", "document", s.name, "error", err)
		return fmt.Errorf("%w: %w", types.ErrPersistence, err)
	}
	slog.Debug("record document written", "document", s.name, "count", len(reports))
	return nil
}

// All returns a snapshot in insertion order.
func (s *RecordStore) All() []*types.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// List returns a snapshot ordered by creation time, newest first. Reports
// created at the same instant keep insertion order.
func (s *RecordStore) List() []*types.Report {
	s.mu.RLock()
	out := s.snapshot()
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b *types.Report) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

func (s *RecordStore) snapshot() []*types.Report {
	out := make([]*types.Report, len(s.reports))
	for i, r := range s.reports {
		cp := *r
		out[i] = &cp
	}
	return out
}

// Get returns a copy of the report with the given id.
func (s *RecordStore) Get(id types.ReportID) (*types.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reports {
		if r.ID == id {
			cp := *r
			return &cp, true
		}
	}
	return nil, false
}

func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
