package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/hardbanrecords/backoffice/internal/engine"
	"github.com/hardbanrecords/backoffice/internal/model"
)

// MemoryJobStore keeps job snapshots in a map. Used when redis is not
// configured and throughout the test suite.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*model.Job)}
}

func (s *MemoryJobStore) Save(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, jobID string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found")
	}
	return job, nil
}

// MemoryChannelStore keeps the latest delivery status per
// platform/release pair.
type MemoryChannelStore struct {
	mu      sync.RWMutex
	updates map[string]model.ChannelUpdate
}

func NewMemoryChannelStore() *MemoryChannelStore {
	return &MemoryChannelStore{updates: make(map[string]model.ChannelUpdate)}
}

func (s *MemoryChannelStore) Update(_ context.Context, update model.ChannelUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[update.ReleaseID+":"+update.Platform] = update
	return nil
}

func (s *MemoryChannelStore) Get(_ context.Context, releaseID, platformName string) (*model.ChannelUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	update, ok := s.updates[releaseID+":"+platformName]
	if !ok {
		return nil, fmt.Errorf("channel status not found")
	}
	return &update, nil
}

// MemoryEarningsStore keeps earnings and statements in insertion order.
type MemoryEarningsStore struct {
	mu         sync.RWMutex
	earnings   []model.Earnings
	statements []model.RoyaltyStatement
}

func NewMemoryEarningsStore() *MemoryEarningsStore {
	return &MemoryEarningsStore{}
}

func (s *MemoryEarningsStore) CreateEarnings(_ context.Context, e *model.Earnings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.earnings = append(s.earnings, *e)
	return nil
}

func (s *MemoryEarningsStore) CreateStatement(_ context.Context, st *model.RoyaltyStatement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statements = append(s.statements, *st)
	return nil
}

func (s *MemoryEarningsStore) Earnings() []model.Earnings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Earnings, len(s.earnings))
	copy(out, s.earnings)
	return out
}

func (s *MemoryEarningsStore) Statements() []model.RoyaltyStatement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.RoyaltyStatement, len(s.statements))
	copy(out, s.statements)
	return out
}

// MemoryCatalog resolves report lines against a fixed track table, by
// ISRC first and title/artist as fallback.
type MemoryCatalog struct {
	mu      sync.RWMutex
	byISRC  map[string]CatalogEntry
	byTitle map[string]CatalogEntry
}

// CatalogEntry seeds one track into the in-memory catalog.
type CatalogEntry struct {
	ISRC     string
	Title    string
	Artist   string
	TrackID  string
	HolderID string
}

func NewMemoryCatalog(entries ...CatalogEntry) *MemoryCatalog {
	c := &MemoryCatalog{
		byISRC:  make(map[string]CatalogEntry),
		byTitle: make(map[string]CatalogEntry),
	}
	for _, entry := range entries {
		c.Add(entry)
	}
	return c
}

func (c *MemoryCatalog) Add(entry CatalogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry.ISRC != "" {
		c.byISRC[entry.ISRC] = entry
	}
	if entry.Title != "" {
		c.byTitle[titleKey(entry.Title, entry.Artist)] = entry
	}
}

func (c *MemoryCatalog) Resolve(_ context.Context, isrc, title, artist string) (engine.TrackRef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if isrc != "" {
		if entry, ok := c.byISRC[isrc]; ok {
			return engine.TrackRef{TrackID: entry.TrackID, HolderID: entry.HolderID}, nil
		}
	}
	if entry, ok := c.byTitle[titleKey(title, artist)]; ok {
		return engine.TrackRef{TrackID: entry.TrackID, HolderID: entry.HolderID}, nil
	}
	return engine.TrackRef{}, fmt.Errorf("track not in catalog (isrc=%q title=%q artist=%q)", isrc, title, artist)
}

func titleKey(title, artist string) string {
	return title + " / " + artist
}
