package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

// MemoryCatalog is an in-memory SCD2 store used by demo mode and tests.
// Sessions snapshot the committed state at Begin and replace it at Commit;
// that matches the pipeline, which opens sessions one source at a time.
type MemoryCatalog struct {
	mu     sync.Mutex
	rows   map[domain.PriceKey][]domain.PriceVersion
	nextID int64
}

var _ ports.PriceCatalog = (*MemoryCatalog)(nil)

// NewMemoryCatalog builds an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{rows: map[domain.PriceKey][]domain.PriceVersion{}}
}

// Begin opens a session over a snapshot of the committed rows.
func (c *MemoryCatalog) Begin(ctx context.Context) (ports.PriceSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &memorySession{
		cat:   c,
		rows:  cloneRows(c.rows),
		saves: map[string]map[domain.PriceKey][]domain.PriceVersion{},
	}, nil
}

// Versions returns the committed versions for a key, oldest first.
func (c *MemoryCatalog) Versions(key domain.PriceKey) []domain.PriceVersion {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.PriceVersion, len(c.rows[key]))
	copy(out, c.rows[key])
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CurrentCount counts committed current rows for a key.
func (c *MemoryCatalog) CurrentCount(key domain.PriceKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.rows[key] {
		if v.IsCurrent {
			n++
		}
	}
	return n
}

type memorySession struct {
	cat   *MemoryCatalog
	rows  map[domain.PriceKey][]domain.PriceVersion
	saves map[string]map[domain.PriceKey][]domain.PriceVersion
}

func (s *memorySession) FindCurrent(ctx context.Context, key domain.PriceKey) (*domain.PriceVersion, error) {
	for _, v := range s.rows[key] {
		if v.IsCurrent {
			found := v
			return &found, nil
		}
	}
	return nil, nil
}

func (s *memorySession) InsertVersion(ctx context.Context, v *domain.PriceVersion) error {
	s.cat.mu.Lock()
	s.cat.nextID++
	v.ID = s.cat.nextID
	s.cat.mu.Unlock()

	key := v.Key()
	s.rows[key] = append(s.rows[key], *v)
	return nil
}

func (s *memorySession) ExpireVersion(ctx context.Context, id int64, at time.Time) error {
	for key, versions := range s.rows {
		for i := range versions {
			if versions[i].ID == id {
				expiry := at
				versions[i].ValidTo = &expiry
				versions[i].IsCurrent = false
				s.rows[key] = versions
				return nil
			}
		}
	}
	return nil
}

func (s *memorySession) TouchChecked(ctx context.Context, id int64, at time.Time) error {
	for key, versions := range s.rows {
		for i := range versions {
			if versions[i].ID == id {
				versions[i].LastCheckedAt = at
				s.rows[key] = versions
				return nil
			}
		}
	}
	return nil
}

func (s *memorySession) Savepoint(ctx context.Context, name string) error {
	s.saves[name] = cloneRows(s.rows)
	return nil
}

func (s *memorySession) ReleaseSavepoint(ctx context.Context, name string) error {
	delete(s.saves, name)
	return nil
}

func (s *memorySession) RollbackSavepoint(ctx context.Context, name string) error {
	if saved, ok := s.saves[name]; ok {
		s.rows = saved
		delete(s.saves, name)
	}
	return nil
}

func (s *memorySession) Commit() error {
	s.cat.mu.Lock()
	defer s.cat.mu.Unlock()
	s.cat.rows = s.rows
	return nil
}

func (s *memorySession) Rollback() error {
	return nil
}

func cloneRows(rows map[domain.PriceKey][]domain.PriceVersion) map[domain.PriceKey][]domain.PriceVersion {
	out := make(map[domain.PriceKey][]domain.PriceVersion, len(rows))
	for key, versions := range rows {
		cp := make([]domain.PriceVersion, len(versions))
		copy(cp, versions)
		out[key] = cp
	}
	return out
}

// MemorySyncLogs collects audit rows in memory.
type MemorySyncLogs struct {
	mu      sync.Mutex
	Entries []domain.SyncLogEntry
}

var _ ports.SyncLogRepository = (*MemorySyncLogs)(nil)

// NewMemorySyncLogs builds an empty log store.
func NewMemorySyncLogs() *MemorySyncLogs {
	return &MemorySyncLogs{}
}

// SaveBatch appends all entries atomically.
func (m *MemorySyncLogs) SaveBatch(ctx context.Context, entries []domain.SyncLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entries...)
	return nil
}

// MemoryScrapeSources serves a fixed set of sources.
type MemoryScrapeSources struct {
	mu      sync.Mutex
	sources []domain.ScrapeSource
}

var _ ports.ScrapeSourceRepository = (*MemoryScrapeSources)(nil)

// NewMemoryScrapeSources seeds the repository.
func NewMemoryScrapeSources(sources []domain.ScrapeSource) *MemoryScrapeSources {
	return &MemoryScrapeSources{sources: sources}
}

// ListEnabled filters by org and enabled flag, ordered by name.
func (m *MemoryScrapeSources) ListEnabled(ctx context.Context, orgID string) ([]domain.ScrapeSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ScrapeSource
	for _, src := range m.sources {
		if src.OrgID == orgID && src.Enabled {
			out = append(out, src)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpdateHealth stores the source's health fields back by id.
func (m *MemoryScrapeSources) UpdateHealth(ctx context.Context, src *domain.ScrapeSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sources {
		if m.sources[i].ID == src.ID {
			m.sources[i] = *src
			return nil
		}
	}
	return nil
}

// Get returns a source by id for inspection.
func (m *MemoryScrapeSources) Get(id int64) (domain.ScrapeSource, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, src := range m.sources {
		if src.ID == id {
			return src, true
		}
	}
	return domain.ScrapeSource{}, false
}
