package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/serroba/shortlink/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byCode map[shortener.Code]shortener.Mapping
	byURL  map[string]shortener.Code // first code saved for a url
	clicks map[int64][]shortener.ClickEvent
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byCode: make(map[shortener.Code]shortener.Mapping),
		byURL:  make(map[string]shortener.Code),
		clicks: make(map[int64][]shortener.ClickEvent),
	}
}

func (m *MemoryStore) FindByShortCode(_ context.Context, code shortener.Code) (*shortener.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mapping, ok := m.byCode[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return &mapping, nil
}

func (m *MemoryStore) FindByOriginalURL(_ context.Context, url string) (*shortener.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	code, ok := m.byURL[url]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	mapping := m.byCode[code]

	return &mapping, nil
}

func (m *MemoryStore) ExistsByShortCode(_ context.Context, code shortener.Code) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byCode[code]

	return ok, nil
}

func (m *MemoryStore) Save(_ context.Context, mapping *shortener.Mapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byCode[mapping.Code]; ok {
		return fmt.Errorf("%w: %s", shortener.ErrDuplicateCode, mapping.Code)
	}

	m.nextID++
	mapping.ID = m.nextID

	m.byCode[mapping.Code] = *mapping
	if _, ok := m.byURL[mapping.OriginalURL]; !ok {
		m.byURL[mapping.OriginalURL] = mapping.Code
	}

	return nil
}

func (m *MemoryStore) InsertClick(_ context.Context, click *shortener.ClickEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasID(click.MappingID) {
		return fmt.Errorf("%w: mapping %d", shortener.ErrNotFound, click.MappingID)
	}

	m.clicks[click.MappingID] = append(m.clicks[click.MappingID], *click)

	return nil
}

func (m *MemoryStore) CountClicks(_ context.Context, mappingID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.clicks[mappingID])), nil
}

func (m *MemoryStore) ListMappings(_ context.Context, limit int) ([]shortener.MappingSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]shortener.MappingSummary, 0, len(m.byCode))
	for _, mapping := range m.byCode {
		list = append(list, shortener.MappingSummary{
			Mapping:     mapping,
			TotalClicks: int64(len(m.clicks[mapping.ID])),
		})
	}

	slices.SortFunc(list, func(a, b shortener.MappingSummary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(b.ID, a.ID)
	})

	return list[:min(max(limit, 0), len(list))], nil
}

func (m *MemoryStore) RecentClicks(_ context.Context, mappingID int64, limit int) ([]shortener.ClickEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clicks := slices.Clone(m.clicks[mappingID])
	slices.Reverse(clicks)
	slices.SortStableFunc(clicks, func(a, b shortener.ClickEvent) int {
		return b.ClickedAt.Compare(a.ClickedAt)
	})

	return clicks[:min(max(limit, 0), len(clicks))], nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// mapping ids are assigned sequentially and never reused.
func (m *MemoryStore) hasID(id int64) bool {
	return id > 0 && id <= m.nextID
}

var _ shortener.Repository = (*MemoryStore)(nil)
