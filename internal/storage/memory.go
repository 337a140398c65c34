package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository with the same observable
// semantics as the PostgreSQL implementation. Intended for tests.
type MemoryRepository struct {
	mu            sync.RWMutex
	records       map[string]*ShortenedURL // "tenantID/code" -> record
	nextID        int64
	maxCodeLength int
}

// NewMemoryRepository creates an empty in-memory short-URL store.
func NewMemoryRepository(maxCodeLength int) *MemoryRepository {
	return &MemoryRepository{
		records:       make(map[string]*ShortenedURL),
		maxCodeLength: maxCodeLength,
	}
}

func recordKey(tenantID int64, code string) string {
	return fmt.Sprintf("%d/%s", tenantID, code)
}

func (m *MemoryRepository) FindOrCreate(_ context.Context, tenantID int64, code, url string) (*ShortenedURL, error) {
	if err := validateWrite(code, url, m.maxCodeLength); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.records[recordKey(tenantID, code)]; ok {
		// First writer wins: the supplied url is ignored.
		return existing, nil
	}

	return m.insert(tenantID, code, url), nil
}

func (m *MemoryRepository) Create(_ context.Context, tenantID int64, code, url string) (*ShortenedURL, error) {
	if err := validateWrite(code, url, m.maxCodeLength); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[recordKey(tenantID, code)]; ok {
		return nil, ErrCodeTaken
	}

	return m.insert(tenantID, code, url), nil
}

func (m *MemoryRepository) ByCode(_ context.Context, tenantID int64, code string) (*ShortenedURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[recordKey(tenantID, code)]
	if !ok {
		return nil, ErrNotFound
	}

	return record, nil
}

func (m *MemoryRepository) ByOriginalURL(_ context.Context, tenantID int64, url string) (*ShortenedURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *ShortenedURL

	for _, record := range m.records {
		if record.TenantID != tenantID || record.OriginalURL != url {
			continue
		}

		if found == nil || record.ID < found.ID {
			found = record
		}
	}

	if found == nil {
		return nil, ErrNotFound
	}

	return found, nil
}

// SetExpiry backfills an expiry timestamp on an existing record. Test
// helper: expiry is set administratively, outside the engine.
func (m *MemoryRepository) SetExpiry(tenantID int64, code string, expiresAt time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[recordKey(tenantID, code)]
	if !ok {
		return false
	}

	record.ExpiresAt = &expiresAt

	return true
}

// Len reports the number of stored records.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}

// insert assumes the caller holds mu.
func (m *MemoryRepository) insert(tenantID int64, code, url string) *ShortenedURL {
	m.nextID++
	now := time.Now()

	record := &ShortenedURL{
		ID:          m.nextID,
		TenantID:    tenantID,
		Code:        code,
		OriginalURL: url,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.records[recordKey(tenantID, code)] = record

	return record
}

// Compile-time check.
var _ Repository = (*MemoryRepository)(nil)
