package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/smallbiznis/crudforge/internal/organization/domain"
)

type memoryDirectory struct {
	mu   sync.RWMutex
	orgs map[string]domain.Organization
}

// NewMemoryDirectory returns an empty directory safe for concurrent use.
func NewMemoryDirectory() domain.Directory {
	return &memoryDirectory{orgs: make(map[string]domain.Organization)}
}

func (d *memoryDirectory) Put(_ context.Context, org domain.Organization) (domain.Organization, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.orgs[org.ID]; ok {
		return existing, false
	}
	d.orgs[org.ID] = org
	return org, true
}

func (d *memoryDirectory) Get(_ context.Context, id string) (domain.Organization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Organization{}, domain.ErrInvalidID
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	org, ok := d.orgs[id]
	if !ok {
		return domain.Organization{}, domain.ErrNotFound
	}
	return org, nil
}
