package directory

import (
	"context"
	"sync"

	"golang-move-import-service/internal/models"
)

// SharedCompany holds partners and analytic accounts visible to every company
const SharedCompany models.ID = 0

// Memory is a Directory kept in memory. Partners and analytic accounts
// registered under SharedCompany are visible to all companies, like
// records without a company in the database.
type Memory struct {
	mu      sync.RWMutex
	entries map[models.ID]map[Domain]map[string]models.ID
}

// NewMemory creates an empty directory
func NewMemory() *Memory {
	return &Memory{entries: make(map[models.ID]map[Domain]map[string]models.ID)}
}

// Add registers code for company in domain
func (m *Memory) Add(company models.ID, domain Domain, code string, id models.ID) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()

	byDomain, ok := m.entries[company]
	if !ok {
		byDomain = make(map[Domain]map[string]models.ID)
		m.entries[company] = byDomain
	}
	if byDomain[domain] == nil {
		byDomain[domain] = make(map[string]models.ID)
	}
	byDomain[domain][code] = id
	return m
}

func (m *Memory) Lookup(_ context.Context, domain Domain, company models.ID) (map[string]models.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]models.ID)
	if domain == DomainPartner || domain == DomainAnalytic {
		for code, id := range m.entries[SharedCompany][domain] {
			out[code] = id
		}
	}
	for code, id := range m.entries[company][domain] {
		out[code] = id
	}
	return out, nil
}
