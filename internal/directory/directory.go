// Package directory provides the reference codes an import is validated
// against: accounts, journals, partners and analytic accounts of a company.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/errors"
)

// Domain names one kind of reference code
type Domain string

const (
	DomainAccount  Domain = "account"
	DomainJournal  Domain = "journal"
	DomainPartner  Domain = "partner"
	DomainAnalytic Domain = "analytic"
)

// AllDomains lists the domains in the order they are loaded
func AllDomains() []Domain {
	return []Domain{DomainAccount, DomainJournal, DomainPartner, DomainAnalytic}
}

// Directory returns the code to id mapping of a domain for a company.
// Codes are compared upper-cased; implementations may return any case.
type Directory interface {
	Lookup(ctx context.Context, domain Domain, company models.ID) (map[string]models.ID, error)
}

// Snapshot is the directory content captured once for an import run
type Snapshot struct {
	Company models.ID
	codes   map[Domain]map[string]models.ID

	// accountCodes is sorted for the prefix scan
	accountCodes []string
}

// Load reads every domain for company
func Load(ctx context.Context, dir Directory, company models.ID) (*Snapshot, error) {
	s := &Snapshot{
		Company: company,
		codes:   make(map[Domain]map[string]models.ID, 4),
	}

	for _, domain := range AllDomains() {
		entries, err := dir.Lookup(ctx, domain, company)
		if err != nil {
			return nil, errors.WrapIfNeeded(err, errors.CategoryPersistence, errors.CodeQueryFailed,
				fmt.Sprintf("failed to load %s codes", domain))
		}
		upper := make(map[string]models.ID, len(entries))
		for code, id := range entries {
			upper[strings.ToUpper(code)] = id
		}
		s.codes[domain] = upper
	}

	s.accountCodes = make([]string, 0, len(s.codes[DomainAccount]))
	for code := range s.codes[DomainAccount] {
		s.accountCodes = append(s.accountCodes, code)
	}
	sort.Slice(s.accountCodes, func(i, j int) bool {
		a, b := s.accountCodes[i], s.accountCodes[j]
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})

	return s, nil
}

// NewSnapshot builds a snapshot from literal maps, for dry runs and tests
func NewSnapshot(company models.ID, codes map[Domain]map[string]models.ID) *Snapshot {
	s, _ := Load(context.Background(), Static(codes), company)
	return s
}

// Get returns the id of an exact code, compared upper-cased
func (s *Snapshot) Get(domain Domain, code string) (models.ID, bool) {
	id, ok := s.codes[domain][strings.ToUpper(code)]
	return id, ok
}

// Len returns the number of codes loaded for domain
func (s *Snapshot) Len(domain Domain) int {
	return len(s.codes[domain])
}

// AccountWithPrefix returns the account whose code starts with prefix. When
// several match, the shortest code wins, then the lowest in byte order.
func (s *Snapshot) AccountWithPrefix(prefix string) (string, models.ID, bool) {
	prefix = strings.ToUpper(prefix)
	if prefix == "" {
		return "", 0, false
	}
	for _, code := range s.accountCodes {
		if strings.HasPrefix(code, prefix) {
			return code, s.codes[DomainAccount][code], true
		}
	}
	return "", 0, false
}

// Static is a Directory over fixed maps that ignores the company
type Static map[Domain]map[string]models.ID

func (d Static) Lookup(_ context.Context, domain Domain, _ models.ID) (map[string]models.ID, error) {
	return d[domain], nil
}
