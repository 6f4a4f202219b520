package directory

import (
	"context"
	"fmt"
	"testing"

	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/errors"
)

type failingDirectory struct{}

func (failingDirectory) Lookup(context.Context, Domain, models.ID) (map[string]models.ID, error) {
	return nil, fmt.Errorf("connection refused")
}

func TestLoad(t *testing.T) {
	mem := NewMemory().
		Add(1, DomainAccount, "411000", 10).
		Add(1, DomainJournal, "vt", 20).
		Add(1, DomainPartner, "C001", 30).
		Add(SharedCompany, DomainPartner, "SHARED", 31).
		Add(SharedCompany, DomainAnalytic, "AX", 40).
		Add(2, DomainAccount, "512000", 11).
		Add(SharedCompany, DomainJournal, "BQ", 21)

	s, err := Load(context.Background(), mem, 1)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		domain Domain
		code   string
		wantID models.ID
		wantOK bool
	}{
		{DomainAccount, "411000", 10, true},
		{DomainAccount, "512000", 0, false},
		{DomainJournal, "VT", 20, true},
		{DomainJournal, "vt", 20, true},
		{DomainJournal, "BQ", 0, false},
		{DomainPartner, "C001", 30, true},
		{DomainPartner, "shared", 31, true},
		{DomainAnalytic, "AX", 40, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.domain, tt.code), func(t *testing.T) {
			id, ok := s.Get(tt.domain, tt.code)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("Get() = %d, %v; want %d, %v", id, ok, tt.wantID, tt.wantOK)
			}
		})
	}

	if s.Len(DomainPartner) != 2 {
		t.Errorf("Expected 2 partners, got %d", s.Len(DomainPartner))
	}
}

func TestLoad_Error(t *testing.T) {
	_, err := Load(context.Background(), failingDirectory{}, 1)
	if err == nil {
		t.Fatal("Expected error")
	}
	importErr, ok := errors.AsImportError(err)
	if !ok || importErr.Category != errors.CategoryPersistence {
		t.Errorf("Expected persistence error, got %v", err)
	}
}

func TestSnapshot_AccountWithPrefix(t *testing.T) {
	s := NewSnapshot(1, map[Domain]map[string]models.ID{
		DomainAccount: {"4111": 1, "41100000": 2, "4110": 3, "512": 4},
	})

	tests := []struct {
		prefix   string
		wantCode string
		wantOK   bool
	}{
		{"411", "4110", true},
		{"4111", "4111", true},
		{"41100", "41100000", true},
		{"6", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			code, _, ok := s.AccountWithPrefix(tt.prefix)
			if ok != tt.wantOK || code != tt.wantCode {
				t.Errorf("AccountWithPrefix(%q) = %q, %v; want %q, %v", tt.prefix, code, ok, tt.wantCode, tt.wantOK)
			}
		})
	}
}
