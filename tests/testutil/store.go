package testutil

import (
	"context"
	"testing"

	"github.com/nhle/forge-sparks/internal/model"
	"github.com/nhle/forge-sparks/internal/store"
)

// NewTestStore returns an in-memory account store that is closed when the
// test ends.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing in-memory store: %v", err)
		}
	})
	return s
}

// SeedAccounts saves accounts in order and returns their ids.
func SeedAccounts(t *testing.T, s store.Store, accounts ...model.Account) []string {
	t.Helper()

	ids := make([]string, 0, len(accounts))
	for _, acct := range accounts {
		id, err := s.UpsertAccount(context.Background(), acct)
		if err != nil {
			t.Fatalf("seeding account %s@%s: %v", acct.Username, acct.URL, err)
		}
		ids = append(ids, id)
	}
	return ids
}
