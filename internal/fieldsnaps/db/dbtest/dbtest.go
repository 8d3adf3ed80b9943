// Package dbtest opens throwaway SQLite-backed repositories for tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

// New returns a migrated repository over a private in-memory database that is
// closed when the test ends.
func New(t testing.TB) *db.Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	repo, err := db.Open(sqlite.Open(dsn))
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}
