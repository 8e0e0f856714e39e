// Package testutils fournit une base SQLite en mémoire isolée pour les tests.
package testutils

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/axellelanca/quickpath/internal/database"
)

var dbCounter atomic.Int64

// NewTestDB ouvre une base en mémoire propre au test, migrée, fermée en fin de test.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1))

	db, err := database.Open(dsn, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, database.Migrate(db))
	return db
}
