package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

const goodSQL = `-- +goose Up
CREATE TABLE demo (id TEXT PRIMARY KEY);

-- +goose Down
DROP TABLE demo;
`

func TestValidateDirAcceptsWellFormedMigrations(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260101000000_create_demo.sql", goodSQL)
	writeMigration(t, dir, "20260102000000_add_index.sql", goodSQL)

	assert.NoError(t, ValidateDir(dir))
}

func TestValidateDirReportsAllProblemsAtOnce(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "not-a-migration.sql", goodSQL)
	writeMigration(t, dir, "20260101000000_first.sql", goodSQL)
	writeMigration(t, dir, "20260101000000_second.sql", goodSQL)
	writeMigration(t, dir, "20260103000000_no_down.sql", "-- +goose Up\nSELECT 1;\n")

	err := ValidateDir(dir)
	require.Error(t, err)

	problems := multierr.Errors(err)
	assert.Len(t, problems, 3)
}

func TestValidateDirMissingGooseMarkers(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260101000000_raw.sql", "CREATE TABLE demo (id TEXT);\n")

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestValidateDirIgnoresNonSQLFiles(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "README.md", "notes")
	writeMigration(t, dir, "20260101000000_ok.sql", goodSQL)

	assert.NoError(t, ValidateDir(dir))
}

func TestValidateDirRequiresDir(t *testing.T) {
	assert.Error(t, ValidateDir(""))
	assert.Error(t, ValidateDir(filepath.Join(t.TempDir(), "missing")))
}
