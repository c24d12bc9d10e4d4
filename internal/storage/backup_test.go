package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackup(t *testing.T) {
	db := openTestDB(t)
	repo := NewCardRepository(db)
	seedCards(t, repo)
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "backups")
	path, err := db.Backup(ctx, dir)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, dir, filepath.Dir(path))

	restored, err := Open(DefaultConfig(path))
	require.NoError(t, err)
	defer restored.Close()

	count, err := NewCardRepository(restored).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestVerifyBackup_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not sqlite"), 0o644))

	assert.Error(t, VerifyBackup(context.Background(), path))
}

func TestListBackups(t *testing.T) {
	backups, err := ListBackups(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, backups)

	dir := t.TempDir()
	for _, name := range []string{"cards_20250101_000000.000.db", "cards_20250301_000000.000.db", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.db"), 0o755))

	backups, err = ListBackups(dir)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "cards_20250301_000000.000.db", backups[0].Name)
	assert.Len(t, backups[0].Checksum, 64)
	assert.Equal(t, int64(len("cards_20250301_000000.000.db")), backups[0].Size)
}
