package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCreatesTimestampedSnapshot(t *testing.T) {
	dir := t.TempDir()
	w, err := NewExportWriter(dir)
	require.NoError(t, err)

	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	path, err := w.Write("users", map[string]int{"total": 3}, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "users-20250314-093000.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 3, decoded["total"])
}

func TestWriteLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	w, err := NewExportWriter(dir)
	require.NoError(t, err)

	_, err = w.Write("users", map[string]int{"total": 1}, time.Now())
	require.NoError(t, err)

	names, err := w.List()
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, ".json", filepath.Ext(names[0]))
}

func TestListIgnoresNonSnapshots(t *testing.T) {
	dir := t.TempDir()
	w, err := NewExportWriter(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	_, err = w.Write("challenges", []string{}, time.Now())
	require.NoError(t, err)

	names, err := w.List()
	require.NoError(t, err)
	assert.Len(t, names, 1)
}
