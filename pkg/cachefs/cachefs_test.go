package cachefs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stretchr/testify/assert"

	"github.com/dixieflatline76/spicetaste/pkg/cachefs"
)

func writeFile(t *testing.T, dir, name string, size int, mtime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestEvictionPreservesBudget(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)

	writeFile(t, dir, "t1.img", 4*1024*1024, base)
	writeFile(t, dir, "t2.img", 4*1024*1024, base.Add(time.Minute))
	writeFile(t, dir, "t3.img", 4*1024*1024, base.Add(2*time.Minute))

	var evicted []string
	m := cachefs.New(dir, 10*1024*1024, func(id string) { evicted = append(evicted, id) })

	// inserting a 4th 4MiB file pushes total to 16MiB > 10MiB budget
	writeFile(t, dir, "t4.img", 4*1024*1024, base.Add(3*time.Minute))
	require.NoError(t, m.AfterInsert())

	total, err := m.TotalBytes()
	require.NoError(t, err)
	assert.LessOrEqual(t, total, int64(10*1024*1024))
	assert.Contains(t, evicted, "t1")
}

func TestHasReportsPresence(t *testing.T) {
	dir := t.TempDir()
	m := cachefs.New(dir, 0, nil)
	require.NoError(t, m.EnsureDir())
	assert.False(t, m.Has("abc"))
	require.NoError(t, os.WriteFile(m.SourcePath("abc"), []byte("x"), 0o644))
	assert.True(t, m.Has("abc"))
}

func TestEvictRemovesBothVariants(t *testing.T) {
	dir := t.TempDir()
	m := cachefs.New(dir, 0, nil)
	require.NoError(t, m.EnsureDir())
	require.NoError(t, os.WriteFile(m.SourcePath("abc"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(m.CroppedPath("abc"), []byte("x"), 0o644))

	require.NoError(t, m.Evict("abc"))
	assert.False(t, m.Has("abc"))
	assert.False(t, m.HasCropped("abc"))
}

func TestAfterInsertNoOpUnderBudget(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t1.img", 1024, time.Now())
	m := cachefs.New(dir, cachefs.DefaultBudgetBytes, nil)
	require.NoError(t, m.AfterInsert())
	total, err := m.TotalBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(1024), total)
}
