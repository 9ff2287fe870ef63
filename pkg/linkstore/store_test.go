package linkstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "state")
	store, err := Open(dir, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, dir
}

func TestPutAndGet(t *testing.T) {
	store, _ := openTestStore(t)

	rec := Record{
		Path:      `C:\cygwin64\bin\python.lnk`,
		Target:    `C:\cygwin64\bin\python3.12.exe`,
		PosixPath: "/usr/bin/python",
		Source:    SourceScan,
	}
	require.NoError(t, store.Put(rec))

	got, ok, err := store.Get(rec.Path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.Target, got.Target)
	assert.Equal(t, rec.PosixPath, got.PosixPath)
	assert.Equal(t, SourceScan, got.Source)
	assert.NotZero(t, got.Timestamp, "Put should stamp records without a timestamp")
}

func TestGetMissing(t *testing.T) {
	store, _ := openTestStore(t)

	_, ok, err := store.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutReplacesExisting(t *testing.T) {
	store, _ := openTestStore(t)

	require.NoError(t, store.Put(Record{Path: "a.lnk", Target: "old", Source: SourceScan}))
	require.NoError(t, store.Put(Record{Path: "a.lnk", Target: "new", Source: SourceWatch}))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].Target)
	assert.Equal(t, SourceWatch, records[0].Source)
}

func TestPutRequiresPath(t *testing.T) {
	store, _ := openTestStore(t)
	assert.Error(t, store.Put(Record{Target: "x"}))
}

func TestListOrderedAndIgnoresMeta(t *testing.T) {
	store, _ := openTestStore(t)

	for _, p := range []string{"c.lnk", "a.lnk", "b.lnk"} {
		require.NoError(t, store.Put(Record{Path: p, Source: SourceScan}))
	}
	require.NoError(t, store.MarkScan(time.Now()))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a.lnk", records[0].Path)
	assert.Equal(t, "b.lnk", records[1].Path)
	assert.Equal(t, "c.lnk", records[2].Path)
}

func TestDelete(t *testing.T) {
	store, _ := openTestStore(t)

	require.NoError(t, store.Put(Record{Path: "gone.lnk", Source: SourceDeref}))
	require.NoError(t, store.Delete("gone.lnk"))

	_, ok, err := store.Get("gone.lnk")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLastScan(t *testing.T) {
	store, _ := openTestStore(t)

	assert.True(t, store.LastScan().IsZero())

	start := time.Unix(1700000000, 42)
	require.NoError(t, store.MarkScan(start))
	assert.True(t, start.Equal(store.LastScan()))
}

func TestReopenReadOnly(t *testing.T) {
	store, dir := openTestStore(t)
	require.NoError(t, store.Put(Record{Path: "kept.lnk", Target: "t", Source: SourceScan}))
	require.NoError(t, store.Close())

	ro, err := Open(dir, true)
	require.NoError(t, err)
	defer ro.Close()

	records, err := ro.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "kept.lnk", records[0].Path)
}

func TestOpenRequiresDir(t *testing.T) {
	_, err := Open("", false)
	assert.Error(t, err)
}
