package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "state.env"), false)
}

func TestPutGet(t *testing.T) {
	s := newTempStore(t)

	require.NoError(t, s.Put("NETWORK_ID", "vpc-123"))

	got, err := s.Get("NETWORK_ID")
	require.NoError(t, err)
	assert.Equal(t, "vpc-123", got)
}

func TestPutUpsertsInPlace(t *testing.T) {
	s := newTempStore(t)

	require.NoError(t, s.Put("A", "1"))
	require.NoError(t, s.Put("B", "2"))
	require.NoError(t, s.Put("A", "updated"))

	entries, err := s.Snapshot()
	require.NoError(t, err)
	require.Len(t, entries, 2, "upsert must not duplicate keys")
	assert.Equal(t, Entry{Key: "A", Value: "updated"}, entries[0])
	assert.Equal(t, Entry{Key: "B", Value: "2"}, entries[1])
}

func TestGetMissingKey(t *testing.T) {
	s := newTempStore(t)

	require.NoError(t, s.Put("A", "1"))

	_, err := s.Get("NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMissingFile(t *testing.T) {
	s := newTempStore(t)

	_, err := s.Get("ANY")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmptyValueIsFound(t *testing.T) {
	s := newTempStore(t)

	require.NoError(t, s.Put("EMPTY", ""))

	got, err := s.Get("EMPTY")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestValuesMayContainEquals(t *testing.T) {
	s := newTempStore(t)

	require.NoError(t, s.Put("URL", "https://example.com/?a=b&c=d"))

	got, err := s.Get("URL")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/?a=b&c=d", got)
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.env")
	raw := "GOOD=value\nthis line has no delimiter\nALSO_GOOD=yes\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	s := NewStore(path, false)
	entries, err := s.Snapshot()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "GOOD", entries[0].Key)
	assert.Equal(t, "ALSO_GOOD", entries[1].Key)
}

func TestANSISequencesAreStripped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.env")
	raw := "INSTANCE_ID=\x1b[0;32mi-0abc123\x1b[0m\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	s := NewStore(path, false)
	got, err := s.Get("INSTANCE_ID")
	require.NoError(t, err)
	assert.Equal(t, "i-0abc123", got)
}

func TestDelete(t *testing.T) {
	s := newTempStore(t)

	require.NoError(t, s.Put("A", "1"))
	require.NoError(t, s.Put("B", "2"))
	require.NoError(t, s.Delete("A"))

	_, err := s.Get("A")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.Get("B")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestDeleteAbsentKeyIsNoError(t *testing.T) {
	s := newTempStore(t)
	assert.NoError(t, s.Delete("NOPE"))
}

func TestClear(t *testing.T) {
	s := newTempStore(t)

	require.NoError(t, s.Put("A", "1"))
	require.NoError(t, s.Put("B", "2"))
	require.NoError(t, s.Clear())

	entries, err := s.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSnapshotPreservesInsertionOrder(t *testing.T) {
	s := newTempStore(t)

	keys := []string{"Z", "A", "M", "B"}
	for _, k := range keys {
		require.NoError(t, s.Put(k, "v"))
	}

	entries, err := s.Snapshot()
	require.NoError(t, err)
	require.Len(t, entries, len(keys))
	for i, k := range keys {
		assert.Equal(t, k, entries[i].Key)
	}
}

func TestSimulateModeWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.env")
	s := NewStore(path, true)

	require.NoError(t, s.Put("A", "1"))
	require.NoError(t, s.Delete("A"))
	require.NoError(t, s.Clear())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "simulate mode must not create the file")
}

func TestWriteCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.env")
	s := NewStore(path, false)

	require.NoError(t, s.Put("A", "1"))

	got, err := s.Get("A")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}
