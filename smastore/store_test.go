package smastore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/smaq"
)

func newTestArtifact(key smaq.PredicateKey) *Artifact {
	return &Artifact{
		Key:            key,
		Column:         "price",
		Op:             smaq.OpGt,
		Min:            1,
		Max:            900,
		LowerThreshold: -5,
		UpperThreshold: 20,
		Outliers: &smaq.Table{
			Columns: []string{"id", "price"},
			Rows:    [][]any{{int64(1), 900.0}},
		},
		BuiltAt:      time.Now().Truncate(time.Second),
		BuiltAtQuery: 3,
	}
}

func TestStorePutLookupRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	key := smaq.NewPredicateKey("orders.parquet", "price", smaq.OpGt, 200)
	artifact := newTestArtifact(key)

	require.NoError(t, store.Put(artifact))
	assert.True(t, store.Exists(key))

	got, err := store.Lookup(key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, artifact.Min, got.Min)
	assert.Equal(t, artifact.Max, got.Max)
	assert.Equal(t, artifact.LowerThreshold, got.LowerThreshold)
	assert.Equal(t, artifact.UpperThreshold, got.UpperThreshold)
	assert.Equal(t, artifact.BuiltAtQuery, got.BuiltAtQuery)
	require.Equal(t, 1, got.Outliers.NumRows())
	assert.Equal(t, "price", got.Column)
	assert.Equal(t, smaq.OpGt, got.Op)
}

func TestStoreLookupMissingReturnsNil(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	got, err := store.Lookup(smaq.PredicateKey("no_such_key"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	key := smaq.NewPredicateKey("orders.parquet", "price", smaq.OpGt, 200)
	artifact := newTestArtifact(key)
	require.NoError(t, store.Put(artifact))
	require.True(t, store.Exists(key))

	require.NoError(t, store.Remove(key))
	assert.False(t, store.Exists(key))

	// removing an already-absent key is not an error.
	require.NoError(t, store.Remove(key))
}

func TestStoreLookupRemovesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	key := smaq.NewPredicateKey("orders.parquet", "price", smaq.OpGt, 200)
	path := filepath.Join(dir, string(key)+".sma")
	require.NoError(t, os.WriteFile(path, []byte("not a valid artifact"), 0o644))
	require.True(t, store.Exists(key))

	got, err := store.Lookup(key)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.False(t, store.Exists(key), "corrupt artifact file should be removed on decode failure")
}

func TestStorePutLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	key := smaq.NewPredicateKey("orders.parquet", "price", smaq.OpGt, 200)
	require.NoError(t, store.Put(newTestArtifact(key)))

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStorePutOverwritesExistingArtifact(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	key := smaq.NewPredicateKey("orders.parquet", "price", smaq.OpGt, 200)
	first := newTestArtifact(key)
	require.NoError(t, store.Put(first))

	second := newTestArtifact(key)
	second.Max = 9000
	require.NoError(t, store.Put(second))

	got, err := store.Lookup(key)
	require.NoError(t, err)
	assert.Equal(t, 9000.0, got.Max)
}
