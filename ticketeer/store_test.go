package ticketeer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoad(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	in := map[string]int{"a": 1, "b": 2}
	require.NoError(t, store.Save("counts", in))

	out := map[string]int{}
	require.NoError(t, store.Load("counts", &out))
	assert.Equal(t, in, out)
}

func TestStoreLoadMissingFile(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	out := map[string]int{"existing": 1}
	require.NoError(t, store.Load("nope", &out))
	// untouched on missing file
	assert.Equal(t, map[string]int{"existing": 1}, out)
}

func TestStoreLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	require.NoError(t, err)

	require.NoError(
		t,
		os.WriteFile(
			filepath.Join(dir, "broken.json"),
			[]byte("{not json"),
			0o600,
		),
	)

	out := map[string]int{}
	require.NoError(t, store.Load("broken", &out))
	assert.Empty(t, out)
}

func TestStoreSaveAtomic(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, store.Save("doc", map[string]string{"k": "v"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.json", entries[0].Name())

	// the written file is well-formed json
	data, err := os.ReadFile(filepath.Join(dir, "doc.json"))
	require.NoError(t, err)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "v", decoded["k"])
}

func TestStoreCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	_, err := NewStore(dir, nil)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
