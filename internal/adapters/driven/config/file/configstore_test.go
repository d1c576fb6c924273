package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	require.NoError(t, store.Set("chunk.size", 256))
	_, err = os.Stat(filepath.Join(dir, "config.toml"))
	assert.NoError(t, err)
}

func TestNewConfigStore_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[chunk\nsize = "), 0600))

	_, err := NewConfigStore(tmpDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SetAll(map[string]any{
		"embedding.model":   "mxbai-embed-large",
		"chunk.size":        512,
		"retrieval.enabled": true,
		"extractor.order":   []string{"pdftotext", "native"},
	}))

	assert.Equal(t, "mxbai-embed-large", store.GetString("embedding.model"))
	assert.Equal(t, 512, store.GetInt("chunk.size"))
	assert.True(t, store.GetBool("retrieval.enabled"))
	assert.Equal(t, []string{"pdftotext", "native"}, store.GetStringSlice("extractor.order"))
}

func TestConfigStore_TypeMismatchReturnsZero(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("chunk.size", "large"))

	assert.Equal(t, 0, store.GetInt("chunk.size"))
	assert.False(t, store.GetBool("chunk.size"))
	assert.Nil(t, store.GetStringSlice("chunk.size"))
	assert.Equal(t, "", store.GetString("missing"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SetAll(map[string]any{
		"chunk.size":    512,
		"chunk.overlap": 50,
		"cache.dir":     "/tmp/cache",
	}))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[chunk]")
	assert.Contains(t, string(raw), "[cache]")
	assert.NotContains(t, string(raw), `"chunk.size"`)
}

func TestConfigStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.SetAll(map[string]any{
		"llm.provider":        "anthropic",
		"retrieval.initial_k": 20,
	}))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", reopened.GetString("llm.provider"))
	assert.Equal(t, 20, reopened.GetInt("retrieval.initial_k"))
	assert.Equal(t, []string{"llm.provider", "retrieval.initial_k"}, reopened.Keys())
}

func TestConfigStore_ReadsHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[normaliser]
header_lines = 4
threshold_percent = 50

[rerank]
base_url = "http://localhost:7997"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 4, store.GetInt("normaliser.header_lines"))
	assert.Equal(t, 50, store.GetInt("normaliser.threshold_percent"))
	assert.Equal(t, "http://localhost:7997", store.GetString("rerank.base_url"))
}

func TestConfigStore_ConflictingKeysRejected(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("chunk", "flat"))

	err = store.Set("chunk.size", 10)

	require.Error(t, err)
	_, ok := store.Get("chunk.size")
	assert.False(t, ok, "failed write must not leave the value in memory")
	assert.Equal(t, "flat", store.GetString("chunk"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.api_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Load_MissingFileIsEmpty(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Load())
	assert.Empty(t, store.Keys())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("chunk.size", n)
			_ = store.GetInt("chunk.size")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("chunk.size")
	assert.True(t, ok)
}

func TestUnflattenMap(t *testing.T) {
	nested, err := unflattenMap(map[string]any{
		"a.b.c": 1,
		"a.d":   "x",
		"e":     true,
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
			"d": "x",
		},
		"e": true,
	}, nested)
	assert.Equal(t, map[string]any{"a.b.c": 1, "a.d": "x", "e": true}, flattenMap(nested, ""))
}
