package domain

// CacheStatus tags the outcome of loading a cache entry.
type CacheStatus int

// Cache load outcomes.
const (
	// CacheFound means both artifacts were present and decoded.
	CacheFound CacheStatus = iota

	// CacheMissing means at least one artifact does not exist.
	CacheMissing

	// CacheCorrupted means an artifact exists but could not be decoded.
	CacheCorrupted
)

// String returns the string representation.
func (s CacheStatus) String() string {
	switch s {
	case CacheFound:
		return "found"
	case CacheMissing:
		return "missing"
	case CacheCorrupted:
		return "corrupted"
	default:
		return unknownDescription
	}
}

// Err returns the sentinel error for a failed load, or nil when found.
func (s CacheStatus) Err() error {
	switch s {
	case CacheMissing:
		return ErrCacheMiss
	case CacheCorrupted:
		return ErrCacheCorrupted
	default:
		return nil
	}
}

// CacheInfo describes a cache directory on disk.
type CacheInfo struct {
	// Key is the sanitised directory name.
	Key string `json:"key"`

	// Dir is the absolute directory path.
	Dir string `json:"dir"`

	// Complete is true when both artifacts exist.
	Complete bool `json:"complete"`

	// Passages is the number of stored passages, or -1 when unreadable.
	Passages int `json:"passages"`
}

// BuildSummary reports the outcome of an index build.
type BuildSummary struct {
	// FileName is the base name of the indexed file.
	FileName string `json:"file_name"`

	// CacheKey is the directory the entry was written to.
	CacheKey string `json:"cache_key"`

	// Pages is the number of non-empty pages after normalisation.
	Pages int `json:"pages"`

	// Passages is the number of indexed passages.
	Passages int `json:"passages"`

	// HasContext is true when a document header block was detected.
	HasContext bool `json:"has_context"`

	// SaveErr is set when the in-memory index was built but could not be
	// persisted. The next session will rebuild.
	SaveErr error `json:"-"`
}

// Persisted reports whether the entry reached disk.
func (b *BuildSummary) Persisted() bool {
	return b != nil && b.SaveErr == nil
}
