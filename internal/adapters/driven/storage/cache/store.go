// Package cache persists one index per source document in its own directory.
//
// Layout under the cache root:
//
//	<key>/vectors.idx   flat vector index (see vector/flat)
//	<key>/passages.db   passages in row order (see storage/sqlite)
//
// The key is derived from the source base name only, so two files with the
// same name in different directories share an entry.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/policyqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.CacheStore = (*Store)(nil)

// KeySuffix is appended to every sanitised base name.
const KeySuffix = "_cache"

// Artifact names inside a cache directory.
const (
	IndexFile    = flat.FileName
	PassagesFile = sqlite.FileName
)

// Store reads and writes cache directories under a root.
type Store struct {
	root string
}

// NewStore creates a store rooted at root.
// If root is empty, defaults to ~/.policyqa/cached_files.
func NewStore(root string) (*Store, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		root = filepath.Join(home, ".policyqa", "cached_files")
	}
	return &Store{root: root}, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// Sanitise keeps ASCII letters, digits, spaces, dots and underscores.
func Sanitise(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '.', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Key derives the cache directory name for a source path.
func (s *Store) Key(sourcePath string) string {
	return Sanitise(filepath.Base(sourcePath)) + KeySuffix
}

// Dir returns the cache directory for a source path.
func (s *Store) Dir(sourcePath string) string {
	return filepath.Join(s.root, s.Key(sourcePath))
}

// Exists reports whether both artifacts are present.
func (s *Store) Exists(sourcePath string) bool {
	return complete(s.Dir(sourcePath))
}

func complete(dir string) bool {
	return fileExists(filepath.Join(dir, IndexFile)) && fileExists(filepath.Join(dir, PassagesFile))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Save writes both artifacts, creating the directory when needed.
// Files are written in place; an interrupted save leaves an entry that the
// next Load reports as missing or corrupted.
func (s *Store) Save(ctx context.Context, sourcePath string, entry *driven.CacheEntry) error {
	if entry == nil || entry.Index == nil {
		return fmt.Errorf("saving cache: %w", domain.ErrInvalidInput)
	}
	if entry.Index.Len() != len(entry.Passages) {
		return fmt.Errorf("saving cache: %d vectors for %d passages: %w",
			entry.Index.Len(), len(entry.Passages), domain.ErrInvalidInput)
	}
	index, ok := entry.Index.(*flat.Index)
	if !ok {
		return fmt.Errorf("saving cache: unsupported index type %T", entry.Index)
	}

	dir := s.Dir(sourcePath)
	logger.Debug("Saving cache to %s", dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	if err := writeIndex(filepath.Join(dir, IndexFile), index); err != nil {
		return err
	}

	// A stale passage file from an older build is replaced, not appended to.
	dbPath := filepath.Join(dir, PassagesFile)
	if err := os.Remove(dbPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing old passages: %w", err)
	}
	store, err := sqlite.Create(dbPath)
	if err != nil {
		return fmt.Errorf("creating passage store: %w", err)
	}
	defer store.Close()

	if err := store.Replace(ctx, entry.Passages); err != nil {
		return fmt.Errorf("writing passages: %w", err)
	}

	meta := map[string]string{
		sqlite.MetaDimension:  strconv.Itoa(index.Dimension()),
		sqlite.MetaSourceFile: filepath.Base(sourcePath),
		sqlite.MetaBuiltAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if entry.Model != "" {
		meta[sqlite.MetaEmbeddingModel] = entry.Model
	}
	for k, v := range meta {
		if err := store.SetMeta(ctx, k, v); err != nil {
			return err
		}
	}

	return nil
}

func writeIndex(path string, index *flat.Index) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}
	if _, err := index.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing index file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing index file: %w", err)
	}
	return nil
}

// Load reads both artifacts. Failures are reported through the status:
// a missing file gives domain.CacheMissing, anything that fails to decode or
// disagrees on row count gives domain.CacheCorrupted.
func (s *Store) Load(ctx context.Context, sourcePath string) driven.CacheLoadResult {
	dir := s.Dir(sourcePath)
	indexPath := filepath.Join(dir, IndexFile)
	dbPath := filepath.Join(dir, PassagesFile)

	for _, p := range []string{indexPath, dbPath} {
		if !fileExists(p) {
			return driven.CacheLoadResult{
				Status: domain.CacheMissing,
				Err:    fmt.Errorf("%s: %w", filepath.Base(p), domain.ErrCacheMiss),
			}
		}
	}

	corrupted := func(err error) driven.CacheLoadResult {
		logger.Warn("Cache %s is corrupted: %v", s.Key(sourcePath), err)
		return driven.CacheLoadResult{
			Status: domain.CacheCorrupted,
			Err:    fmt.Errorf("%w: %v", domain.ErrCacheCorrupted, err),
		}
	}

	f, err := os.Open(indexPath)
	if err != nil {
		return corrupted(err)
	}
	index, err := flat.Read(f)
	f.Close()
	if err != nil {
		return corrupted(err)
	}

	passages, model, err := readPassages(ctx, dbPath)
	if err != nil {
		return corrupted(err)
	}

	if index.Len() != len(passages) {
		return corrupted(fmt.Errorf("%d vectors for %d passages", index.Len(), len(passages)))
	}

	logger.Debug("Loaded cache %s (%d passages, dim %d)", s.Key(sourcePath), len(passages), index.Dimension())
	return driven.CacheLoadResult{
		Status: domain.CacheFound,
		Entry: &driven.CacheEntry{
			Index:    index,
			Passages: passages,
			Model:    model,
		},
	}
}

func readPassages(ctx context.Context, path string) ([]domain.Passage, string, error) {
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer store.Close()

	passages, err := store.All(ctx)
	if err != nil {
		return nil, "", err
	}

	// Entries written without a model name are still usable.
	model, err := store.Meta(ctx, sqlite.MetaEmbeddingModel)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, "", err
	}
	return passages, model, nil
}

// Remove deletes the cache directory for the source.
// Removing an absent entry returns domain.ErrNotFound.
func (s *Store) Remove(sourcePath string) error {
	dir := s.Dir(sourcePath)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return domain.ErrNotFound
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing cache directory: %w", err)
	}
	return nil
}

// List describes every cache directory under the root, sorted by key.
// A missing root yields an empty list.
func (s *Store) List() ([]domain.CacheInfo, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache root: %w", err)
	}

	var infos []domain.CacheInfo
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), KeySuffix) {
			continue
		}
		dir := filepath.Join(s.root, e.Name())
		infos = append(infos, s.info(e.Name(), dir))
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Info describes the cache directory for one source.
func (s *Store) Info(sourcePath string) domain.CacheInfo {
	return s.info(s.Key(sourcePath), s.Dir(sourcePath))
}

func (s *Store) info(key, dir string) domain.CacheInfo {
	info := domain.CacheInfo{
		Key:      key,
		Dir:      dir,
		Complete: complete(dir),
		Passages: -1,
	}
	if !info.Complete {
		return info
	}

	store, err := sqlite.Open(filepath.Join(dir, PassagesFile))
	if err != nil {
		return info
	}
	defer store.Close()

	if n, err := store.Count(context.Background()); err == nil {
		info.Passages = n
	}
	return info
}
