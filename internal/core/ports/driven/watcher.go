package driven

// SourceWatcher reports whether a watched source file changed on disk.
type SourceWatcher interface {
	// Changed reports whether the file was written, replaced or removed since
	// the watcher started or since the last Reset.
	Changed() bool

	// Reset clears the changed flag, typically after a rebuild.
	Reset()

	// Close stops watching.
	Close() error
}

// WatcherFactory starts a SourceWatcher for a path.
type WatcherFactory func(path string) (SourceWatcher, error)
