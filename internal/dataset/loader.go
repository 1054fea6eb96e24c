package dataset

import (
	"errors"
	"sync"
	"time"

	"github.com/banshee-data/bikeshare.report/internal/fsutil"
	"github.com/banshee-data/bikeshare.report/internal/monitoring"
)

// DefaultPath is the source file name used when nothing else is configured.
const DefaultPath = "day.csv"

// Options tunes Loader behaviour.
type Options struct {
	// ReloadOnChange makes Load stat the source on every call and re-read
	// it when its size or modification time differs from the cached copy.
	// When false the first successful load is kept for the process lifetime.
	ReloadOnChange bool
}

// fingerprint identifies a version of the source file.
type fingerprint struct {
	size    int64
	modTime time.Time
}

// Loader memoises the validated table. It is safe for concurrent use; the
// HTTP server calls Load from request goroutines.
type Loader struct {
	path string
	fs   fsutil.FileSystem
	opts Options

	mu     sync.Mutex
	table  *Table
	source fingerprint
	reads  int
}

// NewLoader creates a loader for path. A nil fsys reads from the OS.
func NewLoader(path string, fsys fsutil.FileSystem, opts Options) *Loader {
	if path == "" {
		path = DefaultPath
	}
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Loader{path: path, fs: fsys, opts: opts}
}

// Path returns the configured source path.
func (l *Loader) Path() string { return l.path }

// Reads returns how many times the source has actually been parsed.
func (l *Loader) Reads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

// Load returns the cached table, reading the source on first use (or after
// Invalidate, or on change when ReloadOnChange is set). Failed loads are
// not cached. All errors are *LoadError.
func (l *Loader) Load() (*Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.table != nil && !l.opts.ReloadOnChange {
		return l.table, nil
	}

	info, err := l.fs.Stat(l.path)
	if err != nil {
		l.table = nil
		monitoring.Opsf("dataset: stat %s: %v", l.path, err)
		return nil, loadErrorf(l.path, err, "source unavailable")
	}
	if info.IsDir() {
		l.table = nil
		return nil, loadErrorf(l.path, nil, "source is a directory")
	}
	current := fingerprint{size: info.Size(), modTime: info.ModTime()}

	if l.table != nil && current == l.source {
		return l.table, nil
	}
	if l.table != nil {
		monitoring.Diagf("dataset: %s changed (size %d -> %d), reloading", l.path, l.source.size, current.size)
	}

	t, err := l.read()
	if err != nil {
		l.table = nil
		monitoring.Opsf("dataset: %v", err)
		return nil, err
	}
	l.table = t
	l.source = current
	monitoring.Diagf("dataset: loaded %s rows=%d columns=%d", l.path, t.Len(), len(t.columns))
	return t, nil
}

// Invalidate drops the cached table so the next Load re-reads the source.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.table = nil
	l.source = fingerprint{}
	monitoring.Diagf("dataset: cache invalidated for %s", l.path)
}

func (l *Loader) read() (*Table, error) {
	f, err := l.fs.Open(l.path)
	if err != nil {
		return nil, loadErrorf(l.path, err, "source unavailable")
	}
	defer f.Close()
	l.reads++

	t, err := Parse(f)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = l.path
			return nil, le
		}
		return nil, loadErrorf(l.path, err, "parse")
	}
	if err := Validate(l.path, t); err != nil {
		return nil, err
	}
	return t, nil
}
