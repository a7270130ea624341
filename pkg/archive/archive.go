// Package archive implements the Archive Reader: a reference-counted,
// random-access view over a ZIP file's entries. Handles are opened once per
// archive path and reused across every entry that references it, the same
// cached-handle idiom used for random-access ZIP part serving.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"regexp"
	"strings"
	"sync"

	_ "zipsplat/pkg/deflate64" // registers the Deflate64 (method 9) decompressor
	"zipsplat/pkg/internalpath"
)

var (
	// ErrOpenFailed indicates the archive file could not be opened as a ZIP.
	ErrOpenFailed = errors.New("archive: open failed")
	// ErrFormatInvalid indicates the archive's central directory is malformed.
	ErrFormatInvalid = errors.New("archive: invalid format")
	// ErrEntryNameInvalid indicates an entry name cannot be sanitized to a
	// safe internal path (path traversal, absolute path, embedded NUL, or a
	// Windows volume prefix).
	ErrEntryNameInvalid = errors.New("archive: invalid entry name")
	// ErrEntryReadFailed indicates an entry's compressed bytes could not be
	// read or decompressed.
	ErrEntryReadFailed = errors.New("archive: entry read failed")
)

// windowsVolumePrefix matches a drive-letter prefix such as "C:" that has no
// business appearing in a ZIP entry name.
var windowsVolumePrefix = regexp.MustCompile(`^[a-zA-Z]:`)

// Path identifies a ZIP file on disk.
type Path string

// String returns the archive path as a plain string.
func (p Path) String() string { return string(p) }

// Base returns the archive's file name, the "zip name" used by the splat
// path computer when disambiguating by source archive.
func (p Path) Base() string {
	return path.Base(strings.ReplaceAll(string(p), "\\", "/"))
}

// Kind classifies what an Entry represents.
type Kind int

const (
	// KindFile is a regular file entry.
	KindFile Kind = iota
	// KindDirectory is an explicit directory entry (trailing slash).
	KindDirectory
	// KindSymlink is a Unix symlink entry (stored with the symlink file
	// mode bit and link target as its content).
	KindSymlink
)

// Entry describes one sanitized, readable member of an archive. Entry values
// are cheap to copy; reading bytes requires an Arena to reopen the backing
// archive handle.
type Entry struct {
	Archive          Path
	Internal         internalpath.Path
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64
	Method           uint16
	Kind             Kind

	name string // raw name inside the zip, for handle lookup
}

// IsDir reports whether the entry is a directory marker.
func (e Entry) IsDir() bool { return e.Kind == KindDirectory }

// Bytes reads the entry's full decompressed content, acquiring and releasing
// an archive handle from arena for the duration of the read.
func (e Entry) Bytes(arena *Arena) ([]byte, error) {
	h, err := arena.Open(e.Archive)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	rc, err := h.openEntry(e.name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s: %w", ErrEntryReadFailed, e.name, e.Archive, err)
	}

	return data, nil
}

// Reader streams the entry's decompressed content. The caller must Close the
// returned stream, which also releases the archive handle held for it.
func (e Entry) Reader(arena *Arena) (io.ReadCloser, error) {
	h, err := arena.Open(e.Archive)
	if err != nil {
		return nil, err
	}

	rc, err := h.openEntry(e.name)
	if err != nil {
		h.Close()
		return nil, err
	}

	return &boundReader{ReadCloser: rc, handle: h}, nil
}

// boundReader closes its archive handle reference alongside the entry
// stream it wraps.
type boundReader struct {
	io.ReadCloser
	handle *Handle
}

func (b *boundReader) Close() error {
	err := b.ReadCloser.Close()
	b.handle.Close()
	return err
}

// Handle is a reference-counted wrapper around an archive's *zip.ReadCloser.
// It is safe to hold many outstanding Entry values referencing one Handle;
// the underlying OS file is opened lazily and closed once the last
// reference is released, then reopened lazily on the next use.
type Handle struct {
	path Path

	mu     sync.Mutex
	zr     *zip.ReadCloser
	byName map[string]*zip.File
	refs   int
}

// Clone increments the handle's reference count and returns the same handle,
// mirroring the semantics of cloning a shared archive view.
func (h *Handle) Clone() *Handle {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
	return h
}

// Close releases one reference. When the last reference is released the
// underlying OS file is closed; the Handle itself remains valid and will
// reopen the file on the next List or openEntry call.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.refs--
	if h.refs > 0 || h.zr == nil {
		return nil
	}

	err := h.zr.Close()
	h.zr = nil
	h.byName = nil
	return err
}

// List returns sanitized entries for every member of the archive, interning
// each member's internal path through interner.
func (h *Handle) List(interner *internalpath.Interner) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureOpenLocked(); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(h.zr.File))
	for _, zf := range h.zr.File {
		internal, kind, err := sanitizeEntryName(zf.Name, zf.Mode())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", h.path, err)
		}

		entries = append(entries, Entry{
			Archive:          h.path,
			Internal:         interner.Intern(internal),
			CRC32:            zf.CRC32,
			CompressedSize:   zf.CompressedSize64,
			UncompressedSize: zf.UncompressedSize64,
			Method:           zf.Method,
			Kind:             kind,
			name:             zf.Name,
		})
	}

	return entries, nil
}

func (h *Handle) openEntry(name string) (io.ReadCloser, error) {
	h.mu.Lock()
	if err := h.ensureOpenLocked(); err != nil {
		h.mu.Unlock()
		return nil, err
	}
	zf, ok := h.byName[name]
	h.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s not found in %s", ErrEntryReadFailed, name, h.path)
	}

	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s: %w", ErrEntryReadFailed, name, h.path, err)
	}

	return rc, nil
}

func (h *Handle) ensureOpenLocked() error {
	if h.zr != nil {
		return nil
	}

	zr, err := zip.OpenReader(string(h.path))
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return fmt.Errorf("%w: %w: %s: %w", ErrOpenFailed, ErrFormatInvalid, h.path, err)
		}
		return fmt.Errorf("%w: %s: %w", ErrOpenFailed, h.path, err)
	}

	byName := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		byName[zf.Name] = zf
	}

	h.zr = zr
	h.byName = byName
	return nil
}

// Arena caches one Handle per archive path so that every caller referencing
// the same archive shares it instead of reopening the file repeatedly.
//
// Arena is safe for concurrent use.
type Arena struct {
	mu      sync.Mutex
	handles map[Path]*Handle
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	return &Arena{handles: make(map[Path]*Handle)}
}

// Open returns a cloned reference to the Handle for path, creating one if
// this is the first time path has been seen. The caller must Close the
// returned Handle when done with it.
func (a *Arena) Open(path Path) (*Handle, error) {
	a.mu.Lock()
	h, ok := a.handles[path]
	if !ok {
		h = &Handle{path: path}
		a.handles[path] = h
	}
	a.mu.Unlock()

	return h.Clone(), nil
}

// List opens path, lists its sanitized entries, and releases the handle
// reference taken for the listing. Reading entry bytes afterward reopens the
// archive lazily through Entry.Bytes/Entry.Reader.
func (a *Arena) List(path Path, interner *internalpath.Interner) ([]Entry, error) {
	h, err := a.Open(path)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	return h.List(interner)
}

// Len returns the number of distinct archive paths currently cached.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.handles)
}

// sanitizeEntryName validates a raw ZIP entry name and converts it to a safe,
// forward-slash internal path. It rejects path traversal, absolute paths,
// embedded NUL bytes, and Windows volume prefixes, the same classes of
// malformed entry a malicious or corrupt ZIP can carry.
func sanitizeEntryName(raw string, mode fs.FileMode) (string, Kind, error) {
	if strings.ContainsRune(raw, 0) {
		return "", 0, fmt.Errorf("%w: %q contains a NUL byte", ErrEntryNameInvalid, raw)
	}

	normalized := string(internalpath.Normalize(raw))

	if strings.HasPrefix(normalized, "/") {
		return "", 0, fmt.Errorf("%w: %q is an absolute path", ErrEntryNameInvalid, raw)
	}

	if windowsVolumePrefix.MatchString(normalized) {
		return "", 0, fmt.Errorf("%w: %q carries a volume prefix", ErrEntryNameInvalid, raw)
	}

	cleaned := path.Clean(normalized)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", 0, fmt.Errorf("%w: %q escapes the archive root", ErrEntryNameInvalid, raw)
	}

	kind := KindFile
	switch {
	case strings.HasSuffix(normalized, "/"):
		kind = KindDirectory
	case mode&fs.ModeSymlink != 0:
		kind = KindSymlink
	}

	if kind == KindDirectory {
		return normalized, kind, nil
	}

	return cleaned, kind, nil
}
