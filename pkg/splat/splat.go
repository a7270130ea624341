// Package splat implements the Splat Path Computer: it maps an internal path
// to an absolute destination path, optionally disambiguating by inserting
// the source archive's filename as a parent directory.
package splat

import (
	"errors"
	"path"
	"path/filepath"

	"zipsplat/pkg/archive"
	"zipsplat/pkg/internalpath"
)

// unknownZip is the placeholder directory name used when disambiguating
// against an archive path that carries no usable filename.
const unknownZip = "unknown_zip"

// ErrNoFileName is returned when internal has no basename to place at the
// destination — e.g. an internal path that is empty or names only a
// directory.
var ErrNoFileName = errors.New("splat: internal path has no basename")

// Path returns the destination path for internal under destRoot.
//
// With archivePath == nil, the result is destRoot/internal.
//
// With archivePath set, the result inserts the archive's base filename
// between internal's parent directory and its basename:
// destRoot/parent(internal)/basename(archivePath)/basename(internal).
// This mirrors the layout the Destination Scanner recognizes on a re-run.
//
// Path fails with ErrNoFileName when internal has no basename.
func Path(internal internalpath.Path, destRoot string, archivePath *archive.Path) (string, error) {
	cleaned := path.Clean(internal.String())
	nativeParent := filepath.FromSlash(path.Dir(cleaned))
	file := filepath.FromSlash(path.Base(cleaned))

	if file == "" || file == "." || file == "/" {
		return "", ErrNoFileName
	}

	if archivePath == nil {
		return filepath.Join(destRoot, filepath.FromSlash(cleaned)), nil
	}

	zname := archivePath.Base()
	if zname == "" || zname == "." || zname == "/" {
		zname = unknownZip
	}

	if nativeParent == "." {
		return filepath.Join(destRoot, zname, file), nil
	}

	return filepath.Join(destRoot, nativeParent, zname, file), nil
}
