// Package destscan implements the Destination Scanner: a recursive walk of
// the destination tree that classifies each present file as unambiguous or
// ambiguous, mirroring the Splat Path Computer's disambiguation layout so
// that a re-run can recognize what an earlier run already resolved.
package destscan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"zipsplat/pkg/internalpath"
	"zipsplat/pkg/runmeta"
)

// Kind classifies an ExistingFile.
type Kind int

const (
	// Unambiguous means the file sits directly at destination/InternalPath.
	Unambiguous Kind = iota
	// Ambiguous means the file sits under a `<zip name>.zip/` directory, a
	// disambiguating write from an earlier run.
	Ambiguous
)

// ExistingFile describes one regular file already present in the
// destination tree.
type ExistingFile struct {
	Internal   internalpath.Path
	OnDiskPath string
	ZipName    string // set only when Kind == Ambiguous
	Size       int64
	Kind       Kind
}

// IsAmbiguous reports whether the file lives under a disambiguating
// `<zip name>.zip/` directory.
func (e ExistingFile) IsAmbiguous() bool { return e.Kind == Ambiguous }

// Scan walks destRoot recursively and returns one ExistingFile per regular
// file found. A file is ambiguous iff its immediate parent directory name
// ends in ".zip"; its internal path is then relative to that parent, and the
// parent's name is recorded as ZipName. Otherwise its internal path is
// relative to destRoot.
func Scan(destRoot string, interner *internalpath.Interner) ([]ExistingFile, error) {
	var files []ExistingFile

	err := filepath.WalkDir(destRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == runmeta.DirName && path != destRoot {
				return fs.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		parentDir := filepath.Dir(path)
		parentName := filepath.Base(parentDir)

		if strings.HasSuffix(parentName, ".zip") {
			rel, err := filepath.Rel(parentDir, path)
			if err != nil {
				return fmt.Errorf("relativize %s against %s: %w", path, parentDir, err)
			}

			files = append(files, ExistingFile{
				Internal:   interner.Intern(rel),
				OnDiskPath: path,
				ZipName:    parentName,
				Size:       info.Size(),
				Kind:       Ambiguous,
			})
			return nil
		}

		rel, err := filepath.Rel(destRoot, path)
		if err != nil {
			return fmt.Errorf("relativize %s against %s: %w", path, destRoot, err)
		}

		files = append(files, ExistingFile{
			Internal:   interner.Intern(rel),
			OnDiskPath: path,
			Size:       info.Size(),
			Kind:       Unambiguous,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan destination %s: %w", destRoot, err)
	}

	return files, nil
}

// ByInternalPath groups files by InternalPath, the shape the Sync
// Orchestrator uses to test whether an archive entry is already present.
func ByInternalPath(files []ExistingFile) map[internalpath.Path][]ExistingFile {
	grouped := make(map[internalpath.Path][]ExistingFile, len(files))
	for _, f := range files {
		grouped[f.Internal] = append(grouped[f.Internal], f)
	}
	return grouped
}
