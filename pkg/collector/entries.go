package collector

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"zipsplat/pkg/archive"
	"zipsplat/pkg/executor"
	"zipsplat/pkg/internalpath"
)

// FindArchives walks each source directory and returns every *.zip file
// found beneath it, using the same walker Collect uses.
func (c *Collector) FindArchives(sourceDirs []string) ([]archive.Path, error) {
	var archives []archive.Path

	for _, dir := range sourceDirs {
		files, err := c.Collect(dir)
		if err != nil {
			return nil, fmt.Errorf("find archives under %s: %w", dir, err)
		}

		for _, f := range files {
			if strings.EqualFold(filepath.Ext(f.Path), ".zip") {
				archives = append(archives, archive.Path(f.Path))
			}
		}
	}

	return archives, nil
}

// ArchiveError records one archive that failed to enumerate.
type ArchiveError struct {
	Archive archive.Path
	Err     error
}

func (e ArchiveError) Error() string {
	return fmt.Sprintf("%s: %v", e.Archive, e.Err)
}

// CollectEntries implements the Entry Collector: it fans out one task per
// archive through the Progress Executor, each opening the archive and
// enumerating its sanitized entries. One archive's failure is reported in
// failed but does not cancel its siblings. The returned entries are in no
// particular cross-archive order. concurrency caps how many archives are
// opened at once; zero means unlimited.
func CollectEntries(
	ctx context.Context,
	arena *archive.Arena,
	interner *internalpath.Interner,
	archives []archive.Path,
	concurrency int,
) (entries []archive.Entry, failed []ArchiveError, err error) {
	results, runErr := executor.Run(ctx, archives, executor.Options{Concurrency: concurrency},
		func(taskCtx context.Context, path archive.Path) ([]archive.Entry, int64, error) {
			if taskCtx.Err() != nil {
				return nil, 0, taskCtx.Err()
			}
			list, err := arena.List(path, interner)
			return list, 0, err
		})
	if runErr != nil {
		return nil, nil, runErr
	}

	for i, path := range archives {
		if results[i].Err != nil {
			failed = append(failed, ArchiveError{Archive: path, Err: results[i].Err})
			continue
		}

		for _, e := range results[i].Value {
			if e.IsDir() {
				continue
			}
			entries = append(entries, e)
		}
	}

	if len(archives) > 0 && len(failed) == len(archives) {
		return entries, failed, fmt.Errorf("collect entries: all %d archives failed", len(archives))
	}

	return entries, failed, nil
}
