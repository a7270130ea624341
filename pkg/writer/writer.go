// Package writer implements the Writer: given an entry and a destination
// path, it materializes the entry's bytes idempotently, skipping writes
// whose destination already exists, and records successful writes to a
// forensic journal.
package writer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"zipsplat/pkg/archive"
	"zipsplat/pkg/checksum"
	"zipsplat/pkg/journal"
)

// Writer materializes archive entries to destination paths.
type Writer struct {
	arena   *archive.Arena
	journal *journal.Writer // nil disables journaling
	logger  *slog.Logger
}

// New creates a Writer that reads entry bytes through arena and, if j is
// non-nil, journals every successful write.
func New(arena *archive.Arena, j *journal.Writer, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{arena: arena, journal: j, logger: logger}
}

// Write materializes entry at destPath. It returns wrote=false without error
// if destPath already exists — the resume semantics that let a re-run skip
// work a prior run already completed. Otherwise it writes the entry's bytes
// to a temporary file in the same directory and renames it into place, so a
// reader never observes a partially written destination file.
func (w *Writer) Write(entry archive.Entry, destPath string) (wrote bool, err error) {
	if _, statErr := os.Stat(destPath); statErr == nil {
		return false, nil
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return false, fmt.Errorf("writer: stat %s: %w", destPath, statErr)
	}

	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return false, fmt.Errorf("writer: create %s: %w", destDir, err)
	}

	data, err := entry.Bytes(w.arena)
	if err != nil {
		return false, fmt.Errorf("writer: read entry for %s: %w", destPath, err)
	}

	if err := writeThenRename(destDir, destPath, data); err != nil {
		return false, err
	}

	w.journalWrite(entry, destPath)
	return true, nil
}

func writeThenRename(destDir, destPath string, data []byte) error {
	tmp, err := os.CreateTemp(destDir, ".zipsplat-tmp-*")
	if err != nil {
		return fmt.Errorf("writer: create temp file in %s: %w", destDir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writer: write %s: %w", tmpPath, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writer: sync %s: %w", tmpPath, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writer: close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writer: rename %s to %s: %w", tmpPath, destPath, err)
	}

	return nil
}

// journalWrite appends a success entry to the journal. A journal failure is
// logged but never fails the write itself — the destination file is already
// durable by the time journaling runs.
func (w *Writer) journalWrite(entry archive.Entry, destPath string) {
	if w.journal == nil {
		return
	}

	err := w.journal.Log(journal.Entry{
		Type:    "write",
		Source:  entry.Internal.String(),
		Dest:    destPath,
		CRC32:   checksum.FormatCRC32(entry.CRC32),
		Success: true,
	})
	if err != nil {
		w.logger.Warn("journal write failed", "dest", destPath, "error", err)
	}
}
