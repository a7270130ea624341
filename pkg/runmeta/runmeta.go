// Package runmeta manages the .zipsplat/ directory a sync run uses for its
// advisory lock and forensic journal.
package runmeta

import (
	"fmt"
	"path/filepath"
	"time"

	"zipsplat/pkg/safepath"
)

// DirName is the name of the run-metadata directory inside a destination.
const DirName = ".zipsplat"

// Dir provides access to the .zipsplat/ directory structure beneath a
// destination root.
type Dir struct {
	root      string              // absolute path to .zipsplat/
	validator *safepath.Validator // destination's containment validator
}

// Init creates and returns a Dir for the given destination root, creating the
// .zipsplat/ directory if it does not already exist.
func Init(destinationRoot string, validator *safepath.Validator) (*Dir, error) {
	metaRoot := filepath.Join(destinationRoot, DirName)

	if err := validator.SafeMkdirAll(metaRoot); err != nil {
		return nil, fmt.Errorf("create run metadata directory: %w", err)
	}

	return &Dir{
		root:      metaRoot,
		validator: validator,
	}, nil
}

// Root returns the absolute path to the .zipsplat/ directory.
func (d *Dir) Root() string {
	return d.root
}

// JournalPath returns the journal file path for a given run ID.
func (d *Dir) JournalPath(runID string) string {
	return filepath.Join(d.root, "journal", runID+".jsonl")
}

// LockPath returns the advisory lock file path shared by every run against
// this destination.
func (d *Dir) LockPath() string {
	return filepath.Join(d.root, "lock")
}

// RunID generates a timestamped run ID for the given command, of the form
// <command>-<YYYYMMDDTHHmmss>.
func (d *Dir) RunID(command string) string {
	return command + "-" + time.Now().UTC().Format("20060102T150405")
}
