// Package filelock provides advisory file locking to prevent concurrent
// sync runs from operating on the same destination directory.
package filelock

import "os"

// Lock represents an acquired advisory file lock.
type Lock struct {
	file *os.File
}
