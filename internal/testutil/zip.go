package testutil

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// ZipEntry describes one member to write into a fixture archive.
type ZipEntry struct {
	Name    string // entry name inside the archive, forward-slash delimited
	Content []byte
	Method  uint16 // zip.Store or zip.Deflate; zero value defaults to zip.Deflate
}

// CreateZip writes a ZIP archive at path containing entries, creating parent
// directories as needed.
func CreateZip(t *testing.T, path string, entries []ZipEntry) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		method := e.Method
		if method == 0 {
			method = zip.Deflate
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   e.Name,
			Method: method,
		})
		require.NoError(t, err)

		_, err = w.Write(e.Content)
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
}
