package collector_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"zipsplat/internal/testutil"
	"zipsplat/pkg/archive"
	"zipsplat/pkg/collector"
	"zipsplat/pkg/internalpath"
)

func TestFindArchivesLocatesZipFilesRecursively(t *testing.T) {
	dir := testutil.TempDir(t)
	testutil.CreateZip(t, filepath.Join(dir, "2018.zip"), []testutil.ZipEntry{{Name: "a.txt", Content: []byte("a")}})
	testutil.CreateZip(t, filepath.Join(dir, "nested", "2019.zip"), []testutil.ZipEntry{{Name: "b.txt", Content: []byte("b")}})
	testutil.CreateFile(t, filepath.Join(dir, "notes.txt"), "ignore me")

	c := collector.New(collector.Options{})
	archives, err := c.FindArchives([]string{dir})
	require.NoError(t, err)
	require.Len(t, archives, 2)
}

func TestCollectEntriesFansOutAcrossArchivesAndToleratesFailures(t *testing.T) {
	dir := testutil.TempDir(t)
	zipA := filepath.Join(dir, "a.zip")
	zipB := filepath.Join(dir, "b.zip")
	testutil.CreateZip(t, zipA, []testutil.ZipEntry{
		{Name: "one.txt", Content: []byte("1")},
		{Name: "two.txt", Content: []byte("2")},
	})
	testutil.CreateZip(t, zipB, []testutil.ZipEntry{
		{Name: "three.txt", Content: []byte("3")},
	})

	broken := filepath.Join(dir, "broken.zip")
	testutil.CreateFile(t, broken, "not actually a zip")

	arena := archive.NewArena()
	interner := internalpath.NewInterner()

	entries, failed, err := collector.CollectEntries(
		context.Background(),
		arena,
		interner,
		[]archive.Path{archive.Path(zipA), archive.Path(zipB), archive.Path(broken)},
		0,
	)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Len(t, failed, 1)
	require.Equal(t, archive.Path(broken), failed[0].Archive)
}

func TestCollectEntriesFailsOnlyWhenEveryArchiveFails(t *testing.T) {
	dir := testutil.TempDir(t)
	broken := filepath.Join(dir, "broken.zip")
	testutil.CreateFile(t, broken, "not a zip")

	arena := archive.NewArena()
	interner := internalpath.NewInterner()

	_, failed, err := collector.CollectEntries(
		context.Background(),
		arena,
		interner,
		[]archive.Path{archive.Path(broken)},
		0,
	)
	require.Error(t, err)
	require.Len(t, failed, 1)
}
