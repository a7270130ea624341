package validate_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"zipsplat/internal/testutil"
	"zipsplat/pkg/validate"
)

func TestRun_FlagsMissingDestinationFile(t *testing.T) {
	srcDir := testutil.TempDir(t)
	destDir := testutil.TempDir(t)

	testutil.CreateZip(t, filepath.Join(srcDir, "a.zip"), []testutil.ZipEntry{
		{Name: "x.txt", Content: []byte("hello")},
	})

	report, err := validate.Run(context.Background(), validate.Options{
		Destination: destDir,
		Sources:     []string{srcDir},
	})
	require.NoError(t, err)
	require.True(t, report.HasProblems())
	require.Len(t, report.Findings, 1)
	require.Equal(t, validate.Problem, report.Findings[0].Severity)
}

func TestRun_DeletedSourceArchiveIsNotAProblem(t *testing.T) {
	srcDir := testutil.TempDir(t)
	destDir := testutil.TempDir(t)

	// No source archives at all, but a file already sits in the destination
	// from a prior run whose archive has since been deleted.
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "x.txt"), []byte("hello"), 0o644))

	report, err := validate.Run(context.Background(), validate.Options{
		Destination: destDir,
		Sources:     []string{srcDir},
	})
	require.NoError(t, err)
	require.False(t, report.HasProblems())
	require.Empty(t, report.Findings)
}

func TestRun_ShallowSkipsContentVerification(t *testing.T) {
	srcDir := testutil.TempDir(t)
	destDir := testutil.TempDir(t)

	testutil.CreateZip(t, filepath.Join(srcDir, "a.zip"), []testutil.ZipEntry{
		{Name: "x.txt", Content: []byte("hello")},
	})
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "x.txt"), []byte("corrupted"), 0o644))

	report, err := validate.Run(context.Background(), validate.Options{
		Destination: destDir,
		Sources:     []string{srcDir},
	})
	require.NoError(t, err)
	require.False(t, report.HasProblems(), "shallow mode only checks presence, not content")
}

func TestRun_DeepAcceptsMatchingContent(t *testing.T) {
	srcDir := testutil.TempDir(t)
	destDir := testutil.TempDir(t)

	testutil.CreateZip(t, filepath.Join(srcDir, "a.zip"), []testutil.ZipEntry{
		{Name: "x.txt", Content: []byte("hello")},
	})
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "x.txt"), []byte("hello"), 0o644))

	report, err := validate.Run(context.Background(), validate.Options{
		Destination: destDir,
		Sources:     []string{srcDir},
		Deep:        true,
	})
	require.NoError(t, err)
	require.False(t, report.HasProblems())
}

func TestRun_DeepFlagsDivergedContent(t *testing.T) {
	srcDir := testutil.TempDir(t)
	destDir := testutil.TempDir(t)

	testutil.CreateZip(t, filepath.Join(srcDir, "a.zip"), []testutil.ZipEntry{
		{Name: "x.txt", Content: []byte("hello")},
	})
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "x.txt"), []byte("corrupted"), 0o644))

	report, err := validate.Run(context.Background(), validate.Options{
		Destination: destDir,
		Sources:     []string{srcDir},
		Deep:        true,
	})
	require.NoError(t, err)
	require.True(t, report.HasProblems())
	require.Len(t, report.Findings, 1)
	require.Equal(t, validate.Problem, report.Findings[0].Severity)
}

func TestRun_EmptyDestinationAndSourcesIsClean(t *testing.T) {
	srcDir := testutil.TempDir(t)
	destDir := testutil.TempDir(t)

	report, err := validate.Run(context.Background(), validate.Options{
		Destination: destDir,
		Sources:     []string{srcDir},
	})
	require.NoError(t, err)
	require.Zero(t, report.PathsChecked)
	require.Empty(t, report.Findings)
}
