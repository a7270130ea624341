package sync_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"zipsplat/internal/testutil"
	"zipsplat/pkg/sync"
)

func TestSingleArchivePassthrough(t *testing.T) {
	srcDir := testutil.TempDir(t)
	destDir := testutil.TempDir(t)

	testutil.CreateZip(t, filepath.Join(srcDir, "a.zip"), []testutil.ZipEntry{
		{Name: "x.txt", Content: []byte("hello")},
		{Name: "dir/y.txt", Content: []byte("world")},
	})

	report, err := sync.Run(context.Background(), sync.Options{
		Destination: destDir,
		Sources:     []string{srcDir},
	})
	require.NoError(t, err)
	require.Equal(t, 2, report.Written)
	require.Zero(t, report.AlreadyPresent)
	require.Empty(t, report.Ambiguous)

	requireFileContent(t, filepath.Join(destDir, "x.txt"), "hello")
	requireFileContent(t, filepath.Join(destDir, "dir", "y.txt"), "world")
}

func TestIdenticalContentsAcrossArchivesResolveByCRC32(t *testing.T) {
	srcDir := testutil.TempDir(t)
	destDir := testutil.TempDir(t)

	testutil.CreateZip(t, filepath.Join(srcDir, "a.zip"), []testutil.ZipEntry{
		{Name: "x.txt", Content: []byte("hello")},
	})
	testutil.CreateZip(t, filepath.Join(srcDir, "b.zip"), []testutil.ZipEntry{
		{Name: "x.txt", Content: []byte("hello")},
	})

	report, err := sync.Run(context.Background(), sync.Options{
		Destination: destDir,
		Sources:     []string{srcDir},
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Written)
	require.Empty(t, report.Ambiguous)

	requireFileContent(t, filepath.Join(destDir, "x.txt"), "hello")
}

func TestDifferingContentsUnderSameNameFailsLoudly(t *testing.T) {
	srcDir := testutil.TempDir(t)
	destDir := testutil.TempDir(t)

	testutil.CreateZip(t, filepath.Join(srcDir, "a.zip"), []testutil.ZipEntry{
		{Name: "x.txt", Content: []byte("hello")},
	})
	testutil.CreateZip(t, filepath.Join(srcDir, "b.zip"), []testutil.ZipEntry{
		{Name: "x.txt", Content: []byte("world")},
	})

	report, err := sync.Run(context.Background(), sync.Options{
		Destination: destDir,
		Sources:     []string{srcDir},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, sync.ErrUnresolvedAmbiguity))
	require.NotEmpty(t, report.Ambiguous)

	_, statErr := os.Stat(filepath.Join(destDir, "x.txt"))
	require.True(t, os.IsNotExist(statErr), "destination must stay unchanged for an unresolved path")
}

func TestSameNameImagesWithinThresholdResolveByImageHash(t *testing.T) {
	srcDir := testutil.TempDir(t)
	destDir := testutil.TempDir(t)

	big := gradientPNG(t, 64, 64)
	small := gradientPNG(t, 8, 8)
	require.Less(t, len(small), len(big), "fixture must differ in compressed size so the test exercises tie-breaking")

	testutil.CreateZip(t, filepath.Join(srcDir, "a.zip"), []testutil.ZipEntry{
		{Name: "pic.png", Content: big, Method: 0},
	})
	testutil.CreateZip(t, filepath.Join(srcDir, "b.zip"), []testutil.ZipEntry{
		{Name: "pic.png", Content: small, Method: 0},
	})

	report, err := sync.Run(context.Background(), sync.Options{
		Destination: destDir,
		Sources:     []string{srcDir},
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Written)
	require.Empty(t, report.Ambiguous)
	require.Empty(t, report.Unprocessed)

	written, err := os.ReadFile(filepath.Join(destDir, "pic.png"))
	require.NoError(t, err)
	require.Equal(t, small, written, "the smaller compressed copy must win the perceptual tie")
}

func TestResumeSemanticsSkipAlreadyPresentFiles(t *testing.T) {
	srcDir := testutil.TempDir(t)
	destDir := testutil.TempDir(t)

	testutil.CreateZip(t, filepath.Join(srcDir, "a.zip"), []testutil.ZipEntry{
		{Name: "x.txt", Content: []byte("hello")},
		{Name: "dir/y.txt", Content: []byte("world")},
	})

	opts := sync.Options{Destination: destDir, Sources: []string{srcDir}}

	first, err := sync.Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, 2, first.Written)

	second, err := sync.Run(context.Background(), opts)
	require.NoError(t, err)
	require.Zero(t, second.Written)
	require.Equal(t, 2, second.AlreadyPresent)
}

func TestImageHashBudgetExhaustionFailsTheRun(t *testing.T) {
	srcDir := testutil.TempDir(t)
	destDir := testutil.TempDir(t)

	// Different dimensions keep the CRC32 stage from resolving this pair, so
	// it reaches the image-hash stage and can exercise budget exhaustion
	// there.
	a := gradientPNG(t, 32, 32)
	b := gradientPNG(t, 33, 32)

	testutil.CreateZip(t, filepath.Join(srcDir, "a.zip"), []testutil.ZipEntry{
		{Name: "pic.png", Content: a, Method: 0},
	})
	testutil.CreateZip(t, filepath.Join(srcDir, "b.zip"), []testutil.ZipEntry{
		{Name: "pic.png", Content: b, Method: 0},
	})

	report, err := sync.Run(context.Background(), sync.Options{
		Destination:            destDir,
		Sources:                []string{srcDir},
		ImageHashBudgetPerPass: -1,
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, sync.ErrUnresolvedAmbiguity))
	require.NotEmpty(t, report.Unprocessed)

	_, statErr := os.Stat(filepath.Join(destDir, "pic.png"))
	require.True(t, os.IsNotExist(statErr), "destination must stay unchanged while the path is unprocessed")
}

func TestEmptySourceSetFails(t *testing.T) {
	destDir := testutil.TempDir(t)

	_, err := sync.Run(context.Background(), sync.Options{
		Destination: destDir,
		Sources:     nil,
	})
	require.ErrorIs(t, err, sync.ErrNoArchives)
}

func requireFileContent(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, want, string(got))
}

// gradientPNG renders a smooth diagonal intensity ramp normalized to image
// dimensions, so renders at different resolutions describe the same
// underlying picture and hash within a small perceptual distance of each
// other, the way two different re-encodings of a real photo would.
func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((float64(x)/float64(w))*200 + (float64(y)/float64(h))*55)
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
