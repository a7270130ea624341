package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"zipsplat/internal/testutil"
	"zipsplat/pkg/config"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "config.json")

	cfg := config.Config{}
	cfg, err := cfg.AddProfile(config.Profile{Name: "2018", Destination: "/dest", Sources: []string{"/src"}})
	require.NoError(t, err)

	require.NoError(t, config.Save(path, cfg))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "2018", loaded.ActiveProfile)
	require.Len(t, loaded.Profiles, 1)
	require.Equal(t, config.DefaultSimilarityThreshold, loaded.Profiles[0].Similarity)
}

func TestLoadMissingReturnsErrConfigMissing(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "nope.json")
	_, err := config.Load(path)
	require.ErrorIs(t, err, config.ErrConfigMissing)
}

func TestAddProfileRejectsDuplicateName(t *testing.T) {
	cfg := config.Config{}
	cfg, err := cfg.AddProfile(config.Profile{Name: "a", Destination: "/d"})
	require.NoError(t, err)

	_, err = cfg.AddProfile(config.Profile{Name: "a", Destination: "/other"})
	require.ErrorIs(t, err, config.ErrProfileExists)
}

func TestUseAutoSelectsSingleProfile(t *testing.T) {
	cfg := config.Config{}
	cfg, err := cfg.AddProfile(config.Profile{Name: "only", Destination: "/d"})
	require.NoError(t, err)

	cfg.ActiveProfile = ""
	cfg, err = cfg.Use("")
	require.NoError(t, err)
	require.Equal(t, "only", cfg.ActiveProfile)
}

func TestUseIsAmbiguousWithMultipleProfilesAndNoName(t *testing.T) {
	cfg := config.Config{}
	cfg, err := cfg.AddProfile(config.Profile{Name: "a", Destination: "/a"})
	require.NoError(t, err)
	cfg, err = cfg.AddProfile(config.Profile{Name: "b", Destination: "/b"})
	require.NoError(t, err)

	_, err = cfg.Use("")
	require.ErrorIs(t, err, config.ErrAmbiguousProfile)
}

func TestUseByNameSelectsProfile(t *testing.T) {
	cfg := config.Config{}
	cfg, err := cfg.AddProfile(config.Profile{Name: "a", Destination: "/a"})
	require.NoError(t, err)
	cfg, err = cfg.AddProfile(config.Profile{Name: "b", Destination: "/b"})
	require.NoError(t, err)

	cfg, err = cfg.Use("b")
	require.NoError(t, err)
	require.Equal(t, "b", cfg.ActiveProfile)
}

func TestActiveReturnsErrorWhenUnset(t *testing.T) {
	cfg := config.Config{}
	_, err := cfg.Active()
	require.ErrorIs(t, err, config.ErrProfileNotFound)
}
