// Package config persists sync profiles — named destination/source/
// similarity tuples — to a JSON file under the user's configuration
// directory, and tracks which profile is active.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultSimilarityThreshold is the default maximum perceptual-hash Hamming
// distance the by-image-hash partition strategy accepts as a match.
const DefaultSimilarityThreshold = 5

var (
	// ErrConfigMissing indicates no config file exists yet at the expected path.
	ErrConfigMissing = errors.New("config: file does not exist")
	// ErrConfigInvalid indicates the config file exists but failed to parse
	// or fails validation.
	ErrConfigInvalid = errors.New("config: invalid configuration")
	// ErrProfileNotFound indicates a profile name was not present.
	ErrProfileNotFound = errors.New("config: profile not found")
	// ErrProfileExists indicates a profile name is already in use.
	ErrProfileExists = errors.New("config: profile already exists")
	// ErrAmbiguousProfile indicates "use" was called with no name while more
	// than one profile exists, and no active selection can be inferred.
	ErrAmbiguousProfile = errors.New("config: ambiguous profile selection")
)

// Profile is one named sync configuration: a destination directory, the
// source directories to scan for archives, and the perceptual-hash
// similarity threshold to use during the by-image-hash partition stage.
type Profile struct {
	Name        string   `json:"name"`
	Destination string   `json:"destination"`
	Sources     []string `json:"sources"`
	Similarity  int      `json:"similarity"`
}

// Config is the full persisted configuration: every known profile plus
// which one is active.
type Config struct {
	Profiles      []Profile `json:"profiles"`
	ActiveProfile string    `json:"active_profile,omitempty"`
}

// Path returns the config file path: os.UserConfigDir()/zipsplat/config.json.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: resolve user config dir: %w", ErrConfigInvalid, err)
	}

	return filepath.Join(dir, "zipsplat", "config.json"), nil
}

// Load reads and parses the config file. It returns ErrConfigMissing if the
// file does not exist yet.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, ErrConfigMissing
		}
		return Config{}, fmt.Errorf("%w: read %s: %w", ErrConfigInvalid, path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, nil
}

// Save writes the config file, creating its parent directory if necessary.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create config dir for %s: %w", ErrConfigInvalid, path, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode config: %w", ErrConfigInvalid, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrConfigInvalid, tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: rename %s to %s: %w", ErrConfigInvalid, tmp, path, err)
	}

	return nil
}

// Find returns the profile with the given name.
func (c Config) Find(name string) (Profile, error) {
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
}

// Active returns the profile currently marked active.
func (c Config) Active() (Profile, error) {
	if c.ActiveProfile == "" {
		return Profile{}, fmt.Errorf("%w: no active profile set", ErrProfileNotFound)
	}
	return c.Find(c.ActiveProfile)
}

// AddProfile appends p to the config, failing if a profile with the same
// name already exists. If this is the first profile added, it becomes
// active automatically.
func (c Config) AddProfile(p Profile) (Config, error) {
	if _, err := c.Find(p.Name); err == nil {
		return c, fmt.Errorf("%w: %q", ErrProfileExists, p.Name)
	}

	if p.Similarity <= 0 {
		p.Similarity = DefaultSimilarityThreshold
	}

	c.Profiles = append(c.Profiles, p)
	if c.ActiveProfile == "" {
		c.ActiveProfile = p.Name
	}

	return c, nil
}

// Use selects name as the active profile. If name is empty, the single
// existing profile is selected automatically; with more than one profile
// and no name given, it returns ErrAmbiguousProfile — callers that can
// prompt interactively should catch this and offer a picker instead.
func (c Config) Use(name string) (Config, error) {
	if name == "" {
		switch len(c.Profiles) {
		case 0:
			return c, fmt.Errorf("%w: no profiles configured", ErrProfileNotFound)
		case 1:
			c.ActiveProfile = c.Profiles[0].Name
			return c, nil
		default:
			return c, ErrAmbiguousProfile
		}
	}

	if _, err := c.Find(name); err != nil {
		return c, err
	}

	c.ActiveProfile = name
	return c, nil
}
