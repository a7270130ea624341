package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"zipsplat/pkg/config"
	"zipsplat/pkg/metrics"
)

// loadConfig reads the config file, treating a missing file as an empty
// config rather than an error — the first `profile add` creates it.
func loadConfig() (config.Config, string, error) {
	path, err := config.Path()
	if err != nil {
		return config.Config{}, "", err
	}

	cfg, err := config.Load(path)
	if err != nil {
		if err == config.ErrConfigMissing {
			return config.Config{}, path, nil
		}
		return config.Config{}, "", err
	}

	return cfg, path, nil
}

func validateAndResolvePath(targetDir string) (string, error) {
	info, err := os.Stat(targetDir)
	if err != nil {
		return "", fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", targetDir)
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path: %w", err)
	}

	return absPath, nil
}

func printSummary(lines ...string) {
	fmt.Println("=== Summary ===")
	for _, line := range lines {
		fmt.Println(line)
	}
}

// printProgress renders one live progress line to stderr. It is wired as a
// sync.Options.OnProgress callback; the Progress Executor underneath throttles
// how often that fires to at most once per display interval, so this does
// not get invoked once per individual write. It may still be invoked
// concurrently with the rest of a run; the caller (Cobra command RunE) only
// ever reads the final returned Report, so there's no shared state here
// beyond stdio itself.
func printProgress(p metrics.Progress) {
	now := time.Now()
	line := fmt.Sprintf("\r%.1f%% (%d/%d) %s/%s",
		p.PercentComplete(),
		p.ProcessedItems(), p.TotalItems,
		metrics.FormatBytes(p.ProcessedBytes()), metrics.FormatBytes(p.TotalBytes))

	if eta, ok := p.EstimatedTimeRemaining(now); ok {
		line += fmt.Sprintf(" eta %s", metrics.FormatDuration(eta))
	}

	fmt.Fprint(os.Stderr, line)
}
