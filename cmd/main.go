package main

import (
	"errors"
	"fmt"
	"os"

	"zipsplat/pkg/config"
	"zipsplat/pkg/sync"
)

// Exit codes, per the CLI's documented contract.
const (
	exitSuccess       = 0
	exitUsageOrConfig = 1
	exitAmbiguity     = 2
	exitIO            = 3
)

func main() {
	rootCmd := buildRootCommand()
	rootCmd.AddCommand(buildProfileCommand())
	rootCmd.AddCommand(buildSyncCommand())
	rootCmd.AddCommand(buildValidateCommand())
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	err := rootCmd.Execute()
	os.Exit(exitCodeFor(err))
}

func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}

	switch {
	case errors.Is(err, sync.ErrUnresolvedAmbiguity), errors.Is(err, errValidateProblemsFound):
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitAmbiguity

	case errors.Is(err, config.ErrConfigMissing),
		errors.Is(err, config.ErrConfigInvalid),
		errors.Is(err, config.ErrProfileNotFound),
		errors.Is(err, config.ErrProfileExists),
		errors.Is(err, config.ErrAmbiguousProfile),
		errors.Is(err, sync.ErrNoArchives):
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitUsageOrConfig

	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitIO
	}
}
