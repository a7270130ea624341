package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	debug          bool
	nonInteractive bool
)

func buildRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "zipsplat",
		Version: version,
		Short:   "Sync deduplicated ZIP archive contents into a flat destination directory",
		Long: `zipsplat extracts the union of every entry across a set of ZIP archives
into a single destination directory, resolving same-name entries by content
rather than copying duplicates: entries are first matched by name, then by
CRC32, then by perceptual image hash for near-identical images. Anything
still ambiguous after the cascade fails the run rather than guessing.

Commands:
  profile add     Define a new named sync profile (destination + sources)
  profile list    List configured profiles
  profile show    Show a profile's configuration
  profile use     Select the active profile
  sync            Run the sync cascade for the active (or named) profile
  validate        Audit an existing destination against its sources

Examples:
  zipsplat profile add photos --destination ~/Photos --source ~/Downloads/exports
  zipsplat profile use photos
  zipsplat sync
  zipsplat validate --deep

Exit codes:
  0  success
  1  configuration or usage error
  2  unresolved ambiguity remains after the cascade, or validate found problems
  3  I/O error (archive read failure, destination unwritable, lock contention)

Compression:
  ZIP methods store (0) and deflate (8) are supported. Deflate64 (method 9)
  archives require cgo; in a pure-Go build, reading such an entry fails with
  an entry read error, which fails the sync run.`,
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug-level logging")
	cmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt; fail instead of asking")

	cmd.PersistentPreRun = func(*cobra.Command, []string) {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	return cmd
}
