package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"zipsplat/pkg/config"
	"zipsplat/pkg/metrics"
	"zipsplat/pkg/sync"
)

func buildSyncCommand() *cobra.Command {
	var (
		profileName      string
		workers          int
		progressInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the sync cascade for the active (or named) profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			var profile config.Profile
			if profileName != "" {
				profile, err = cfg.Find(profileName)
			} else {
				profile, err = cfg.Active()
			}
			if err != nil {
				return err
			}

			fmt.Printf("Syncing profile %q -> %s\n", profile.Name, profile.Destination)

			onProgress := printProgress
			if nonInteractive {
				onProgress = nil
			}

			report, err := sync.Run(cmd.Context(), sync.Options{
				Destination:             profile.Destination,
				Sources:                 profile.Sources,
				SimilarityThreshold:     profile.Similarity,
				Concurrency:             workers,
				ProgressDisplayInterval: progressInterval,
				Logger:                  slog.Default(),
				OnProgress:              onProgress,
			})
			if onProgress != nil {
				fmt.Fprintln(os.Stderr)
			}

			printSummary(
				fmt.Sprintf("written:         %d (%s)", report.Written, metrics.FormatBytes(report.WrittenBytes)),
				fmt.Sprintf("already present: %d", report.AlreadyPresent),
				fmt.Sprintf("ambiguous:       %d", len(report.Ambiguous)),
				fmt.Sprintf("unprocessed:     %d", len(report.Unprocessed)),
				fmt.Sprintf("failed archives: %d", len(report.FailedArchives)),
			)

			// List up to ten of the paths left unresolved, if any.
			listed := 0
			for p := range report.Ambiguous {
				if listed == 10 {
					break
				}
				fmt.Printf("ambiguous:   %s\n", p)
				listed++
			}
			for p := range report.Unprocessed {
				if listed == 10 {
					break
				}
				fmt.Printf("unprocessed: %s\n", p)
				listed++
			}

			return err
		},
	}

	cmd.Flags().StringVar(&profileName, "profile", "", "Profile to sync (defaults to the active profile)")
	cmd.Flags().IntVar(&workers, "workers", runtime.GOMAXPROCS(0), "Number of parallel workers for entry collection and writing")
	cmd.Flags().DurationVar(&progressInterval, "progress-interval", 0, "How often to refresh the progress line (0 uses the executor's default)")

	return cmd
}
