package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"zipsplat/pkg/config"
	"zipsplat/pkg/validate"
)

// errValidateProblemsFound signals that validate completed without an
// operational error but surfaced one or more Problem-severity findings —
// mapped to exit code 2, the same bucket as unresolved sync ambiguity.
var errValidateProblemsFound = errors.New("validate: destination disagrees with its sources")

func buildValidateCommand() *cobra.Command {
	var (
		profileName string
		deep        bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Audit an existing destination against its sources",
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

			report, err := validate.Run(cmd.Context(), validate.Options{
				Destination:         profile.Destination,
				Sources:             profile.Sources,
				Deep:                deep,
				SimilarityThreshold: profile.Similarity,
			})
			if err != nil {
				return err
			}

			for _, f := range report.Findings {
				fmt.Printf("[%s] %s: %s\n", f.Severity, f.Internal, f.Message)
			}

			printSummary(
				fmt.Sprintf("paths checked: %d", report.PathsChecked),
				fmt.Sprintf("findings:      %d", len(report.Findings)),
			)

			if report.HasProblems() {
				return errValidateProblemsFound
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profileName, "profile", "", "Profile to validate (defaults to the active profile)")
	cmd.Flags().BoolVar(&deep, "deep", false, "Also verify CRC32/image-hash content equivalence, not just presence")

	return cmd
}
