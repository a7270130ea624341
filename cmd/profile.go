package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"zipsplat/pkg/config"
)

func buildProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage sync profiles",
	}

	cmd.AddCommand(buildProfileAddCommand())
	cmd.AddCommand(buildProfileListCommand())
	cmd.AddCommand(buildProfileShowCommand())
	cmd.AddCommand(buildProfileUseCommand())

	return cmd
}

func buildProfileAddCommand() *cobra.Command {
	var (
		destination string
		sources     []string
		similarity  int
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Interactively define a new named sync profile",
		Long: `Creates a new profile, prompting for destination or sources when not
already supplied via flags. In --non-interactive mode, missing required
fields are a hard error instead of a prompt. Similarity is never prompted
for; without the flag it takes the default threshold.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := args[0]
			prompt := bufio.NewScanner(os.Stdin)

			if destination == "" {
				var err error
				destination, err = promptRequired(prompt, "Destination directory")
				if err != nil {
					return err
				}
			}

			if len(sources) == 0 {
				raw, err := promptRequired(prompt, "Source directories (comma-separated)")
				if err != nil {
					return err
				}
				for _, s := range strings.Split(raw, ",") {
					if s = strings.TrimSpace(s); s != "" {
						sources = append(sources, s)
					}
				}
			}

			if similarity <= 0 {
				similarity = config.DefaultSimilarityThreshold
			}

			// The destination need not exist yet — sync creates it on first
			// run — but every source must already be a real directory to
			// scan, so those are validated up front.
			absDest, err := filepath.Abs(destination)
			if err != nil {
				return fmt.Errorf("resolve destination: %w", err)
			}

			absSources := make([]string, len(sources))
			for i, s := range sources {
				abs, err := validateAndResolvePath(s)
				if err != nil {
					return fmt.Errorf("source %s: %w", s, err)
				}
				absSources[i] = abs
			}

			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}

			cfg, err = cfg.AddProfile(config.Profile{
				Name:        name,
				Destination: absDest,
				Sources:     absSources,
				Similarity:  similarity,
			})
			if err != nil {
				return err
			}

			if err := config.Save(path, cfg); err != nil {
				return err
			}

			fmt.Printf("Profile %q saved to %s\n", name, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&destination, "destination", "", "Destination directory")
	cmd.Flags().StringArrayVar(&sources, "source", nil, "Source directory to scan for archives (repeatable)")
	cmd.Flags().IntVar(&similarity, "similarity", 0, "Perceptual-hash similarity threshold (default 5)")

	return cmd
}

// promptRequired asks label on stdout and reads one line from stdin. In
// --non-interactive mode it refuses to prompt at all, since there is no one
// to answer.
func promptRequired(scanner *bufio.Scanner, label string) (string, error) {
	if nonInteractive {
		return "", fmt.Errorf("%s is required (use its flag; refusing to prompt in --non-interactive mode)", label)
	}

	fmt.Printf("%s: ", label)
	if !scanner.Scan() {
		return "", fmt.Errorf("reading %s: %w", label, scanner.Err())
	}

	value := strings.TrimSpace(scanner.Text())
	if value == "" {
		return "", fmt.Errorf("%s must not be empty", label)
	}
	return value, nil
}

func buildProfileListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured profiles",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			if len(cfg.Profiles) == 0 {
				fmt.Println("No profiles configured.")
				return nil
			}

			for _, p := range cfg.Profiles {
				marker := " "
				if p.Name == cfg.ActiveProfile {
					marker = "*"
				}
				fmt.Printf("%s %s -> %s\n", marker, p.Name, p.Destination)
			}
			return nil
		},
	}
}

func buildProfileShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [NAME]",
		Short: "Print a profile's configuration as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			var p config.Profile
			if len(args) == 1 {
				p, err = cfg.Find(args[0])
			} else {
				p, err = cfg.Active()
			}
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(p, "", "  ")
			if err != nil {
				return fmt.Errorf("encode profile: %w", err)
			}

			fmt.Println(string(encoded))
			return nil
		},
	}
}

func buildProfileUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use [NAME]",
		Short: "Select the active profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}

			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}

			newCfg, err := cfg.Use(name)
			if errors.Is(err, config.ErrAmbiguousProfile) {
				if nonInteractive {
					return err
				}
				name, err = pickProfile(cfg)
				if err != nil {
					return err
				}
				newCfg, err = cfg.Use(name)
			}
			if err != nil {
				return err
			}
			cfg = newCfg

			if err := config.Save(path, cfg); err != nil {
				return err
			}

			fmt.Printf("Active profile: %s\n", cfg.ActiveProfile)
			return nil
		},
	}
}

// pickProfile presents a numbered list of cfg's profiles on stdout and reads
// a selection from stdin.
func pickProfile(cfg config.Config) (string, error) {
	fmt.Println("Multiple profiles configured:")
	for i, p := range cfg.Profiles {
		fmt.Printf("  %d) %s\n", i+1, p.Name)
	}
	fmt.Print("Select a profile number: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", fmt.Errorf("reading selection: %w", scanner.Err())
	}

	choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || choice < 1 || choice > len(cfg.Profiles) {
		return "", fmt.Errorf("invalid selection %q", scanner.Text())
	}

	return cfg.Profiles[choice-1].Name, nil
}
