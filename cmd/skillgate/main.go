// Package main is the entrypoint for the skillgate CLI.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/skillgate/skillgate/internal/config"
	"github.com/skillgate/skillgate/internal/entitlement"
	"github.com/skillgate/skillgate/internal/licensefile"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "skillgate",
		Short:         "Skillgate client for running licensed packages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.skillgate/config.yml)")

	cmd.AddCommand(newRunCmd(&configPath))
	cmd.AddCommand(newLicenseCmd(&configPath))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("skillgate %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	}
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run <package> [args...]",
		Short: "Run an installed package, checking its license first",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg := args[0]

			cache, logger, err := buildCache(*configPath)
			if err != nil {
				return err
			}

			gate := entitlement.NewGate(cache, logger)
			if err := gate.Authorize(cmd.Context(), pkg); err != nil {
				return err
			}

			bin := exec.CommandContext(cmd.Context(), pkg, args[1:]...)
			bin.Stdin = os.Stdin
			bin.Stdout = os.Stdout
			bin.Stderr = os.Stderr
			if err := bin.Run(); err != nil {
				return fmt.Errorf("run %s: %w", pkg, err)
			}
			return nil
		},
	}
}

func newLicenseCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "license",
		Short: "Inspect cached licenses",
	}
	cmd.AddCommand(newLicenseStatusCmd(configPath))
	return cmd
}

func newLicenseStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status [package]",
		Short: "Show cached license state without contacting the server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, _, err := buildCache(*configPath)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				printStatus(cache.QuickCheck(args[0]), args[0])
				return nil
			}

			dir, err := licensesDir(*configPath)
			if err != nil {
				return err
			}
			cached, err := licensefile.List(dir)
			if err != nil {
				return err
			}
			if len(cached) == 0 {
				fmt.Println("No licensed packages installed.")
				return nil
			}
			for _, c := range cached {
				printStatus(cache.QuickCheck(c.Package), c.Package)
			}
			return nil
		},
	}
}

func printStatus(res entitlement.CheckResult, pkg string) {
	line := fmt.Sprintf("%-24s %s", pkg, res.State)
	if res.Cached != nil {
		line += fmt.Sprintf("  tier=%s", res.Cached.License.Tier)
		if !res.ExpiresAt.IsZero() {
			line += fmt.Sprintf("  expires=%s", res.ExpiresAt.Format(time.RFC3339))
		}
	}
	fmt.Println(line)
}

// licensesDir resolves the licenses directory from config, falling back to
// the default ~/.skillgate/licenses.
func licensesDir(configPath string) (string, error) {
	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		return "", err
	}
	if cfg.LicensesDir != "" {
		return cfg.LicensesDir, nil
	}
	return licensefile.DefaultDir()
}

func loadCLIConfig(configPath string) (*config.CLIConfig, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}
	return config.LoadCLIConfig(path)
}

// buildCache wires the offline entitlement cache from CLI configuration.
// Without a configured server URL the cache runs purely offline.
func buildCache(configPath string) (*entitlement.Cache, zerolog.Logger, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		return nil, logger, err
	}

	dir := cfg.LicensesDir
	if dir == "" {
		dir, err = licensefile.DefaultDir()
		if err != nil {
			return nil, logger, err
		}
	}

	var refresher entitlement.Refresher
	if cfg.ServerURL != "" {
		refresher = entitlement.NewHTTPRefresher(cfg.ServerURL, entitlement.DefaultRefreshTimeout)
	}

	cache := entitlement.NewCache(entitlement.Config{
		Dir:       dir,
		Refresher: refresher,
		Logger:    logger,
	})
	return cache, logger, nil
}
