package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/msalah0e/garden/internal/config"
	"github.com/msalah0e/garden/internal/ui"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Run: func(cmd *cobra.Command, args []string) {
				ui.Subtle.Printf("# %s\n", config.Path())
				if err := toml.NewEncoder(os.Stdout).Encode(settings()); err != nil {
					ui.Bad.Printf("  %v\n", err)
					os.Exit(1)
				}
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the default configuration if none exists",
			Run: func(cmd *cobra.Command, args []string) {
				if err := config.EnsureExists(); err != nil {
					ui.Bad.Printf("  Failed to write config: %v\n", err)
					os.Exit(1)
				}
				ui.Good.Printf("  %s Config at %s\n", ui.StatusIcon(true), config.Path())
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config and data file locations",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-8s", "config"), config.Path())
				fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-8s", "data"), dataPath())
			},
		},
	)
	return cmd
}
