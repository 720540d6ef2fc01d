package cmd

import (
	"fmt"
	"os"

	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/ui"
	"github.com/spf13/cobra"
)

func demoCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write the built-in sample graph to the data file",
		Run: func(cmd *cobra.Command, args []string) {
			current := loadGraph()
			if len(current.Entities) > 0 && !force {
				ui.Warn.Printf("  %s %s already holds %d entities\n", ui.WarnIcon(), dataPath(), len(current.Entities))
				fmt.Println("  Use --force to replace them, or `garden import` to merge")
				os.Exit(1)
			}

			g, err := graph.Demo()
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
			saveGraph(g)

			ui.Good.Printf("  %s Planted %d entities and %d relationships\n",
				ui.StatusIcon(true), len(g.Entities), len(g.Relationships))
			ui.Info.Println("  garden serve   to watch it grow")
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace a non-empty graph")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge entities and relationships from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if _, err := os.Stat(args[0]); err != nil {
				ui.Bad.Printf("  Failed to read file: %v\n", err)
				os.Exit(1)
			}
			incoming, err := graph.Load(args[0])
			if err != nil {
				ui.Bad.Printf("  Import failed: %v\n", err)
				os.Exit(1)
			}

			g := loadGraph()
			added, merged, relAdded := g.Merge(incoming)
			saveGraph(g)

			ui.Good.Printf("  %s Imported: %d added, %d merged, %d relationships\n",
				ui.StatusIcon(true), added, merged, relAdded)
			if skipped := len(incoming.Relationships) - relAdded; skipped > 0 {
				fmt.Printf("  %s %d relationships skipped (missing endpoint)\n", ui.WarnIcon(), skipped)
			}
		},
	}
}
