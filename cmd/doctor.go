package cmd

import (
	"fmt"
	"os"

	"github.com/msalah0e/garden/internal/config"
	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/ui"
	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"dr"},
		Short:   "Health check: config, data file and layout",
		Run: func(cmd *cobra.Command, args []string) {
			ui.Banner("health check")

			problems := 0
			if _, err := config.LoadFile(config.Path()); err != nil {
				fmt.Printf("  %s config: %v\n", ui.StatusIcon(false), err)
				problems++
			} else {
				fmt.Printf("  %s config: %s\n", ui.StatusIcon(true), config.Path())
			}

			path := dataPath()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Printf("  %s data: %s not created yet\n", ui.Subtle.Sprint("-"), path)
				return
			}
			g, err := graph.Load(path)
			if err != nil {
				fmt.Printf("  %s data: %v\n", ui.StatusIcon(false), err)
				os.Exit(1)
			}
			fmt.Printf("  %s data: %s\n", ui.StatusIcon(true), path)

			stats := g.GetStats()
			if stats.Dangling > 0 {
				fmt.Printf("  %s %d relationships point at missing entities\n", ui.WarnIcon(), stats.Dangling)
				problems++
			}
			if lonely := isolated(g); len(lonely) > 0 {
				fmt.Printf("  %s %d entities have no relationships\n", ui.WarnIcon(), len(lonely))
				for _, name := range lonely {
					ui.Subtle.Printf("      %s\n", name)
				}
			}

			var opts layoutOptions
			_, ticks, settled := opts.settle(g)
			if settled {
				fmt.Printf("  %s layout settles in %d ticks\n", ui.StatusIcon(true), ticks)
			} else {
				fmt.Printf("  %s layout still moving after %d ticks\n", ui.WarnIcon(), ticks)
				problems++
			}

			fmt.Println()
			if problems == 0 {
				ui.Good.Printf("  %d entities, %d relationships, all healthy\n", stats.Entities, stats.Relationships)
				return
			}
			ui.Warn.Printf("  %d problem(s) found\n", problems)
		},
	}
}

// isolated returns the names of entities no relationship touches.
func isolated(g *graph.Graph) []string {
	touched := make(map[string]bool, len(g.Entities))
	for _, r := range g.Relationships {
		touched[r.Source] = true
		touched[r.Target] = true
	}
	var names []string
	for _, e := range g.Entities {
		if !touched[e.ID] {
			names = append(names, e.Name)
		}
	}
	return names
}
