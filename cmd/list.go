package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/msalah0e/garden/internal/engine"
	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/render"
	"github.com/msalah0e/garden/internal/ui"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	var filterType, query, sortSpec string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List entities with the viewer's filters and sort orders",
		Aliases: []string{"ls"},
		Run: func(cmd *cobra.Command, args []string) {
			eng := engine.New(loadGraph(), engine.Options{Logger: newLogger()})
			eng.SetTypeFilter(filterType)
			eng.SetSearchQuery(query)

			entities, err := eng.List(sortSpec)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(entities, "", "  ")
				fmt.Println(string(data))
				return
			}

			if len(entities) == 0 {
				fmt.Println("  No entities match")
				return
			}

			ui.Banner("entities")
			var rows [][]string
			for _, e := range entities {
				degree := 0
				if n := eng.Graph().NodeByID(e.ID); n != nil {
					degree = n.Connections
				}
				rows = append(rows, []string{
					render.Truncate(e.Name),
					ui.TypeBadge(e.Type),
					fmt.Sprintf("%d", degree),
					e.CreatedAt.Format("2006-01-02"),
				})
			}
			ui.Table([]string{"Name", "Type", "Connections", "Created"}, rows)
			fmt.Printf("\n  %d of %d entities\n", len(entities), eng.Stats().Nodes)
		},
	}

	cmd.Flags().StringVar(&filterType, "type", "", "Only entities of this type")
	_ = cmd.RegisterFlagCompletionFunc("type", typeCompletionFunc)
	cmd.Flags().StringVar(&query, "search", "", "Only entities whose name or description contains this")
	cmd.Flags().StringVar(&sortSpec, "sort", "name-asc", "Sort: name|type|connections|date, -asc or -desc")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func searchCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search entities by name, type or description",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			query := args[0]
			results := loadGraph().Search(query)

			if jsonOutput {
				data, _ := json.MarshalIndent(results, "", "  ")
				fmt.Println(string(data))
				return
			}

			if len(results) == 0 {
				fmt.Printf("  No entities found matching %q\n", query)
				return
			}

			ui.Banner("search results")
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Entity.Name, ui.TypeBadge(r.Entity.Type), excerpt(r.Entity), fmt.Sprintf("%d", r.Score)})
			}
			ui.Table([]string{"Name", "Type", "Description", "Score"}, rows)
			fmt.Printf("\n  %d results\n", len(results))
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func excerpt(e *graph.Entity) string {
	r := []rune(e.Description)
	if len(r) > 40 {
		return string(r[:37]) + "..."
	}
	return e.Description
}
