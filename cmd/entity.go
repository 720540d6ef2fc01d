package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/ui"
	"github.com/spf13/cobra"
)

func addCmd() *cobra.Command {
	var entityType, description string
	var props []string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a new entity",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			name := args[0]
			if entityType == "" {
				entityType = graph.TypeConcept
			}

			properties, err := parseProps(props)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}

			g := loadGraph()
			e, err := g.AddEntity(name, entityType, description, properties)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
			saveGraph(g)

			ui.Good.Printf("  %s Added %s (%s)\n", ui.StatusIcon(true), ui.Brand.Sprint(e.Name), e.Type)
			ui.Subtle.Printf("  %s\n", e.ID)
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "Entity type: "+strings.Join(graph.Types, ", "))
	_ = cmd.RegisterFlagCompletionFunc("type", typeCompletionFunc)
	cmd.Flags().StringVar(&description, "description", "", "Free-text description")
	cmd.Flags().StringArrayVar(&props, "prop", nil, "Property as key=value (repeatable)")
	return cmd
}

func parseProps(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	props := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid property %q, want key=value", p)
		}
		props[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return props, nil
}

func editCmd() *cobra.Command {
	var name, entityType, description string

	cmd := &cobra.Command{
		Use:               "edit <id|name>",
		Short:             "Change an entity's name, type or description",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: entityCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			var p graph.Patch
			if cmd.Flags().Changed("name") {
				p.Name = &name
			}
			if cmd.Flags().Changed("type") {
				p.Type = &entityType
			}
			if cmd.Flags().Changed("description") {
				p.Description = &description
			}
			if p == (graph.Patch{}) {
				ui.Warn.Println("  Nothing to change: pass --name, --type or --description")
				return
			}

			g := loadGraph()
			e, err := g.UpdateEntity(args[0], p)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
			saveGraph(g)

			ui.Good.Printf("  %s Updated %s (%s)\n", ui.StatusIcon(true), ui.Brand.Sprint(e.Name), e.Type)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&entityType, "type", "", "New type")
	_ = cmd.RegisterFlagCompletionFunc("type", typeCompletionFunc)
	cmd.Flags().StringVar(&description, "description", "", "New description")
	return cmd
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "remove <id|name>",
		Short:             "Remove an entity and its relationships",
		Aliases:           []string{"rm", "delete"},
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: entityCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			g := loadGraph()
			e, err := g.RemoveEntity(args[0])
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
			saveGraph(g)

			ui.Good.Printf("  %s Removed %s and its relationships\n", ui.StatusIcon(true), e.Name)
		},
	}
}

func showCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:               "show <id|name>",
		Short:             "Show entity details and connections",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: entityCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			g := loadGraph()
			result, err := g.Show(args[0])
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(result, "", "  ")
				fmt.Println(string(data))
				return
			}

			fmt.Println()
			fmt.Print(renderShow(result))
			fmt.Println()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// renderShow formats an entity card with its outgoing and incoming links.
func renderShow(r *graph.ShowResult) string {
	var b strings.Builder
	e := r.Entity

	fmt.Fprintf(&b, "  %s  %s\n", ui.Brand.Sprint(e.Name), ui.TypeBadge(e.Type))
	if e.Description != "" {
		fmt.Fprintf(&b, "  %s\n", e.Description)
	}
	if len(e.Properties) > 0 {
		keys := make([]string, 0, len(e.Properties))
		for k := range e.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s %s\n", ui.Subtle.Sprintf("%-12s", k), e.Properties[k])
		}
	}
	fmt.Fprintf(&b, "\n  %s\n", ui.Subtle.Sprintf("created %s  updated %s",
		e.CreatedAt.Format("2006-01-02"), e.UpdatedAt.Format("2006-01-02")))

	writeLinks(&b, "Outgoing", "──", r.Outgoing)
	writeLinks(&b, "Incoming", "◀─", r.Incoming)
	return b.String()
}

func writeLinks(b *strings.Builder, title, arrow string, links []graph.Link) {
	if len(links) == 0 {
		return
	}
	fmt.Fprintf(b, "\n  %s (%d)\n", ui.Info.Sprint(title), len(links))
	for i, l := range links {
		prefix := "  ├── "
		if i == len(links)-1 {
			prefix = "  └── "
		}
		fmt.Fprintf(b, "%s%s %s %s\n", prefix, ui.Subtle.Sprint(l.Type), ui.Subtle.Sprint(arrow), ui.TypeColor(l.Entity.Type).Sprint(l.Entity.Name))
	}
}
