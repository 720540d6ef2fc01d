package cmd

import (
	"os"

	"github.com/msalah0e/garden/internal/ui"
	"github.com/spf13/cobra"
)

func relateCmd() *cobra.Command {
	var bidirectional bool

	cmd := &cobra.Command{
		Use:     "relate <from> <relationship> <to>",
		Short:   "Create a directed relationship between entities",
		Example: "  garden relate \"Jane Smith\" \"works at\" \"Acme Corp\"",
		Args:    cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			from, relType, to := args[0], args[1], args[2]

			g := loadGraph()
			if err := g.AddRelationship(from, relType, to, bidirectional); err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
			saveGraph(g)

			arrow := "-->"
			if bidirectional {
				arrow = "<->"
			}
			ui.Good.Printf("  %s %s --%s%s %s\n", ui.StatusIcon(true), ui.Brand.Sprint(from), relType, arrow, ui.Brand.Sprint(to))
		},
		ValidArgsFunction: relationCompletionFunc,
	}

	cmd.Flags().BoolVar(&bidirectional, "bidirectional", false, "Also create the reverse relationship")
	return cmd
}

func unrelateCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "unrelate <from> <relationship> <to>",
		Short:             "Remove a relationship",
		Args:              cobra.ExactArgs(3),
		ValidArgsFunction: relationCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			from, relType, to := args[0], args[1], args[2]

			g := loadGraph()
			if err := g.RemoveRelationship(from, relType, to); err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
			saveGraph(g)

			ui.Good.Printf("  %s Removed %s --%s--> %s\n", ui.StatusIcon(true), from, relType, to)
		},
	}
}
