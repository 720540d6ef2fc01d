package cmd

import (
	"fmt"
	"os"

	"github.com/msalah0e/garden/internal/config"
	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.3.0"

var (
	dataFlag string
	verbose  bool
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "garden",
	Short: "garden — a living map of the things you know",
	Long: ui.Brand.Sprint(ui.Sprout+" garden") + " — lay out entities and their relationships\n" +
		ui.Subtle.Sprint("Edit the graph from the terminal, export it, or watch it settle in the browser"),
	Version: version + " " + ui.Sprout,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
	},
	Run: func(cmd *cobra.Command, args []string) {
		g := loadGraph()
		stats := g.GetStats()
		ui.Banner("knowledge graph")

		if stats.Entities == 0 {
			fmt.Println("  Empty graph. Get started:")
			fmt.Println()
			ui.Info.Println("  garden demo")
			ui.Info.Println("  garden add <name> --type <type>")
			ui.Info.Println("  garden relate <from> <relationship> <to>")
			return
		}

		fmt.Printf("  %s  %d\n", ui.Brand.Sprintf("%-16s", "Entities"), stats.Entities)
		fmt.Printf("  %s  %d\n", ui.Brand.Sprintf("%-16s", "Relationships"), stats.Relationships)
		if stats.Dangling > 0 {
			fmt.Printf("  %s  %d %s\n", ui.Brand.Sprintf("%-16s", "Dangling"), stats.Dangling, ui.WarnIcon())
		}
		fmt.Println()
		for _, t := range graph.Types {
			if n := stats.ByType[t]; n > 0 {
				fmt.Printf("  %-24s %d\n", ui.TypeBadge(t), n)
			}
		}
		fmt.Println()
		fmt.Printf("  %s\n", ui.Subtle.Sprint("Stored at "+dataPath()))
	},
}

func init() {
	rootCmd.SetVersionTemplate("garden {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVar(&dataFlag, "data", "", "Graph data file (.json, .yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine activity to stderr")

	rootCmd.AddCommand(
		addCmd(),
		editCmd(),
		removeCmd(),
		showCmd(),
		relateCmd(),
		unrelateCmd(),
		listCmd(),
		searchCmd(),
		layoutCmd(),
		exportCmd(),
		importCmd(),
		serveCmd(),
		demoCmd(),
		configCmd(),
		doctorCmd(),
		completionCmd(),
	)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// settings returns the loaded config, loading it if a command runs outside
// the root pre-run (tests).
func settings() *config.Config {
	if cfg == nil {
		cfg = config.Load()
	}
	return cfg
}

// dataPath resolves the graph file: --data, then [data] path, then the
// default next to the config.
func dataPath() string {
	if dataFlag != "" {
		return dataFlag
	}
	if p := settings().Data.Path; p != "" {
		return p
	}
	return graph.DefaultPath()
}

func loadGraph() *graph.Graph {
	g, err := graph.Load(dataPath())
	if err != nil {
		ui.Bad.Printf("  Failed to load graph: %v\n", err)
		os.Exit(1)
	}
	return g
}

func saveGraph(g *graph.Graph) {
	if err := graph.Save(g, dataPath()); err != nil {
		ui.Bad.Printf("  Failed to save graph: %v\n", err)
		os.Exit(1)
	}
}

// newLogger returns a development logger with --verbose and a no-op one
// otherwise, so command output stays clean.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
