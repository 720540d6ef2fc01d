package cmd

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/msalah0e/garden/internal/engine"
	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/ui"
	"github.com/spf13/cobra"
)

// headlessTickLimit bounds a run whose config disables the tick cap.
const headlessTickLimit = 100000

type layoutOptions struct {
	seed   uint64
	ticks  int
	width  float64
	height float64
}

func (o *layoutOptions) register(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&o.seed, "seed", 0, "Seed for initial positions (0 picks one at random)")
	cmd.Flags().IntVar(&o.ticks, "ticks", 0, "Tick cap (default from [physics] max_ticks)")
	cmd.Flags().Float64Var(&o.width, "width", 0, "Viewport width (default from [viewport])")
	cmd.Flags().Float64Var(&o.height, "height", 0, "Viewport height (default from [viewport])")
}

// settle lays g out on a manual clock and fits the camera to the result.
// settled is false when the run hit the tick cap instead of coming to rest.
func (o *layoutOptions) settle(g *graph.Graph) (eng *engine.Engine, ticks int, settled bool) {
	c := settings()
	params := c.Physics
	if o.ticks > 0 {
		params.MaxTicks = o.ticks
	}
	size := c.Viewport.Size()
	if o.width > 0 {
		size.Width = o.width
	}
	if o.height > 0 {
		size.Height = o.height
	}

	opts := engine.Options{
		Params:     params,
		Size:       size,
		MinZoom:    c.Viewport.MinZoom,
		MaxZoom:    c.Viewport.MaxZoom,
		FitPadding: c.Viewport.FitPadding,
		Render:     c.Render,
		Logger:     newLogger(),
	}
	if o.seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))
	}

	eng = engine.New(g, opts)
	limit := params.MaxTicks
	if limit <= 0 {
		limit = headlessTickLimit
	}
	ticks, err := eng.Settle(limit)
	if err != nil {
		ui.Bad.Printf("  Layout failed: %v\n", err)
		os.Exit(1)
	}
	eng.FitToContent()
	return eng, ticks, !eng.Running() && ticks < limit
}

type placedNode struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Radius      float64 `json:"radius"`
	Connections int     `json:"connections"`
}

type layoutResult struct {
	Ticks   int          `json:"ticks"`
	Settled bool         `json:"settled"`
	Dropped int          `json:"dropped"`
	Nodes   []placedNode `json:"nodes"`
}

func layoutCmd() *cobra.Command {
	var opts layoutOptions
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Run the force layout headlessly and print node positions",
		Run: func(cmd *cobra.Command, args []string) {
			eng, ticks, settled := opts.settle(loadGraph())

			result := layoutResult{
				Ticks:   ticks,
				Settled: settled,
				Dropped: eng.Stats().Dropped,
				Nodes:   make([]placedNode, 0, eng.Stats().Nodes),
			}
			for _, n := range eng.Graph().Nodes {
				result.Nodes = append(result.Nodes, placedNode{
					ID:          n.ID,
					Name:        n.Entity.Name,
					Type:        n.Entity.Type,
					X:           n.Pos.X,
					Y:           n.Pos.Y,
					Radius:      n.Radius,
					Connections: n.Connections,
				})
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(result, "", "  ")
				fmt.Println(string(data))
				return
			}

			ui.Banner("layout")
			if len(result.Nodes) == 0 {
				fmt.Println("  Empty graph, nothing to lay out")
				return
			}
			rows := make([][]string, 0, len(result.Nodes))
			for _, n := range result.Nodes {
				rows = append(rows, []string{n.Name, ui.TypeBadge(n.Type), fmt.Sprintf("%.1f", n.X), fmt.Sprintf("%.1f", n.Y), fmt.Sprintf("%d", n.Connections)})
			}
			ui.Table([]string{"Name", "Type", "X", "Y", "Connections"}, rows)
			fmt.Println()

			status := ui.StatusIcon(result.Settled) + " settled"
			if !result.Settled {
				status = ui.WarnIcon() + " stopped at the tick cap"
			}
			fmt.Printf("  %s after %d ticks\n", status, ticks)
			if result.Dropped > 0 {
				fmt.Printf("  %s %d relationships skipped (missing endpoint)\n", ui.WarnIcon(), result.Dropped)
			}
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
