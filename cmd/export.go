package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/msalah0e/garden/internal/engine"
	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/render"
	"github.com/msalah0e/garden/internal/ui"
	"github.com/spf13/cobra"
)

var exportFormats = []string{"svg", "png", "json", "yaml", "dot"}

func exportCmd() *cobra.Command {
	var (
		format     string
		output     string
		scale      float64
		selectRef  string
		filterType string
		edgeLabels bool
		noLabels   bool
		opts       layoutOptions
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the graph as data (json, yaml, dot) or a laid-out picture (svg, png)",
		Run: func(cmd *cobra.Command, args []string) {
			g := loadGraph()

			var data []byte
			var err error
			switch strings.ToLower(format) {
			case "json":
				data, err = g.ExportJSON()
			case "yaml", "yml":
				data, err = g.ExportYAML()
			case "dot":
				data, err = g.ExportDOT()
			case "svg", "png":
				err = writePicture(g, strings.ToLower(format), output, pictureOptions{
					layout:     opts,
					scale:      scale,
					selectRef:  selectRef,
					filterType: filterType,
					edgeLabels: edgeLabels,
					noLabels:   noLabels,
				})
				if err != nil {
					ui.Bad.Printf("  Export failed: %v\n", err)
					os.Exit(1)
				}
				return
			default:
				ui.Bad.Printf("  Unknown format: %s (use %s)\n", format, strings.Join(exportFormats, ", "))
				os.Exit(1)
			}
			if err != nil {
				ui.Bad.Printf("  Export failed: %v\n", err)
				os.Exit(1)
			}

			if output == "" {
				fmt.Print(string(data))
				if len(data) > 0 && data[len(data)-1] != '\n' {
					fmt.Println()
				}
				return
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				ui.Bad.Printf("  Export failed: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Wrote %s\n", ui.StatusIcon(true), output)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Export format: "+strings.Join(exportFormats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().Float64Var(&scale, "scale", 1, "Pixel scale for png")
	cmd.Flags().StringVar(&selectRef, "select", "", "Highlight this entity and its neighbours")
	cmd.Flags().StringVar(&filterType, "type", "", "Only draw entities of this type")
	cmd.Flags().BoolVar(&edgeLabels, "edge-labels", false, "Draw relationship labels")
	cmd.Flags().BoolVar(&noLabels, "no-labels", false, "Hide entity labels")
	opts.register(cmd)
	return cmd
}

type pictureOptions struct {
	layout     layoutOptions
	scale      float64
	selectRef  string
	filterType string
	edgeLabels bool
	noLabels   bool
}

// writePicture settles the layout and draws the resulting scene.
func writePicture(g *graph.Graph, format, output string, o pictureOptions) error {
	var selectID string
	if o.selectRef != "" {
		e, err := g.Find(o.selectRef)
		if err != nil {
			return err
		}
		selectID = e.ID
	}

	eng, _, _ := o.layout.settle(g)
	ro := eng.RenderOptions()
	ro.ShowEdgeLabels = o.edgeLabels
	ro.ShowLabels = !o.noLabels
	eng.SetRenderOptions(ro)
	eng.SetTypeFilter(o.filterType)
	if selectID != "" {
		if err := eng.SelectEntity(selectID); err != nil {
			return err
		}
	}

	w, done, err := openOutput(output)
	if err != nil {
		return err
	}
	if err := draw(w, format, eng, o.scale); err != nil {
		done()
		return err
	}
	if err := done(); err != nil {
		return err
	}
	if output != "" {
		ui.Good.Printf("  %s Wrote %s (%d entities)\n", ui.StatusIcon(true), output, eng.Stats().Nodes)
	}
	return nil
}

func draw(w io.Writer, format string, eng *engine.Engine, scale float64) error {
	scene := eng.Frame()
	if format == "png" {
		return render.WritePNG(w, scene, scale)
	}
	return render.WriteSVG(w, scene)
}

// openOutput returns a buffered writer for path, or stdout when path is
// empty. done flushes and closes it.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		bw := bufio.NewWriter(os.Stdout)
		return bw, bw.Flush, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	bw := bufio.NewWriter(f)
	return bw, func() error {
		if err := bw.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}
