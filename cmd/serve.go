package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/msalah0e/garden/internal/engine"
	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/server"
	"github.com/msalah0e/garden/internal/ui"
	"github.com/msalah0e/garden/internal/watch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		watching bool
		open     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live graph viewer",
		Long: `Run the force layout continuously and stream it to the browser.

  garden serve                 # http://127.0.0.1:8080
  garden serve --addr :9000    # listen on all interfaces
  garden serve --watch         # rebuild when the data file changes
  garden serve --open          # open the viewer in the default browser`,
		Run: func(cmd *cobra.Command, args []string) {
			c := settings()
			if cmd.Flags().Changed("addr") {
				c.Server.Addr = addr
			}
			if !cmd.Flags().Changed("watch") {
				watching = c.Data.Watch
			}

			logger := serveLogger()
			defer logger.Sync()

			path := dataPath()
			g := loadGraph()

			loop := server.NewLoop(c.Server.FPS)
			eng := engine.New(g, engine.Options{
				Params:     c.Physics,
				Size:       c.Viewport.Size(),
				MinZoom:    c.Viewport.MinZoom,
				MaxZoom:    c.Viewport.MaxZoom,
				FitPadding: c.Viewport.FitPadding,
				Render:     c.Render,
				Clock:      loop,
				Logger:     logger.Named("engine"),
			})

			var watcher *watch.Watcher
			if watching {
				var err error
				watcher, err = watch.New(path, func(ctx context.Context, g *graph.Graph) error {
					return loop.Do(ctx, func() { eng.RebuildWith(g, engine.ReasonReload) })
				}, watch.Options{Logger: logger.Named("watch")})
				if err != nil {
					ui.Bad.Printf("  %v\n", err)
					os.Exit(1)
				}
			}

			srv := server.New(eng, loop, server.Options{
				Config: c.Server,
				Persist: func(g *graph.Graph) error {
					if err := graph.Save(g, path); err != nil {
						return err
					}
					if watcher != nil {
						return watcher.Sync()
					}
					return nil
				},
				Logger: logger.Named("server"),
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ui.Banner("serve")
			url := viewerURL(c.Server.Addr)
			fmt.Printf("  Viewer:   %s\n", ui.Brand.Sprint(url))
			fmt.Printf("  Data:     %s\n", path)
			fmt.Printf("  Entities: %d\n", len(g.Entities))
			if watching {
				fmt.Printf("  Watching: %s\n", ui.StatusIcon(true))
			}
			fmt.Println()
			ui.Subtle.Println("  Ctrl+C to stop")

			group, ctx := errgroup.WithContext(ctx)
			group.Go(func() error { return srv.Run(ctx) })
			if watcher != nil {
				group.Go(func() error { return watcher.Run(ctx) })
			}
			if open {
				openBrowser(url)
			}

			if err := group.Wait(); err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from [server] addr)")
	cmd.Flags().BoolVar(&watching, "watch", false, "Rebuild when the data file changes")
	cmd.Flags().BoolVar(&open, "open", false, "Open the viewer in a browser")
	return cmd
}

func serveLogger() *zap.Logger {
	if verbose {
		return newLogger()
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// viewerURL turns a listen address into a browsable URL.
func viewerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var openCmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		openCmd = exec.Command("open", url)
	case "linux":
		openCmd = exec.Command("xdg-open", url)
	default:
		openCmd = exec.Command("cmd", "/c", "start", url)
	}
	if err := openCmd.Start(); err != nil {
		fmt.Printf("  Open %s in your browser\n", url)
	}
}
