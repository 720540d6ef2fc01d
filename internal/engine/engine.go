// Package engine is the graph view facade. It owns the entity snapshot, the
// laid-out working set, the simulation, the camera and the selection, and it
// accepts the commands a UI shell sends.
//
// An Engine is single-threaded: every method, and every tick its Clock
// delivers, must run on the same goroutine. The server's loop does that for
// concurrent callers.
package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/layout"
	"github.com/msalah0e/garden/internal/metrics"
	"github.com/msalah0e/garden/internal/render"
	"github.com/msalah0e/garden/internal/selection"
	"github.com/msalah0e/garden/internal/viewport"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"
)

// Rebuild reasons reported in Rebuilt events and metrics.
const (
	ReasonLoad     = "load"
	ReasonMutation = "mutation"
	ReasonReload   = "reload"
)

var ErrNoSelection = errors.New("no entity selected")

// Options configure a new Engine. Zero fields take defaults.
type Options struct {
	Params     layout.Params
	Size       layout.Size
	MinZoom    float64
	MaxZoom    float64
	FitPadding float64
	Render     render.Options
	Clock      layout.Clock
	Logger     *zap.Logger
	Rand       *rand.Rand
}

// isZeroRender reports an unset render.Options. Callers that want every
// flag off still pass a Background.
func isZeroRender(o render.Options) bool {
	return !o.ShowLabels && !o.ShowEdgeLabels && o.Background == "" && len(o.Colors) == 0
}

type Engine struct {
	log  *zap.Logger
	rng  *rand.Rand
	opts Options

	data  *graph.Graph
	stats layout.BuildStats
	size  layout.Size

	sim      *layout.Simulation
	view     *viewport.Viewport
	gestures *viewport.Gestures
	sel      selection.State

	listeners []subscription
	nextSub   int
	onTick    func(movement float64)
}

// New builds the working set for data and starts the simulation. The engine
// takes ownership of data; a nil graph is treated as empty.
func New(data *graph.Graph, opts Options) *Engine {
	if opts.Params == (layout.Params{}) {
		opts.Params = layout.DefaultParams()
	}
	if opts.Size.Width <= 0 || opts.Size.Height <= 0 {
		opts.Size = layout.Size{Width: 800, Height: 600}
	}
	if opts.FitPadding <= 0 {
		opts.FitPadding = 50
	}
	if isZeroRender(opts.Render) {
		opts.Render = render.DefaultOptions()
	}
	if opts.Clock == nil {
		opts.Clock = layout.NewManualClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	e := &Engine{
		log:  opts.Logger,
		rng:  opts.Rand,
		opts: opts,
		size: opts.Size,
		view: viewport.New(opts.MinZoom, opts.MaxZoom),
	}
	e.gestures = viewport.NewGestures(e.view)
	e.sim = layout.NewSimulation(opts.Clock, opts.Params, func() layout.Size { return e.size })
	e.sim.OnTick(func(movement float64) {
		metrics.ObserveTick(movement)
		if e.onTick != nil {
			e.onTick(movement)
		}
	})
	e.sim.OnSettle(func(ticks int) {
		metrics.RunTicks.Observe(float64(ticks))
		e.log.Debug("layout settled", zap.Int("ticks", ticks))
	})

	if data == nil {
		data = graph.New()
	}
	e.data = data
	e.rebuild(ReasonLoad)
	return e
}

// OnTick registers a hook run after every simulation tick, typically to
// push a new frame.
func (e *Engine) OnTick(fn func(movement float64)) {
	e.onTick = fn
}

func (e *Engine) graph() *layout.Graph {
	return e.sim.Graph()
}

// Data returns the entity snapshot the engine renders. Callers must not
// modify it; use the mutation commands instead.
func (e *Engine) Data() *graph.Graph { return e.data }

// Stats returns the counts from the last build.
func (e *Engine) Stats() layout.BuildStats { return e.stats }

// Running reports whether the simulation is active.
func (e *Engine) Running() bool { return e.sim.Running() }

// Ticks returns the total number of simulation ticks run.
func (e *Engine) Ticks() int { return e.sim.Ticks() }

// Viewport exposes the camera for read access.
func (e *Engine) Viewport() viewport.Viewport { return *e.view }

// Selection returns a copy of the filter and selection state.
func (e *Engine) Selection() selection.State { return e.sel }

func (e *Engine) Size() layout.Size { return e.size }

// Graph returns the live working set. It is only valid until the next rebuild.
func (e *Engine) Graph() *layout.Graph { return e.graph() }

// ─── Data commands ───

// Rebuild replaces the entity snapshot and rebuilds the working set.
func (e *Engine) Rebuild(data *graph.Graph) {
	e.RebuildWith(data, ReasonReload)
}

// RebuildWith is Rebuild with an explicit reason for events and metrics.
func (e *Engine) RebuildWith(data *graph.Graph, reason string) {
	if data == nil {
		data = graph.New()
	}
	e.data = data
	e.rebuild(reason)
}

// rebuild throws the working set away and lays the snapshot out from
// scratch. Positions are not carried over.
func (e *Engine) rebuild(reason string) {
	e.sim.Stop()
	e.gestures.Forget()

	g, stats := layout.Build(e.data.Entities, e.data.Relationships, e.size, e.rng)
	e.stats = stats
	metrics.ObserveBuild(reason, stats.Nodes, stats.Edges, stats.Dropped)
	if stats.Dropped > 0 {
		e.log.Warn("dropped relationships with missing endpoints",
			zap.Int("dropped", stats.Dropped),
			zap.String("reason", reason))
	}
	e.log.Info("graph rebuilt",
		zap.String("reason", reason),
		zap.Int("nodes", stats.Nodes),
		zap.Int("edges", stats.Edges))

	e.sim.SetGraph(g)
	hadSelection := e.sel.Selected != ""
	e.sel.Reapply(g)
	e.sim.Start()

	e.emit(Event{Kind: Rebuilt, Reason: reason, Stats: &stats})
	if hadSelection {
		e.emitSelection()
	}
}

// ResetLayout resets the camera, re-seeds every node and restarts the
// simulation.
func (e *Engine) ResetLayout() {
	e.gestures.DragEnd()
	e.view.Reset()
	e.sim.Reset(e.rng)
}

// AddEntity creates an entity in the snapshot and rebuilds.
func (e *Engine) AddEntity(name, entityType, description string, props map[string]string) (*graph.Entity, error) {
	ent, err := e.data.AddEntity(name, entityType, description, props)
	if err != nil {
		return nil, err
	}
	e.rebuild(ReasonMutation)
	return ent, nil
}

// UpdateEntity edits an entity's name, type or description and rebuilds.
func (e *Engine) UpdateEntity(ref string, p graph.Patch) (*graph.Entity, error) {
	ent, err := e.data.UpdateEntity(ref, p)
	if err != nil {
		return nil, err
	}
	e.rebuild(ReasonMutation)
	return ent, nil
}

// RemoveEntity deletes an entity and its incident relationships. Removing
// the selected entity clears the selection.
func (e *Engine) RemoveEntity(ref string) (*graph.Entity, error) {
	ent, err := e.data.RemoveEntity(ref)
	if err != nil {
		return nil, err
	}
	e.rebuild(ReasonMutation)
	return ent, nil
}

// AddRelationship links source to target (and back, when bidirectional)
// and rebuilds. Both ends must exist.
func (e *Engine) AddRelationship(source, target, relType string, bidirectional bool) error {
	if err := e.data.AddRelationship(source, relType, target, bidirectional); err != nil {
		return fmt.Errorf("adding relationship: %w", err)
	}
	e.rebuild(ReasonMutation)
	return nil
}

// RemoveRelationship deletes the first matching relationship and rebuilds.
func (e *Engine) RemoveRelationship(source, target, relType string) error {
	if err := e.data.RemoveRelationship(source, relType, target); err != nil {
		return err
	}
	e.rebuild(ReasonMutation)
	return nil
}

// ─── Camera commands ───

// SetSize changes the viewport extent used for seeding, gravity and bounds.
func (e *Engine) SetSize(s layout.Size) {
	if s.Width > 0 && s.Height > 0 {
		e.size = s
	}
}

func (e *Engine) SetZoom(z float64) { e.view.SetZoom(z) }
func (e *Engine) SetPan(x, y float64) { e.view.SetPan(x, y) }
func (e *Engine) PanBy(dx, dy float64) { e.view.PanBy(dx, dy) }
func (e *Engine) ZoomAt(sx, sy, f float64) { e.view.ZoomAt(sx, sy, f) }
func (e *Engine) Wheel(sx, sy, deltaY float64) { e.view.Wheel(sx, sy, deltaY) }
func (e *Engine) ZoomIn() { e.view.ZoomIn(e.size) }
func (e *Engine) ZoomOut() { e.view.ZoomOut(e.size) }
func (e *Engine) ResetView() { e.view.Reset() }

// FitToContent frames every node. It is a no-op on an empty graph.
func (e *Engine) FitToContent() bool {
	return e.view.FitToContent(e.graph().Nodes, e.size, e.opts.FitPadding)
}

// Focus centres the camera on an entity.
func (e *Engine) Focus(id string) error {
	n := e.graph().NodeByID(id)
	if n == nil {
		return fmt.Errorf("%w: %s", graph.ErrNotFound, id)
	}
	e.view.Focus(n, e.size)
	return nil
}

// ─── Pointer gestures ───

// PointerDown hit-tests the screen point and starts a node drag or a pan.
// It returns the id of the grabbed node, or "".
func (e *Engine) PointerDown(p r2.Vec) string {
	n := e.view.HitTest(e.graph().Nodes, p)
	if n == nil {
		e.gestures.DragStart(nil, p)
		return ""
	}
	e.dragNode(n, p)
	return n.ID
}

// DragStart starts a node drag for nodeID, or a pan when nodeID is empty or
// unknown.
func (e *Engine) DragStart(nodeID string, p r2.Vec) viewport.Mode {
	n := e.graph().NodeByID(nodeID)
	if n == nil {
		return e.gestures.DragStart(nil, p)
	}
	return e.dragNode(n, p)
}

func (e *Engine) dragNode(n *layout.Node, p r2.Vec) viewport.Mode {
	m := e.gestures.DragStart(n, p)
	// Neighbours should follow the dragged node even after the layout settled.
	e.sim.Start()
	return m
}

func (e *Engine) DragMove(p r2.Vec) { e.gestures.DragMove(p, e.size) }
func (e *Engine) DragEnd() { e.gestures.DragEnd() }

// Gesture returns the active gesture.
func (e *Engine) Gesture() viewport.Mode { return e.gestures.Mode() }

// ─── Selection and filtering ───

// SetTypeFilter sets the type filter; "" shows every type.
func (e *Engine) SetTypeFilter(t string) {
	e.sel.SetType(t)
	e.emitFilter()
}

// ToggleTypeFilter filters to t, or clears the filter when t is active.
func (e *Engine) ToggleTypeFilter(t string) {
	e.sel.ToggleType(t)
	e.emitFilter()
}

// SetSearchQuery filters by q and highlights name matches.
func (e *Engine) SetSearchQuery(q string) {
	e.sel.Search(q, e.graph().Nodes)
	e.emitFilter()
}

// SelectEntity selects id and highlights its neighbourhood.
func (e *Engine) SelectEntity(id string) error {
	if !e.sel.Select(id, e.graph()) {
		return fmt.Errorf("%w: %s", graph.ErrNotFound, id)
	}
	e.emitSelection()
	return nil
}

// SelectFromSearch clears the query, selects id and centres on it, as when
// an autocomplete suggestion is picked.
func (e *Engine) SelectFromSearch(id string) error {
	if e.graph().NodeByID(id) == nil {
		return fmt.Errorf("%w: %s", graph.ErrNotFound, id)
	}
	e.sel.ClearSearch()
	e.emitFilter()
	if err := e.SelectEntity(id); err != nil {
		return err
	}
	return e.Focus(id)
}

// ClearSelection closes the detail view and drops every highlight.
func (e *Engine) ClearSelection() {
	e.sel.ClearSelection()
	e.emitSelection()
}

// Detail returns the selected entity (or the one named by ref) with its
// resolved outgoing and incoming links.
func (e *Engine) Detail(ref string) (*graph.ShowResult, error) {
	if ref == "" {
		ref = e.sel.Selected
	}
	if ref == "" {
		return nil, ErrNoSelection
	}
	return e.data.Show(ref)
}

// Suggest returns autocomplete entries for q.
func (e *Engine) Suggest(q string) []*graph.Entity {
	return selection.Suggest(e.data.Entities, q, selection.SuggestLimit)
}

// List returns the entities passing the current filters, sorted by a
// "field-order" spec such as "connections-desc".
func (e *Engine) List(sortSpec string) ([]*graph.Entity, error) {
	key, order, err := selection.ParseSort(sortSpec)
	if err != nil {
		return nil, err
	}
	g := e.graph()
	visible := e.sel.Visible(g.Nodes)
	ents := make([]*graph.Entity, len(visible))
	for i, n := range visible {
		ents[i] = n.Entity
	}
	degree := func(id string) int {
		if n := g.NodeByID(id); n != nil {
			return n.Connections
		}
		return 0
	}
	return selection.Sort(ents, degree, key, order), nil
}

// Legend returns per-type counts and colours for the legend.
func (e *Engine) Legend() []render.Legend {
	return render.LegendFor(e.data.Entities, e.sel.TypeFilter, e.opts.Render)
}

// ─── Output ───

// Frame composes the current scene.
func (e *Engine) Frame() render.Scene {
	return render.Compose(e.graph(), &e.sel, e.view, e.size, e.opts.Render)
}

// SetRenderOptions swaps label toggles and colours.
func (e *Engine) SetRenderOptions(o render.Options) {
	e.opts.Render = o
}

// RenderOptions returns the label toggles and colours in use.
func (e *Engine) RenderOptions() render.Options {
	return e.opts.Render
}

// SetParams replaces the physics constants and restarts the simulation.
func (e *Engine) SetParams(p layout.Params) {
	e.opts.Params = p
	e.sim.SetParams(p)
	e.sim.Start()
}

// Settle runs the simulation synchronously on a ManualClock until it stops
// or max ticks have run. It returns the ticks fired, or an error when the
// engine was built on another clock.
func (e *Engine) Settle(max int) (int, error) {
	mc, ok := e.opts.Clock.(*layout.ManualClock)
	if !ok {
		return 0, errors.New("settle needs a manual clock")
	}
	return mc.RunUntilIdle(max), nil
}
