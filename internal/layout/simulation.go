package layout

import "math/rand/v2"

// Simulation runs Step on a Clock until the layout settles.
//
// States: idle → running → idle. It is not safe for concurrent use; the
// owner serializes Start/Stop/Reset with the ticks the clock delivers.
type Simulation struct {
	clock  Clock
	params Params
	size   func() Size
	graph  *Graph

	running bool
	handle  Handle
	runTick int
	total   int

	onTick   func(movement float64)
	onSettle func(ticks int)
}

// NewSimulation wires a simulation to a clock. size is read at every tick.
func NewSimulation(clock Clock, params Params, size func() Size) *Simulation {
	return &Simulation{clock: clock, params: params, size: size}
}

// SetGraph swaps the working set. A running simulation continues on the new graph.
func (s *Simulation) SetGraph(g *Graph) {
	s.graph = g
}

// Graph returns the current working set.
func (s *Simulation) Graph() *Graph {
	return s.graph
}

// Params returns the physics constants in use.
func (s *Simulation) Params() Params {
	return s.params
}

// SetParams replaces the physics constants; takes effect on the next tick.
func (s *Simulation) SetParams(p Params) {
	s.params = p
}

// OnTick registers a hook called after every tick with the aggregate movement.
func (s *Simulation) OnTick(fn func(movement float64)) {
	s.onTick = fn
}

// OnSettle registers a hook called when a run ends, with the run's tick count.
func (s *Simulation) OnSettle(fn func(ticks int)) {
	s.onSettle = fn
}

// Running reports whether a tick is scheduled.
func (s *Simulation) Running() bool {
	return s.running
}

// Ticks returns the number of ticks executed since creation.
func (s *Simulation) Ticks() int {
	return s.total
}

// Start schedules ticks. It is a no-op when already running or when there
// is nothing to lay out.
func (s *Simulation) Start() {
	if s.running || s.graph.Empty() {
		return
	}
	s.running = true
	s.runTick = 0
	s.handle = s.clock.RequestTick(s.tick)
}

// Stop cancels the pending tick.
func (s *Simulation) Stop() {
	if !s.running {
		return
	}
	s.clock.Cancel(s.handle)
	s.running = false
}

// Reset re-seeds positions and starts a fresh run.
func (s *Simulation) Reset(rng *rand.Rand) {
	s.Stop()
	if s.graph != nil {
		s.graph.Reseed(s.size(), rng)
	}
	s.Start()
}

func (s *Simulation) tick() {
	if !s.running {
		return
	}
	movement := Step(s.graph, s.size(), s.params)
	s.runTick++
	s.total++
	if s.onTick != nil {
		s.onTick(movement)
	}

	capped := s.params.MaxTicks > 0 && s.runTick >= s.params.MaxTicks
	if movement > s.params.Epsilon && !capped && s.running {
		s.handle = s.clock.RequestTick(s.tick)
		return
	}
	s.running = false
	if s.onSettle != nil {
		s.onSettle(s.runTick)
	}
}
