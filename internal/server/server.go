// Package server runs the live graph viewer: a REST API and a websocket feed
// of rendered scenes, both backed by a single engine goroutine.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/msalah0e/garden/internal/config"
	"github.com/msalah0e/garden/internal/engine"
	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 5 * time.Second

// Options configure a Server.
type Options struct {
	Config config.ServerConfig

	// Persist is called on the engine goroutine with the snapshot after
	// every successful mutation. Nil disables saving.
	Persist func(*graph.Graph) error
	Logger  *zap.Logger
}

// Server exposes one engine over HTTP and websockets.
type Server struct {
	eng     *engine.Engine
	loop    *Loop
	hub     *Hub
	limiter *rate.Limiter
	opts    Options
	log     *zap.Logger

	upgrader websocket.Upgrader

	// dirty is set when the scene changed since the last broadcast. Only
	// touched on the loop goroutine.
	dirty bool
}

// New wires eng to loop and returns the server. The engine must have been
// created with loop as its clock, and New must be called before loop.Run.
func New(eng *engine.Engine, loop *Loop, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Config.MaxFrameRate <= 0 {
		opts.Config.MaxFrameRate = 30
	}
	if opts.Config.Burst <= 0 {
		opts.Config.Burst = 1
	}

	s := &Server{
		eng:     eng,
		loop:    loop,
		hub:     NewHub(opts.Logger.Named("hub")),
		limiter: rate.NewLimiter(rate.Limit(opts.Config.MaxFrameRate), opts.Config.Burst),
		opts:    opts,
		log:     opts.Logger,
		dirty:   true,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.hub.inbound = s.handleMessage

	eng.OnTick(func(float64) { s.dirty = true })
	eng.Subscribe(s.forward)
	loop.after = s.flush
	return s
}

// Hub returns the viewer hub.
func (s *Server) Hub() *Hub { return s.hub }

// Run serves on the configured address until ctx is cancelled, then shuts
// the listener, the hub and the loop down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.loop.Run(ctx) })
	g.Go(func() error { return s.hub.Run(ctx) })
	g.Go(func() error {
		s.log.Info("viewer listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.log))
	if len(s.opts.Config.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.Config.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/", s.handleViewer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/scene", s.handleScene)
		r.Get("/stats", s.handleStats)
		r.Get("/suggest", s.handleSuggest)

		r.Route("/entities", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.command("add_entity", false))
			r.Get("/{id}", s.handleDetail)
			r.Patch("/{id}", s.command("update_entity", true))
			r.Delete("/{id}", s.command("remove_entity", true))
		})

		r.Post("/relationships", s.command("add_relationship", false))
		r.Delete("/relationships", s.command("remove_relationship", false))

		r.Post("/commands/{name}", func(w http.ResponseWriter, r *http.Request) {
			s.command(chi.URLParam(r, "name"), false)(w, r)
		})
	})
	return r
}

func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", chimiddleware.GetReqID(r.Context())))
		})
	}
}

// checkOrigin accepts same-host upgrades plus the configured CORS origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := s.opts.Config.AllowedOrigins
	if slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// ─── Engine access ───

// exec runs a named command on the loop and returns its JSON result.
func (s *Server) exec(ctx context.Context, name string, raw json.RawMessage) (json.RawMessage, error) {
	cmd, ok := commands[name]
	if !ok {
		metrics.Commands.WithLabelValues("unknown", "error").Inc()
		return nil, fmt.Errorf("%w: %s", errUnknownCommand, name)
	}

	var out json.RawMessage
	var cmdErr error
	err := s.loop.Do(ctx, func() {
		var v any
		v, cmdErr = cmd(s.eng, raw)
		s.dirty = true
		if cmdErr == nil && v != nil {
			out, cmdErr = json.Marshal(v)
		}
	})
	if err == nil {
		err = cmdErr
	}

	status := "ok"
	if err != nil {
		status = "error"
		s.log.Debug("command failed", zap.String("command", name), zap.Error(err))
	}
	metrics.Commands.WithLabelValues(name, status).Inc()
	return out, err
}

// query runs a read on the loop and marshals its result there, so nothing
// the engine owns escapes to another goroutine.
func (s *Server) query(ctx context.Context, fn func(e *engine.Engine) (any, error)) (json.RawMessage, error) {
	var out json.RawMessage
	var qErr error
	err := s.loop.Do(ctx, func() {
		var v any
		v, qErr = fn(s.eng)
		if qErr == nil {
			out, qErr = json.Marshal(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, qErr
}

// flush broadcasts the current scene if it changed and the frame budget
// allows. It runs on the loop goroutine after every command and frame.
func (s *Server) flush() {
	if !s.dirty || s.hub.Count() == 0 {
		return
	}
	if !s.limiter.Allow() {
		return
	}
	msg, err := envelope("frame", s.eng.Frame())
	if err != nil {
		s.log.Error("encoding frame", zap.Error(err))
		return
	}
	s.dirty = false
	if s.hub.Broadcast(msg) {
		metrics.Frames.Inc()
	}
}

// forward relays engine events to viewers and persists mutations.
func (s *Server) forward(ev engine.Event) {
	if ev.Kind == engine.Rebuilt && ev.Reason == engine.ReasonMutation && s.opts.Persist != nil {
		if err := s.opts.Persist(s.eng.Data()); err != nil {
			s.log.Error("saving graph", zap.Error(err))
		}
	}
	s.dirty = true
	if s.hub.Count() == 0 {
		return
	}
	msg, err := envelope(ev.Kind.String(), ev)
	if err != nil {
		s.log.Error("encoding event", zap.Error(err))
		return
	}
	s.hub.Broadcast(msg)
}

func envelope(kind string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: kind, Data: data})
}

// ─── Websocket ───

type reply struct {
	Command string          `json:"command"`
	Error   string          `json:"error,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newClient(s.hub, conn, s.log.Named("ws"))
	c.start()

	// The first frame goes out as soon as the client is registered.
	_ = s.loop.Do(r.Context(), func() { s.dirty = true })
}

// handleMessage runs a viewer command and answers the sender.
func (s *Server) handleMessage(c *Client, m Message) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	out, err := s.exec(ctx, m.Type, m.Data)
	rep := reply{Command: m.Type, Result: out}
	if err != nil {
		rep.Error = err.Error()
	}
	msg, encErr := envelope("reply", rep)
	if encErr != nil {
		c.logger.Error("encoding reply", zap.Error(encErr))
		return
	}
	s.hub.SendTo(c, msg)
}

// ─── REST handlers ───

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	out, err := s.query(r.Context(), func(e *engine.Engine) (any, error) {
		return e.Frame(), nil
	})
	s.respond(w, out, err)
}

type statsResponse struct {
	Nodes      int             `json:"nodes"`
	Edges      int             `json:"edges"`
	Dropped    int             `json:"dropped"`
	Running    bool            `json:"running"`
	Ticks      int             `json:"ticks"`
	Zoom       float64         `json:"zoom"`
	PanX       float64         `json:"pan_x"`
	PanY       float64         `json:"pan_y"`
	Selected   string          `json:"selected,omitempty"`
	TypeFilter string          `json:"type_filter,omitempty"`
	Query      string          `json:"query,omitempty"`
	Viewers    int             `json:"viewers"`
	Legend     json.RawMessage `json:"legend"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	out, err := s.query(r.Context(), func(e *engine.Engine) (any, error) {
		legend, err := json.Marshal(e.Legend())
		if err != nil {
			return nil, err
		}
		st, v, sel := e.Stats(), e.Viewport(), e.Selection()
		return statsResponse{
			Nodes:      st.Nodes,
			Edges:      st.Edges,
			Dropped:    st.Dropped,
			Running:    e.Running(),
			Ticks:      e.Ticks(),
			Zoom:       v.Zoom,
			PanX:       v.PanX,
			PanY:       v.PanY,
			Selected:   sel.Selected,
			TypeFilter: sel.TypeFilter,
			Query:      sel.Query,
			Viewers:    s.hub.Count(),
			Legend:     legend,
		}, nil
	})
	s.respond(w, out, err)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	out, err := s.query(r.Context(), func(e *engine.Engine) (any, error) {
		return e.Suggest(q), nil
	})
	s.respond(w, out, err)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	spec := r.URL.Query().Get("sort")
	out, err := s.query(r.Context(), func(e *engine.Engine) (any, error) {
		list, err := e.List(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return list, nil
	})
	s.respond(w, out, err)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, err := s.query(r.Context(), func(e *engine.Engine) (any, error) {
		return e.Detail(id)
	})
	s.respond(w, out, err)
}

// command returns a handler that runs the named command with the request
// body. withID merges the {id} URL parameter into the body.
func (s *Server) command(name string, withID bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		if withID {
			raw, err = injectID(raw, chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
		}
		out, err := s.exec(r.Context(), name, raw)
		s.respond(w, out, err)
	}
}

func injectID(raw []byte, id string) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	encoded, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	fields["id"] = encoded
	return json.Marshal(fields)
}

func (s *Server) respond(w http.ResponseWriter, out json.RawMessage, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	if len(out) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var invalid validator.ValidationErrors
	switch {
	case errors.Is(err, graph.ErrNotFound), errors.Is(err, errUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrExists):
		return http.StatusConflict
	case errors.Is(err, ErrLoopStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadRequest), errors.Is(err, engine.ErrNoSelection), errors.As(err, &invalid):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}
