package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/msalah0e/garden/internal/engine"
	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/layout"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	errBadRequest     = errors.New("bad request")
	errUnknownCommand = errors.New("unknown command")
)

var validate = validator.New()

// command runs on the loop goroutine and returns the response payload.
type command func(e *engine.Engine, raw json.RawMessage) (any, error)

type idRequest struct {
	ID string `json:"id" validate:"required"`
}

type filterRequest struct {
	Type   string `json:"type" validate:"omitempty,oneof=person place concept technology organization project event"`
	Toggle bool   `json:"toggle"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type zoomRequest struct {
	Zoom   float64 `json:"zoom" validate:"gte=0"`
	Factor float64 `json:"factor" validate:"gte=0"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type panRequest struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Relative bool    `json:"relative"`
}

type wheelRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"delta_y"`
}

type resizeRequest struct {
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

type pointerRequest struct {
	Event string  `json:"event" validate:"required,oneof=down move up"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	// Node skips hit testing on "down" when the client already knows the target.
	Node string `json:"node"`
}

type labelsRequest struct {
	Labels     *bool `json:"labels"`
	EdgeLabels *bool `json:"edge_labels"`
}

type entityRequest struct {
	Name        string            `json:"name" validate:"required"`
	Type        string            `json:"type" validate:"required,oneof=person place concept technology organization project event"`
	Description string            `json:"description"`
	Properties  map[string]string `json:"properties"`
}

type updateRequest struct {
	ID          string  `json:"id" validate:"required"`
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Description *string `json:"description"`
}

type relationshipRequest struct {
	Source        string `json:"source" validate:"required"`
	Target        string `json:"target" validate:"required"`
	Type          string `json:"type" validate:"required"`
	Bidirectional bool   `json:"bidirectional"`
}

type labelsResponse struct {
	Labels     bool `json:"labels"`
	EdgeLabels bool `json:"edge_labels"`
}

type pointerResponse struct {
	Node    string `json:"node,omitempty"`
	Gesture string `json:"gesture"`
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &v); err != nil {
			return v, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	if err := validate.Struct(v); err != nil {
		return v, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return v, nil
}

// commands maps command names, shared by REST and websocket clients, to
// their handlers.
var commands = map[string]command{
	"select": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[idRequest](raw)
		if err != nil {
			return nil, err
		}
		return nil, e.SelectEntity(req.ID)
	},
	"select_from_search": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[idRequest](raw)
		if err != nil {
			return nil, err
		}
		return nil, e.SelectFromSearch(req.ID)
	},
	"clear_selection": func(e *engine.Engine, _ json.RawMessage) (any, error) {
		e.ClearSelection()
		return nil, nil
	},
	"filter": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[filterRequest](raw)
		if err != nil {
			return nil, err
		}
		if req.Toggle {
			e.ToggleTypeFilter(req.Type)
		} else {
			e.SetTypeFilter(req.Type)
		}
		return nil, nil
	},
	"search": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[searchRequest](raw)
		if err != nil {
			return nil, err
		}
		e.SetSearchQuery(req.Query)
		return e.Suggest(req.Query), nil
	},
	"zoom": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[zoomRequest](raw)
		if err != nil {
			return nil, err
		}
		switch {
		case req.Factor > 0:
			e.ZoomAt(req.X, req.Y, req.Factor)
		case req.Zoom > 0:
			e.SetZoom(req.Zoom)
		default:
			return nil, fmt.Errorf("%w: zoom or factor required", errBadRequest)
		}
		return e.Viewport(), nil
	},
	"zoom_in": func(e *engine.Engine, _ json.RawMessage) (any, error) {
		e.ZoomIn()
		return e.Viewport(), nil
	},
	"zoom_out": func(e *engine.Engine, _ json.RawMessage) (any, error) {
		e.ZoomOut()
		return e.Viewport(), nil
	},
	"wheel": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[wheelRequest](raw)
		if err != nil {
			return nil, err
		}
		e.Wheel(req.X, req.Y, req.DeltaY)
		return e.Viewport(), nil
	},
	"pan": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[panRequest](raw)
		if err != nil {
			return nil, err
		}
		if req.Relative {
			e.PanBy(req.X, req.Y)
		} else {
			e.SetPan(req.X, req.Y)
		}
		return e.Viewport(), nil
	},
	"fit": func(e *engine.Engine, _ json.RawMessage) (any, error) {
		e.FitToContent()
		return e.Viewport(), nil
	},
	"reset_view": func(e *engine.Engine, _ json.RawMessage) (any, error) {
		e.ResetView()
		return e.Viewport(), nil
	},
	"focus": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[idRequest](raw)
		if err != nil {
			return nil, err
		}
		if err := e.Focus(req.ID); err != nil {
			return nil, err
		}
		return e.Viewport(), nil
	},
	"reset_layout": func(e *engine.Engine, _ json.RawMessage) (any, error) {
		e.ResetLayout()
		return nil, nil
	},
	"resize": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[resizeRequest](raw)
		if err != nil {
			return nil, err
		}
		e.SetSize(layout.Size{Width: req.Width, Height: req.Height})
		return nil, nil
	},
	"pointer": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[pointerRequest](raw)
		if err != nil {
			return nil, err
		}
		p := r2.Vec{X: req.X, Y: req.Y}
		resp := pointerResponse{}
		switch req.Event {
		case "down":
			if req.Node != "" {
				e.DragStart(req.Node, p)
				resp.Node = req.Node
			} else {
				resp.Node = e.PointerDown(p)
			}
		case "move":
			e.DragMove(p)
		case "up":
			e.DragEnd()
		}
		resp.Gesture = e.Gesture().String()
		return resp, nil
	},
	"labels": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[labelsRequest](raw)
		if err != nil {
			return nil, err
		}
		o := e.RenderOptions()
		if req.Labels != nil {
			o.ShowLabels = *req.Labels
		}
		if req.EdgeLabels != nil {
			o.ShowEdgeLabels = *req.EdgeLabels
		}
		e.SetRenderOptions(o)
		return labelsResponse{Labels: o.ShowLabels, EdgeLabels: o.ShowEdgeLabels}, nil
	},
	"add_entity": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[entityRequest](raw)
		if err != nil {
			return nil, err
		}
		return e.AddEntity(req.Name, req.Type, req.Description, req.Properties)
	},
	"update_entity": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[updateRequest](raw)
		if err != nil {
			return nil, err
		}
		return e.UpdateEntity(req.ID, graph.Patch{Name: req.Name, Type: req.Type, Description: req.Description})
	},
	"remove_entity": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[idRequest](raw)
		if err != nil {
			return nil, err
		}
		return e.RemoveEntity(req.ID)
	},
	"add_relationship": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[relationshipRequest](raw)
		if err != nil {
			return nil, err
		}
		return nil, e.AddRelationship(req.Source, req.Target, req.Type, req.Bidirectional)
	},
	"remove_relationship": func(e *engine.Engine, raw json.RawMessage) (any, error) {
		req, err := decode[relationshipRequest](raw)
		if err != nil {
			return nil, err
		}
		return nil, e.RemoveRelationship(req.Source, req.Target, req.Type)
	},
}
