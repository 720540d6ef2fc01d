package server

import (
	_ "embed"
	"net/http"
)

// viewerHTML is the browser client. It draws the frames pushed over /ws and
// sends pointer, wheel and search input back as commands.
//
//go:embed viewer.html
var viewerHTML []byte

func (s *Server) handleViewer(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(viewerHTML)
}
