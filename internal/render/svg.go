package render

import (
	"bufio"
	"fmt"
	"html"
	"io"
)

// WriteSVG writes the scene as a standalone SVG document. The camera is a
// single group transform so the coordinates stay in graph space.
func WriteSVG(w io.Writer, s Scene) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(s.Width), num(s.Height), num(s.Width), num(s.Height))
	bw.WriteString(`<defs><marker id="arrowhead" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse"><path d="M0,0 L10,5 L0,10 z" fill="#64748b"/></marker></defs>` + "\n")
	bw.WriteString(`<style>.edge{stroke:#64748b;stroke-width:1.5}.edge.highlighted{stroke:#e2e8f0;stroke-width:2.5}.dimmed{opacity:0.2}.node-label,.edge-label{font-family:sans-serif;text-anchor:middle}.node-label{fill:#e2e8f0;font-size:12px}.edge-label{fill:#94a3b8;font-size:10px}.selected circle{stroke:#ffffff;stroke-width:3}</style>` + "\n")
	if s.Background != "" {
		fmt.Fprintf(bw, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", html.EscapeString(s.Background))
	}
	fmt.Fprintf(bw, `<g transform="translate(%s, %s) scale(%s)">`+"\n", num(s.PanX), num(s.PanY), num(s.Zoom))

	for _, e := range s.Edges {
		cls := "edge" + stateClass(e.Highlighted, e.Dimmed)
		bw.WriteString(`<g class="edge-group">`)
		if e.SelfLoop {
			// A small loop above the node.
			fmt.Fprintf(bw, `<path class="%s" fill="none" d="M%s,%s c-12,-24 12,-24 0,0"/>`,
				cls, num(e.X1), num(e.LabelY+4))
		} else {
			fmt.Fprintf(bw, `<line class="%s" x1="%s" y1="%s" x2="%s" y2="%s" marker-end="url(#arrowhead)"/>`,
				cls, num(e.X1), num(e.Y1), num(e.X2), num(e.Y2))
		}
		if e.Label != "" {
			fmt.Fprintf(bw, `<text class="edge-label" x="%s" y="%s">%s</text>`,
				num(e.LabelX), num(e.LabelY), html.EscapeString(e.Label))
		}
		bw.WriteString("</g>\n")
	}

	for _, n := range s.Nodes {
		cls := "node" + stateClass(n.Highlighted, n.Dimmed)
		if n.Selected {
			cls += " selected"
		}
		fmt.Fprintf(bw, `<g class="%s" data-id="%s" transform="translate(%s, %s)"><circle r="%s" fill="%s"/>`,
			cls, html.EscapeString(n.ID), num(n.X), num(n.Y), num(n.Radius), html.EscapeString(n.Color))
		if n.Label != "" {
			fmt.Fprintf(bw, `<text class="node-label" y="%s">%s</text>`,
				num(n.LabelY-n.Y), html.EscapeString(n.Label))
		}
		bw.WriteString("</g>\n")
	}

	bw.WriteString("</g>\n</svg>\n")
	return bw.Flush()
}

func stateClass(highlighted, dimmed bool) string {
	switch {
	case highlighted:
		return " highlighted"
	case dimmed:
		return " dimmed"
	}
	return ""
}

func num(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
