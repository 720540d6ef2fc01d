package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/msalah0e/garden/internal/graph"
)

// Brand colors
var (
	Brand  = color.New(color.FgHiGreen, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Warn   = color.New(color.FgYellow)
	Info   = color.New(color.FgCyan)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

const Sprout = "\U0001F331" // 🌱

// typeColors approximates the viewer palette in a 16-colour terminal.
var typeColors = map[string]*color.Color{
	graph.TypePerson:       color.New(color.FgHiRed),
	graph.TypePlace:        color.New(color.FgGreen),
	graph.TypeConcept:      color.New(color.FgMagenta),
	graph.TypeTechnology:   color.New(color.FgBlue),
	graph.TypeOrganization: color.New(color.FgCyan),
	graph.TypeProject:      color.New(color.FgYellow),
	graph.TypeEvent:        color.New(color.FgHiMagenta),
}

// Banner prints the garden banner.
func Banner(subtitle string) {
	fmt.Printf("%s %s — %s\n\n", Sprout, Brand.Sprint("garden"), subtitle)
}

// TypeColor returns the terminal colour for an entity type.
func TypeColor(entityType string) *color.Color {
	if c, ok := typeColors[entityType]; ok {
		return c
	}
	return Subtle
}

// TypeBadge renders a coloured dot and the type name.
func TypeBadge(entityType string) string {
	return TypeColor(entityType).Sprint("●") + " " + entityType
}

// Table prints a simple aligned table to stdout.
func Table(headers []string, rows [][]string) {
	WriteTable(os.Stdout, headers, rows)
}

// WriteTable prints a simple aligned table to w. Widths count runes, so
// names with accents line up.
func WriteTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := visibleWidth(cell); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	headerLine := "  "
	sepLine := "  "
	for i, h := range headers {
		headerLine += pad(h, widths[i]) + "  "
		sepLine += strings.Repeat("─", widths[i]) + "  "
	}
	Subtle.Fprintln(w, strings.TrimRight(headerLine, " "))
	Subtle.Fprintln(w, strings.TrimRight(sepLine, " "))

	for _, row := range rows {
		line := "  "
		for i, cell := range row {
			if i < len(widths) {
				line += pad(cell, widths[i]) + "  "
			}
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func pad(s string, width int) string {
	if n := visibleWidth(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// visibleWidth counts runes outside ANSI escape sequences.
func visibleWidth(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			n++
		}
	}
	return n
}

// StatusIcon returns a status icon string.
func StatusIcon(ok bool) string {
	if ok {
		return Good.Sprint("✓")
	}
	return Bad.Sprint("✗")
}

// WarnIcon returns a warning icon.
func WarnIcon() string {
	return Warn.Sprint("⚠")
}
