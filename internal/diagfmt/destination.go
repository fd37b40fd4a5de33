package diagfmt

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"

	"trans/internal/diag"
)

// ColorMode selects when styles become terminal attributes.
type ColorMode uint8

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode accepts auto, on/always and off/never.
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "", "auto":
		return ColorAuto, nil
	case "on", "always":
		return ColorAlways, nil
	case "off", "never":
		return ColorNever, nil
	}
	return ColorAuto, fmt.Errorf("unknown color mode %q", s)
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Destination writes rendered buffers, applying styles only when it
// talks to a colour terminal.
type Destination struct {
	w     io.Writer
	color bool
}

// NewDestination resolves mode against w.
func NewDestination(w io.Writer, mode ColorMode) *Destination {
	useColor := false
	switch mode {
	case ColorAlways:
		useColor = true
	case ColorAuto:
		useColor = IsTerminal(w)
	}
	return &Destination{w: w, color: useColor}
}

// Colored reports whether styles are applied.
func (d *Destination) Colored() bool { return d.color }

// encode appends rendered lines to out, one '\n' per line.
func (d *Destination) encode(out *bytes.Buffer, lines [][]StyledString, lvl diag.Severity) {
	for _, line := range lines {
		for _, part := range line {
			attrs := attributes(part.Style, lvl)
			if !d.color || len(attrs) == 0 {
				out.WriteString(part.Text)
				continue
			}
			c := color.New(attrs...)
			c.EnableColor()
			c.Fprint(out, part.Text)
		}
		out.WriteByte('\n')
	}
}

func (d *Destination) write(p []byte) error {
	_, err := d.w.Write(p)
	return err
}
