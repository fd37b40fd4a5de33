package diagfmt

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"sync"

	"fortio.org/safecast"

	"trans/internal/diag"
	"trans/internal/source"
)

// MaxHighlightLines caps the rows printed for one suggestion.
const MaxHighlightLines = 6

// Emitter renders diagnostics against a file set. Emit calls are
// serialised; each diagnostic is rendered completely before any byte
// reaches the destination.
type Emitter struct {
	mu   sync.Mutex
	dst  *Destination
	fs   *source.FileSet
	opts Options
}

// NewEmitter returns an emitter writing to w.
func NewEmitter(w io.Writer, fs *source.FileSet, opts Options) *Emitter {
	if opts.Program == "" {
		opts.Program = "transc"
	}
	return &Emitter{dst: NewDestination(w, opts.Color), fs: fs, opts: opts}
}

// Emit renders d and writes it in a single call to the destination.
func (e *Emitter) Emit(d *diag.Diagnostic) error {
	if d == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var out bytes.Buffer
	if e.opts.Format.oldSchool() {
		e.emitOldSchool(&out, d)
	} else {
		e.emitDefault(&out, d)
	}
	if err := e.dst.write(out.Bytes()); err != nil {
		return fmt.Errorf("failed to emit error: %w", err)
	}
	return nil
}

// EmitAll emits every diagnostic in order and stops at the first write
// error.
func (e *Emitter) EmitAll(items []diag.Diagnostic) error {
	for i := range items {
		if err := e.Emit(&items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) path(f *source.File) string {
	return f.FormatPath(e.opts.PathMode.String(), e.fs.BaseDir())
}

// location resolves sp into its file and display position (1-based
// line and column).
func (e *Emitter) location(sp source.Span) (f *source.File, line, col int, ok bool) {
	if sp.IsDummy() || e.fs == nil {
		return nil, 0, 0, false
	}
	f = e.fs.Get(sp.File)
	if f == nil {
		return nil, 0, 0, false
	}
	lo, _ := e.fs.Resolve(sp)
	row, _ := f.GetLine(lo.Line)
	return f, int(lo.Line), displayCol(row, lo.Col) + 1, true
}

func (e *Emitter) endPosition(sp source.Span) (line, col int) {
	f := e.fs.Get(sp.File)
	_, hi := e.fs.Resolve(sp)
	row, _ := f.GetLine(hi.Line)
	return int(hi.Line), displayCol(row, hi.Col) + 1
}

// maxLineNum is the largest end line among the spans of d and of its
// children.
func (e *Emitter) maxLineNum(d *diag.Diagnostic) int {
	maxLine := e.multiSpanMaxLine(d.Span)
	for _, c := range d.Children {
		maxLine = max(maxLine, e.multiSpanMaxLine(c.Span))
	}
	return maxLine
}

func (e *Emitter) multiSpanMaxLine(msp diag.MultiSpan) int {
	maxLine := 0
	for _, sl := range msp.SpanLabels() {
		if sl.Span.IsDummy() || e.fs == nil || e.fs.Get(sl.Span.File) == nil {
			continue
		}
		_, hi := e.fs.Resolve(sl.Span)
		maxLine = max(maxLine, int(hi.Line))
	}
	return maxLine
}

func itoa(n int) string { return strconv.Itoa(n) }

func safeLine(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("line number overflow: %w", err))
	}
	return v
}
