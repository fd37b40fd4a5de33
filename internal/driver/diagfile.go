package driver

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"fortio.org/safecast"

	"trans/internal/diag"
	"trans/internal/source"
)

// Document is a diagnostics file as read by `transc render`.
//
//	[[file]]
//	path = "main.tr"
//	content = "let x = 1;\n"   # omitted: read path from disk
//
//	[[diagnostic]]
//	level = "error"
//	code = "E0308"
//	message = "mismatched types"
//	  [[diagnostic.span]]
//	  file = "main.tr"
//	  start = 4
//	  end = 5
//	  label = "expected `bool`"
//	  primary = true
type Document struct {
	Files        []FileEntry        `toml:"file"`
	Diagnostics  []DiagnosticEntry  `toml:"diagnostic"`
	Explanations []ExplanationEntry `toml:"explanation"`
}

type FileEntry struct {
	Path    string  `toml:"path"`
	Content *string `toml:"content"`
}

// SpanEntry locates a span either by byte offsets (start, end) or by a
// 1-based line and byte column plus a length.
type SpanEntry struct {
	File    string `toml:"file"`
	Start   int    `toml:"start"`
	End     int    `toml:"end"`
	Line    int    `toml:"line"`
	Col     int    `toml:"col"`
	Len     int    `toml:"len"`
	Label   string `toml:"label"`
	Primary bool   `toml:"primary"`
}

type SuggestionEntry struct {
	SpanEntry
	Replacement string `toml:"replacement"`
}

type ChildEntry struct {
	Level      string           `toml:"level"`
	Message    string           `toml:"message"`
	Spans      []SpanEntry      `toml:"span"`
	Suggestion *SuggestionEntry `toml:"suggestion"`
}

type DiagnosticEntry struct {
	Level    string       `toml:"level"`
	Code     string       `toml:"code"`
	Message  string       `toml:"message"`
	Spans    []SpanEntry  `toml:"span"`
	Children []ChildEntry `toml:"child"`
}

type ExplanationEntry struct {
	Code string `toml:"code"`
	Text string `toml:"text"`
}

// Rendered is a loaded diagnostics file ready for the emitter.
type Rendered struct {
	Files       *source.FileSet
	Diagnostics []diag.Diagnostic
	Registry    *diag.Registry
}

// LoadDiagnostics parses a diagnostics file. Relative source paths are
// resolved against the directory of path.
func LoadDiagnostics(path string) (*Rendered, error) {
	var doc Document
	meta, err := toml.DecodeFile(path, &doc)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	out, err := doc.Build(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Build resolves the document against baseDir.
func (doc *Document) Build(baseDir string) (*Rendered, error) {
	fs := source.NewFileSetWithBase(baseDir)
	ids := make(map[string]source.FileID, len(doc.Files))
	for _, f := range doc.Files {
		if f.Path == "" {
			return nil, errors.New("file entry without path")
		}
		if _, dup := ids[f.Path]; dup {
			return nil, fmt.Errorf("file %q listed twice", f.Path)
		}
		if f.Content != nil {
			ids[f.Path] = fs.AddVirtual(f.Path, []byte(*f.Content))
			continue
		}
		p := f.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		id, err := fs.Load(p)
		if err != nil {
			return nil, err
		}
		ids[f.Path] = id
	}

	reg := diag.NewRegistry()
	for _, e := range doc.Explanations {
		code, err := diag.ParseCode(e.Code)
		if err != nil {
			return nil, fmt.Errorf("explanation: %w", err)
		}
		reg.Register(code, e.Text)
	}

	r := resolver{fs: fs, ids: ids}
	out := &Rendered{Files: fs, Registry: reg}
	for i, d := range doc.Diagnostics {
		built, err := r.diagnostic(d)
		if err != nil {
			return nil, fmt.Errorf("diagnostic %d: %w", i+1, err)
		}
		out.Diagnostics = append(out.Diagnostics, built)
	}
	return out, nil
}

type resolver struct {
	fs  *source.FileSet
	ids map[string]source.FileID
}

func (r resolver) diagnostic(d DiagnosticEntry) (diag.Diagnostic, error) {
	sev, err := diag.ParseSeverity(d.Level)
	if err != nil {
		return diag.Diagnostic{}, err
	}
	code, err := diag.ParseCode(d.Code)
	if err != nil {
		return diag.Diagnostic{}, err
	}
	msp, err := r.multiSpan(d.Spans)
	if err != nil {
		return diag.Diagnostic{}, err
	}
	out := diag.Diagnostic{Severity: sev, Code: code, Message: d.Message, Span: msp}
	for j, c := range d.Children {
		child, err := r.child(c)
		if err != nil {
			return diag.Diagnostic{}, fmt.Errorf("child %d: %w", j+1, err)
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

func (r resolver) child(c ChildEntry) (diag.SubDiagnostic, error) {
	sev, err := diag.ParseSeverity(c.Level)
	if err != nil {
		return diag.SubDiagnostic{}, err
	}
	msp, err := r.multiSpan(c.Spans)
	if err != nil {
		return diag.SubDiagnostic{}, err
	}
	out := diag.SubDiagnostic{Severity: sev, Message: c.Message, Span: msp}
	if c.Suggestion != nil {
		sp, err := r.span(c.Suggestion.SpanEntry)
		if err != nil {
			return diag.SubDiagnostic{}, fmt.Errorf("suggestion: %w", err)
		}
		out.Suggestion = &diag.Suggestion{Span: sp, Replacement: c.Suggestion.Replacement}
	}
	return out, nil
}

// multiSpan keeps entry order. A span marked primary without a label is
// only listed as primary.
func (r resolver) multiSpan(entries []SpanEntry) (diag.MultiSpan, error) {
	var msp diag.MultiSpan
	for _, e := range entries {
		sp, err := r.span(e)
		if err != nil {
			return diag.MultiSpan{}, err
		}
		if e.Primary {
			msp.Primary = append(msp.Primary, sp)
		}
		if e.Label != "" || !e.Primary {
			msp.PushLabel(sp, e.Label)
		}
	}
	return msp, nil
}

func (r resolver) span(e SpanEntry) (source.Span, error) {
	id, ok := r.ids[e.File]
	if !ok {
		return source.NoSpan, fmt.Errorf("span refers to unknown file %q", e.File)
	}
	f := r.fs.Get(id)
	size := len(f.Content)

	start, end := e.Start, e.End
	if e.Line > 0 {
		line, err := safecast.Conv[uint32](e.Line)
		if err != nil {
			return source.NoSpan, fmt.Errorf("line %d: %w", e.Line, err)
		}
		if line > f.LineCount() {
			return source.NoSpan, fmt.Errorf("%s has %d lines, span is on line %d", e.File, f.LineCount(), e.Line)
		}
		col := max(e.Col, 1)
		start = int(f.LineStart(line)) + col - 1
		end = start + e.Len
	}
	if start < 0 || end < start || end > size {
		return source.NoSpan, fmt.Errorf("span %d..%d is outside %s (%d bytes)", start, end, e.File, size)
	}
	lo, err := safecast.Conv[uint32](start)
	if err != nil {
		return source.NoSpan, err
	}
	hi, err := safecast.Conv[uint32](end)
	if err != nil {
		return source.NoSpan, err
	}
	return source.Span{File: id, Start: lo, End: hi}, nil
}
