package diagfmt

import (
	"bytes"
	"fmt"

	"github.com/mattn/go-runewidth"

	"trans/internal/diag"
	"trans/internal/source"
)

// spanString formats sp as "file:line:col: line:col", or "" for the
// sentinel span.
func (e *Emitter) spanString(sp source.Span) string {
	f, line, col, ok := e.location(sp)
	if !ok {
		return ""
	}
	endLine, endCol := e.endPosition(sp)
	return fmt.Sprintf("%s:%d:%d: %d:%d", e.path(f), line, col, endLine, endCol)
}

func (e *Emitter) emitOldSchool(out *bytes.Buffer, d *diag.Diagnostic) {
	e.dst.encode(out, e.renderOldSchool(d.Span, d.Message, d.Code, d.Severity, true).Render(), d.Severity)
	for _, c := range d.Children {
		var buf *StyledBuffer
		switch {
		case c.Suggestion != nil:
			buf = e.renderSuggestionOldSchool(c.Suggestion, c.Severity, c.Message)
		case c.Span.IsEmpty():
			// the parent's location, without a snippet
			buf = e.renderOldSchool(d.Span, c.Message, diag.UnknownCode, c.Severity, false)
		default:
			buf = e.renderOldSchool(c.Span, c.Message, diag.UnknownCode, c.Severity, true)
		}
		e.dst.encode(out, buf.Render(), c.Severity)
	}
	out.WriteByte('\n')
}

func (e *Emitter) renderOldSchool(msp diag.MultiSpan, msg string, code diag.Code, sev diag.Severity, showSnippet bool) *StyledBuffer {
	buf := &StyledBuffer{}
	primary, hasPrimary := msp.PrimarySpan()
	loc := ""
	if hasPrimary {
		loc = e.spanString(primary)
	}
	if loc != "" {
		buf.Append(0, loc+" ", NoStyle)
	}
	buf.Append(0, sev.String(), LevelStyle(sev))
	buf.Append(0, ": ", StyleHeaderMsg)
	buf.Append(0, msg, StyleHeaderMsg)
	buf.Append(0, " ", NoStyle)
	id := code.ID()
	if id != "" {
		buf.Append(0, "["+id+"]", StyleErrorCode)
	}

	if !showSnippet || loc == "" {
		return buf
	}

	pf, pline, _, _ := e.location(primary)
	files := OrderPrimaryFirst(Layout(e.fs, msp), pf.ID)
	if len(files) > 0 {
		af := files[0]
		row, _ := af.File.GetLine(safeLine(af.Lines[0].LineIndex))
		offset := buf.NumLines()
		filePos := fmt.Sprintf("%s:%d ", e.path(pf), pline)
		width := runewidth.StringWidth(filePos)

		buf.Puts(offset, 0, filePos, StyleFileName)
		buf.Puts(offset, width, sourceText(row), StyleQuotation)
		for _, a := range af.Lines[0].Annotations {
			style := StyleOldSchoolNote
			if a.IsPrimary {
				style = StyleUnderlinePrimary
			}
			for p := a.StartCol; p < a.EndCol; p++ {
				mark := '~'
				if p == a.StartCol {
					mark = '^'
				}
				buf.Putc(offset+1, width+p, mark, style)
			}
		}
	}

	if id != "" {
		if _, ok := e.opts.Registry.Find(code); ok {
			row := buf.NumLines()
			buf.Append(row, loc+" ", NoStyle)
			buf.Append(row, diag.SevHelp.String(), LevelStyle(diag.SevHelp))
			buf.Append(row, ": ", StyleHeaderMsg)
			buf.Append(row, fmt.Sprintf("run `%s explain %s` to see a detailed explanation", e.opts.Program, id), StyleHeaderMsg)
		}
	}
	return buf
}
