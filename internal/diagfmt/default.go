package diagfmt

import (
	"bytes"
	"fmt"

	"trans/internal/diag"
)

func (e *Emitter) emitDefault(out *bytes.Buffer, d *diag.Diagnostic) {
	maxLen := len(itoa(e.maxLineNum(d)))

	e.dst.encode(out, e.renderMessage(d.Span, d.Message, d.Code, d.Severity, maxLen, false).Render(), d.Severity)
	if len(d.Children) > 0 {
		var sep StyledBuffer
		drawColSeparatorNoSpace(&sep, 0, maxLen+1)
		e.dst.encode(out, sep.Render(), d.Severity)
	}
	for _, c := range d.Children {
		var buf *StyledBuffer
		if c.Suggestion != nil {
			buf = e.renderSuggestion(c.Suggestion, c.Severity, c.Message, maxLen)
		} else {
			buf = e.renderMessage(c.Span, c.Message, diag.UnknownCode, c.Severity, maxLen, true)
		}
		e.dst.encode(out, buf.Render(), c.Severity)
	}
	out.WriteByte('\n')
}

// renderMessage lays out one message: the header, then a block per
// annotated file with the primary file first. A child without spans
// renders as a single "= level: msg" row.
func (e *Emitter) renderMessage(msp diag.MultiSpan, msg string, code diag.Code, sev diag.Severity, maxLen int, secondary bool) *StyledBuffer {
	buf := &StyledBuffer{}

	if secondary && msp.IsEmpty() {
		for range maxLen {
			buf.Prepend(0, " ", NoStyle)
		}
		drawNoteSeparator(buf, 0, maxLen+1)
		buf.Append(0, sev.String(), StyleHeaderMsg)
		buf.Append(0, ": ", NoStyle)
		buf.Append(0, msg, NoStyle)
		return buf
	}

	lvl := LevelStyle(sev)
	buf.Append(0, sev.String(), lvl)
	if id := code.ID(); id != "" {
		buf.Append(0, "["+id+"]", lvl)
	}
	buf.Append(0, ": ", StyleHeaderMsg)
	buf.Append(0, msg, StyleHeaderMsg)

	primary, ok := msp.PrimarySpan()
	if !ok {
		return buf
	}
	pf, pline, pcol, ok := e.location(primary)
	if !ok {
		return buf
	}

	files := OrderPrimaryFirst(Layout(e.fs, msp), pf.ID)
	for _, af := range files {
		if af.File.ID == pf.ID {
			row := buf.NumLines()
			buf.Prepend(row, "--> ", StyleLineNumber)
			buf.Append(row, fmt.Sprintf("%s:%d:%d", e.path(pf), pline, pcol), StyleLineAndColumn)
			for range maxLen {
				buf.Prepend(row, " ", NoStyle)
			}
		} else {
			row := buf.NumLines()
			drawColSeparator(buf, row, maxLen+1)
			buf.Prepend(row+1, "::: ", StyleLineNumber)
			buf.Append(row+1, e.path(af.File), StyleLineAndColumn)
			for range maxLen {
				buf.Prepend(row+1, " ", NoStyle)
			}
		}

		drawColSeparatorNoSpace(buf, buf.NumLines(), maxLen+1)

		for i, line := range af.Lines {
			renderSourceLine(buf, af.File, line, 3+maxLen)
			if i == len(af.Lines)-1 {
				continue
			}
			next := af.Lines[i+1].LineIndex
			switch delta := next - line.LineIndex; {
			case delta > 2:
				buf.Puts(buf.NumLines(), 0, "...", StyleLineNumber)
			case delta == 2:
				text, _ := af.File.GetLine(safeLine(line.LineIndex + 1))
				row := buf.NumLines()
				buf.Puts(row, 0, itoa(next-1), StyleLineNumber)
				drawColSeparator(buf, row, 1+maxLen)
				buf.Puts(row, 3+maxLen, sourceText(text), StyleQuotation)
			}
		}
	}
	return buf
}
