package diagfmt

import (
	"strings"

	"trans/internal/diag"
	"trans/internal/source"
)

// spliceLines applies s to the lines it touches and returns those lines
// with the replacement in place, together with the first line number
// and the number of source lines covered.
func spliceLines(fs *source.FileSet, s *diag.Suggestion) (text string, first, count int, ok bool) {
	if s == nil || s.Span.IsDummy() || fs == nil {
		return "", 0, 0, false
	}
	f := fs.Get(s.Span.File)
	if f == nil || s.Span.Start > s.Span.End || int(s.Span.End) > len(f.Content) {
		return "", 0, 0, false
	}
	lo, hi := fs.Resolve(s.Span)
	start := f.LineStart(lo.Line)
	end := len(f.Content)
	if nl := strings.IndexByte(string(f.Content[s.Span.End:]), '\n'); nl >= 0 {
		end = int(s.Span.End) + nl
	}
	var b strings.Builder
	b.Write(f.Content[start:s.Span.Start])
	b.WriteString(s.Replacement)
	b.Write(f.Content[s.Span.End:end])
	return b.String(), int(lo.Line), int(hi.Line-lo.Line) + 1, true
}

// renderSuggestion prints the spliced lines numbered from the first
// line of the span, at most MaxHighlightLines of them.
func (e *Emitter) renderSuggestion(s *diag.Suggestion, sev diag.Severity, msg string, maxLen int) *StyledBuffer {
	buf := &StyledBuffer{}
	buf.Append(0, sev.String(), LevelStyle(sev))
	buf.Append(0, ": ", StyleHeaderMsg)
	buf.Append(0, msg, StyleHeaderMsg)

	text, first, _, ok := spliceLines(e.fs, s)
	if !ok {
		return buf
	}
	lines := strings.Split(text, "\n")
	row := 1
	for i, line := range lines {
		if i == MaxHighlightLines {
			buf.Append(row, "...", NoStyle)
			break
		}
		num := itoa(first + i)
		// номер может быть шире отступа, если замена добавила строки
		if len(num) <= maxLen {
			buf.Puts(row, 0, num, StyleLineNumber)
		}
		drawColSeparator(buf, row, maxLen+1)
		buf.Append(row, sourceText(line), NoStyle)
		row++
	}
	return buf
}

// renderSuggestionOldSchool prefixes every spliced line with the file
// name, padded to the width of the last covered line number.
func (e *Emitter) renderSuggestionOldSchool(s *diag.Suggestion, sev diag.Severity, msg string) *StyledBuffer {
	buf := &StyledBuffer{}
	if loc := e.spanString(s.Span); loc != "" {
		buf.Append(0, loc+" ", NoStyle)
	}
	buf.Append(0, sev.String(), LevelStyle(sev))
	buf.Append(0, ": ", StyleHeaderMsg)
	buf.Append(0, msg, StyleHeaderMsg)

	text, first, count, ok := spliceLines(e.fs, s)
	if !ok {
		return buf
	}
	digits := len(itoa(first + min(count, MaxHighlightLines) - 1))
	name := e.path(e.fs.Get(s.Span.File))
	pad := strings.Repeat(" ", digits+2)

	lines := strings.Split(text, "\n")
	row := 1
	for i, line := range lines {
		if i == MaxHighlightLines {
			buf.Append(row, "...", NoStyle)
			break
		}
		buf.Append(row, name, StyleFileName)
		buf.Append(row, pad+sourceText(line), NoStyle)
		row++
	}
	return buf
}
