package diagfmt

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// StyledString is a run of text sharing one style.
type StyledString struct {
	Text  string
	Style Style
}

type cell struct {
	text  string
	style Style
	// wide marks the second column of a double-width character.
	wide bool
}

// StyledBuffer is a grid of styled cells addressed by row and display
// column. Rows and columns grow on demand; gaps are filled with spaces.
type StyledBuffer struct {
	rows [][]cell
}

// NumLines returns the number of rows written so far.
func (sb *StyledBuffer) NumLines() int { return len(sb.rows) }

func (sb *StyledBuffer) ensure(line, col int) {
	for len(sb.rows) <= line {
		sb.rows = append(sb.rows, nil)
	}
	row := sb.rows[line]
	for len(row) < col {
		row = append(row, cell{text: " "})
	}
	sb.rows[line] = row
}

// Putc writes one character at (line, col) and returns the number of
// columns it occupies.
func (sb *StyledBuffer) Putc(line, col int, r rune, style Style) int {
	w := runewidth.RuneWidth(r)
	if w == 0 {
		// combining mark: attach to the previous cell
		if col > 0 && line < len(sb.rows) && col <= len(sb.rows[line]) {
			prev := &sb.rows[line][col-1]
			if prev.wide && col > 1 {
				prev = &sb.rows[line][col-2]
			}
			prev.text += string(r)
			return 0
		}
		w = 1
	}
	sb.ensure(line, col+w)
	row := sb.rows[line]
	// overwriting half of a wide character blanks the other half
	if row[col].wide && col > 0 {
		row[col-1] = cell{text: " ", style: row[col-1].style}
	}
	if end := col + w; end < len(row) && row[end].wide {
		row[end] = cell{text: " ", style: row[end].style}
	}
	row[col] = cell{text: string(r), style: style}
	if w == 2 {
		row[col+1] = cell{style: style, wide: true}
	}
	return w
}

// Puts writes s starting at (line, col).
func (sb *StyledBuffer) Puts(line, col int, s string, style Style) {
	sb.ensure(line, col)
	for _, r := range s {
		col += sb.Putc(line, col, r, style)
	}
}

// SetStyle restyles the cell at (line, col) if it exists.
func (sb *StyledBuffer) SetStyle(line, col int, style Style) {
	if line >= len(sb.rows) || col >= len(sb.rows[line]) {
		return
	}
	sb.rows[line][col].style = style
	if col+1 < len(sb.rows[line]) && sb.rows[line][col+1].wide {
		sb.rows[line][col+1].style = style
	}
}

// Prepend shifts row line right by the width of s and writes s at the
// start.
func (sb *StyledBuffer) Prepend(line int, s string, style Style) {
	sb.ensure(line, 0)
	shift := runewidth.StringWidth(s)
	old := sb.rows[line]
	sb.rows[line] = make([]cell, shift, shift+len(old))
	for i := range sb.rows[line] {
		sb.rows[line][i] = cell{text: " "}
	}
	sb.rows[line] = append(sb.rows[line], old...)
	sb.Puts(line, 0, s, style)
}

// Append writes s after the last cell of row line.
func (sb *StyledBuffer) Append(line int, s string, style Style) {
	if line >= len(sb.rows) {
		sb.Puts(line, 0, s, style)
		return
	}
	sb.Puts(line, len(sb.rows[line]), s, style)
}

// Render groups each row into runs of equal style. Trailing blanks are
// dropped.
func (sb *StyledBuffer) Render() [][]StyledString {
	out := make([][]StyledString, 0, len(sb.rows))
	for _, row := range sb.rows {
		end := len(row)
		for end > 0 && row[end-1].text == " " {
			end--
		}
		var parts []StyledString
		var text strings.Builder
		cur := NoStyle
		flush := func() {
			if text.Len() > 0 {
				parts = append(parts, StyledString{Text: text.String(), Style: cur})
				text.Reset()
			}
		}
		for _, c := range row[:end] {
			if c.wide {
				continue
			}
			if c.style != cur {
				flush()
				cur = c.style
			}
			text.WriteString(c.text)
		}
		flush()
		out = append(out, parts)
	}
	return out
}

// String renders the buffer without styles.
func (sb *StyledBuffer) String() string {
	var b strings.Builder
	for _, line := range sb.Render() {
		for _, part := range line {
			b.WriteString(part.Text)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
