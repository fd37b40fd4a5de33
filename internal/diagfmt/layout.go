package diagfmt

import (
	"cmp"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"

	"trans/internal/diag"
	"trans/internal/source"
)

// Annotation is one highlighted column range on a source line. Columns
// are 0-based display columns, End exclusive.
type Annotation struct {
	StartCol    int
	EndCol      int
	IsPrimary   bool
	IsMinimized bool
	Label       string // пустая строка: без подписи
}

// Line is one source line (1-based) with the annotations touching it.
type Line struct {
	LineIndex   int
	Annotations []Annotation
}

// FileWithAnnotatedLines groups annotated lines of one file, sorted by
// line index.
type FileWithAnnotatedLines struct {
	File  *source.File
	Lines []Line
}

// Overlaps reports whether the start of either annotation falls inside
// the other's column range.
func Overlaps(a, b Annotation) bool {
	return (a.StartCol >= b.StartCol && a.StartCol < b.EndCol) ||
		(b.StartCol >= a.StartCol && b.StartCol < a.EndCol)
}

const tabWidth = 4

// sourceText prepares a source row for display: NFC-normalised with tabs
// expanded.
func sourceText(s string) string {
	return strings.ReplaceAll(norm.NFC.String(s), "\t", strings.Repeat(" ", tabWidth))
}

// displayCol converts a 1-based byte column of line into a 0-based
// display column.
func displayCol(line string, byteCol uint32) int {
	n := int(byteCol) - 1
	if n <= 0 {
		return 0
	}
	if n > len(line) {
		// past the end of the row, e.g. pointing at the newline
		return runewidth.StringWidth(sourceText(line)) + n - len(line)
	}
	return runewidth.StringWidth(sourceText(line[:n]))
}

// Layout resolves the spans of msp and groups the resulting annotations
// by file and line. Sentinel spans and spans of unknown files are
// skipped. A span covering several lines is reduced to one column at its
// start; an empty span is widened to one column.
func Layout(fs *source.FileSet, msp diag.MultiSpan) []FileWithAnnotatedLines {
	var out []FileWithAnnotatedLines
	if fs == nil {
		return out
	}
	for _, sl := range msp.SpanLabels() {
		if sl.Span.IsDummy() {
			continue
		}
		f := fs.Get(sl.Span.File)
		if f == nil {
			continue
		}
		lo, hi := fs.Resolve(sl.Span)
		row, _ := f.GetLine(lo.Line)
		start := displayCol(row, lo.Col)
		var end int
		minimized := false
		if lo.Line != hi.Line {
			end = start + 1
			minimized = true
		} else {
			end = displayCol(row, hi.Col)
		}
		if end <= start {
			end = start + 1
		}
		out = addAnnotation(out, f, int(lo.Line), Annotation{
			StartCol:    start,
			EndCol:      end,
			IsPrimary:   sl.IsPrimary,
			IsMinimized: minimized,
			Label:       sl.Label,
		})
	}
	return out
}

func addAnnotation(files []FileWithAnnotatedLines, f *source.File, line int, ann Annotation) []FileWithAnnotatedLines {
	for i := range files {
		if files[i].File.ID != f.ID {
			continue
		}
		lines := files[i].Lines
		for j := range lines {
			if lines[j].LineIndex == line {
				lines[j].Annotations = append(lines[j].Annotations, ann)
				return files
			}
		}
		pos, _ := slices.BinarySearchFunc(lines, line, func(l Line, idx int) int {
			return cmp.Compare(l.LineIndex, idx)
		})
		files[i].Lines = slices.Insert(lines, pos, Line{LineIndex: line, Annotations: []Annotation{ann}})
		return files
	}
	return append(files, FileWithAnnotatedLines{
		File:  f,
		Lines: []Line{{LineIndex: line, Annotations: []Annotation{ann}}},
	})
}

// OrderPrimaryFirst moves the block of the primary file to the front,
// keeping the relative order of the others.
func OrderPrimaryFirst(files []FileWithAnnotatedLines, primary source.FileID) []FileWithAnnotatedLines {
	idx := slices.IndexFunc(files, func(f FileWithAnnotatedLines) bool { return f.File.ID == primary })
	if idx <= 0 {
		return files
	}
	first := files[idx]
	copy(files[1:idx+1], files[:idx])
	files[0] = first
	return files
}

// sortAnnotations orders a copy of anns by (start, end).
func sortAnnotations(anns []Annotation) []Annotation {
	out := slices.Clone(anns)
	slices.SortStableFunc(out, func(a, b Annotation) int {
		if c := cmp.Compare(a.StartCol, b.StartCol); c != 0 {
			return c
		}
		return cmp.Compare(a.EndCol, b.EndCol)
	})
	return out
}

// renderSourceLine writes line into buf: the source row, the highlight
// row beneath it and the label rows. widthOffset is the column where the
// source text starts.
func renderSourceLine(buf *StyledBuffer, f *source.File, line Line, widthOffset int) {
	row, _ := f.GetLine(safeLine(line.LineIndex))
	offset := buf.NumLines()

	buf.Puts(offset, widthOffset, sourceText(row), StyleQuotation)
	buf.Puts(offset, 0, itoa(line.LineIndex), StyleLineNumber)
	drawColSeparator(buf, offset, widthOffset-2)

	if len(line.Annotations) == 0 {
		return
	}
	anns := sortAnnotations(line.Annotations)

	for _, a := range anns {
		mark, style := '-', StyleUnderlineSecondary
		if a.IsPrimary {
			mark, style = '^', StyleUnderlinePrimary
		}
		for p := a.StartCol; p < a.EndCol; p++ {
			buf.Putc(offset+1, widthOffset+p, mark, style)
			if !a.IsMinimized {
				buf.SetStyle(offset, widthOffset+p, style)
			}
		}
	}
	drawColSeparator(buf, offset+1, widthOffset-2)

	var labeled, unlabeled []Annotation
	for _, a := range anns {
		if a.Label != "" {
			labeled = append(labeled, a)
		} else {
			unlabeled = append(unlabeled, a)
		}
	}
	if len(labeled) == 0 {
		return
	}

	// the rightmost label goes on the highlight row unless something
	// else overlaps it
	last, previous := labeled[len(labeled)-1], labeled[:len(labeled)-1]
	inline := true
	for _, a := range slices.Concat(previous, unlabeled) {
		if Overlaps(a, last) {
			inline = false
			break
		}
	}
	if inline {
		buf.Append(offset+1, " "+last.Label, labelStyle(last))
		labeled = previous
	}

	for i, a := range labeled {
		comesAfter := len(labeled) - i - 1
		blank := 3 + comesAfter
		for r := 2; r < blank; r++ {
			buf.Putc(offset+r, widthOffset+a.StartCol, '|', underlineStyle(a))
			drawColSeparator(buf, offset+r, widthOffset-2)
		}
		buf.Puts(offset+blank, widthOffset+a.StartCol, a.Label, labelStyle(a))
		drawColSeparator(buf, offset+blank, widthOffset-2)
	}
}

func labelStyle(a Annotation) Style {
	if a.IsPrimary {
		return StyleLabelPrimary
	}
	return StyleLabelSecondary
}

func underlineStyle(a Annotation) Style {
	if a.IsPrimary {
		return StyleUnderlinePrimary
	}
	return StyleUnderlineSecondary
}

func drawColSeparator(buf *StyledBuffer, line, col int) {
	buf.Puts(line, col, "| ", StyleLineNumber)
}

func drawColSeparatorNoSpace(buf *StyledBuffer, line, col int) {
	buf.Puts(line, col, "|", StyleLineNumber)
}

func drawNoteSeparator(buf *StyledBuffer, line, col int) {
	buf.Puts(line, col, "= ", StyleLineNumber)
}
