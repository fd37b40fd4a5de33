package diagfmt

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"trans/internal/diag"
	"trans/internal/source"
	"trans/internal/testkit"
)

func span(f source.FileID, start, end uint32) source.Span {
	return source.Span{File: f, Start: start, End: end}
}

func TestLayoutWidensEmptySpan(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("a.tr", []byte("let x = 1;\n"))
	d := diag.New(diag.SevError, diag.UnknownCode, span(id, 4, 4), "empty")
	if err := testkit.CheckSpanInvariants(fs, &d); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	files := Layout(fs, d.Span)
	if len(files) != 1 || len(files[0].Lines) != 1 {
		t.Fatalf("unexpected layout %+v", files)
	}
	a := files[0].Lines[0].Annotations[0]
	if a.StartCol != 4 || a.EndCol != 5 {
		t.Fatalf("empty span should cover one column, got [%d,%d)", a.StartCol, a.EndCol)
	}
	if a.IsMinimized {
		t.Errorf("a single-line span is not minimized")
	}
}

func TestLayoutMinimizesMultiLineSpan(t *testing.T) {
	fs := source.NewFileSet()
	src := "l1\nl2\nl3\nl4\n  start {\nl6\nl7\n} end\nl9\n"
	id := fs.AddVirtual("m.tr", []byte(src))
	// from "start" on line 5 to "end" on line 8
	d := diag.New(diag.SevError, diag.UnknownCode, span(id, 14, 33), "multi")
	if err := testkit.CheckSpanInvariants(fs, &d); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	files := Layout(fs, d.Span)
	want := []Line{{LineIndex: 5, Annotations: []Annotation{{StartCol: 2, EndCol: 3, IsPrimary: true, IsMinimized: true}}}}
	if diff := cmp.Diff(want, files[0].Lines); diff != "" {
		t.Fatalf("layout mismatch (-want +got):\n%s", diff)
	}
}

func TestOverlapsIsSymmetric(t *testing.T) {
	anns := []Annotation{
		{StartCol: 0, EndCol: 3},
		{StartCol: 3, EndCol: 5},
		{StartCol: 2, EndCol: 4},
		{StartCol: 0, EndCol: 14},
		{StartCol: 7, EndCol: 8},
		{StartCol: 20, EndCol: 21},
	}
	for _, a := range anns {
		for _, b := range anns {
			if Overlaps(a, b) != Overlaps(b, a) {
				t.Errorf("Overlaps(%v, %v) is not symmetric", a, b)
			}
		}
	}
	tests := []struct {
		name string
		a, b Annotation
		want bool
	}{
		{"adjacent", anns[0], anns[1], false},
		{"crossing", anns[0], anns[2], true},
		{"nested", anns[3], anns[4], true},
		{"disjoint", anns[3], anns[5], false},
		{"same", anns[4], anns[4], true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLayoutGroupsByFileAndLine(t *testing.T) {
	fs := source.NewFileSet()
	a := fs.AddVirtual("a.tr", []byte("one\ntwo\nthree\n"))
	b := fs.AddVirtual("b.tr", []byte("fn b() {}\n"))

	msp := diag.MultiSpan{Primary: []source.Span{span(b, 3, 4)}}
	msp.PushLabel(span(a, 8, 13), "third")
	msp.PushLabel(span(a, 0, 3), "first")
	msp.PushLabel(span(a, 1, 2), "")
	msp.PushLabel(source.NoSpan, "ignored")

	files := Layout(fs, msp)
	if len(files) != 2 || files[0].File.ID != a {
		t.Fatalf("files should come in first-seen order, got %d files", len(files))
	}
	var lines []int
	for _, l := range files[0].Lines {
		lines = append(lines, l.LineIndex)
	}
	if diff := cmp.Diff([]int{1, 3}, lines); diff != "" {
		t.Fatalf("lines not sorted (-want +got):\n%s", diff)
	}
	if n := len(files[0].Lines[0].Annotations); n != 2 {
		t.Fatalf("line 1 should collect both annotations, got %d", n)
	}

	files = OrderPrimaryFirst(files, b)
	if files[0].File.ID != b || files[1].File.ID != a {
		t.Fatalf("primary file must come first")
	}
}

func TestLayoutMeasuresDisplayColumns(t *testing.T) {
	fs := source.NewFileSet()
	src := "let 名前 = 1;\n\tx\n"
	id := fs.AddVirtual("w.tr", []byte(src))

	msp := diag.NewMultiSpan(span(id, 4, 10))
	msp.PushLabel(span(id, 17, 18), "tabbed")
	files := Layout(fs, msp)

	got := map[int]Annotation{}
	for _, l := range files[0].Lines {
		got[l.LineIndex] = l.Annotations[0]
	}
	if a := got[1]; a.StartCol != 4 || a.EndCol != 8 {
		t.Errorf("wide characters: got [%d,%d), want [4,8)", a.StartCol, a.EndCol)
	}
	if a := got[2]; a.StartCol != tabWidth || a.EndCol != tabWidth+1 {
		t.Errorf("tab: got [%d,%d), want [%d,%d)", a.StartCol, a.EndCol, tabWidth, tabWidth+1)
	}
}

func TestStyledBufferCells(t *testing.T) {
	var sb StyledBuffer
	sb.Puts(0, 2, "名x", StyleQuotation)
	sb.Prepend(0, ">", StyleLineNumber)
	sb.Append(0, "   ", NoStyle)
	sb.Putc(2, 1, '|', StyleLineNumber)

	if got, want := sb.String(), ">  名x\n\n |\n"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	want := []StyledString{
		{Text: ">", Style: StyleLineNumber},
		{Text: "  ", Style: NoStyle},
		{Text: "名x", Style: StyleQuotation},
	}
	if diff := cmp.Diff(want, sb.Render()[0]); diff != "" {
		t.Fatalf("render mismatch (-want +got):\n%s", diff)
	}

	// writing over half of a wide character blanks it
	sb.Putc(0, 4, '-', NoStyle)
	if got, want := sb.String(), ">   -x\n\n |\n"; got != want {
		t.Fatalf("after overwrite String() = %q, want %q", got, want)
	}
}
