package diag

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"trans/internal/source"
)

func TestCodeIDRoundTrip(t *testing.T) {
	tests := []struct {
		code Code
		id   string
	}{
		{Code(308), "E0308"},
		{LowMissingDefinition, "L0001"},
		{LowScopeDiscipline, "L0005"},
		{UnknownCode, ""},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.id {
			t.Errorf("ID(%d) = %q, want %q", tt.code, got, tt.id)
		}
		back, err := ParseCode(tt.id)
		if err != nil {
			t.Fatalf("ParseCode(%q): %v", tt.id, err)
		}
		if back != tt.code {
			t.Errorf("ParseCode(%q) = %d, want %d", tt.id, back, tt.code)
		}
	}
	for _, bad := range []string{"X1", "E", "E0000", "L9999", "Eabc"} {
		if _, err := ParseCode(bad); err == nil {
			t.Errorf("ParseCode(%q) should fail", bad)
		}
	}
}

func TestSeverityStrings(t *testing.T) {
	want := map[Severity]string{
		SevHelp:    "help",
		SevNote:    "note",
		SevWarning: "warning",
		SevError:   "error",
		SevFatal:   "error",
		SevBug:     "error: internal compiler error",
	}
	for sev, s := range want {
		if sev.String() != s {
			t.Errorf("%d.String() = %q, want %q", sev, sev.String(), s)
		}
	}
}

func TestSpanLabelsPutsLabelsFirst(t *testing.T) {
	a := source.Span{File: 0, Start: 1, End: 3}
	b := source.Span{File: 0, Start: 5, End: 6}
	c := source.Span{File: 0, Start: 8, End: 9}
	msp := MultiSpan{Primary: []source.Span{a, c}}
	msp.PushLabel(b, "secondary")
	msp.PushLabel(a, "primary")

	want := []SpanLabel{
		{Span: b, Label: "secondary"},
		{Span: a, Label: "primary", IsPrimary: true},
		{Span: c, IsPrimary: true},
	}
	if diff := cmp.Diff(want, msp.SpanLabels()); diff != "" {
		t.Fatalf("span labels mismatch (-want +got):\n%s", diff)
	}
}

func TestNewMultiSpanIgnoresSentinel(t *testing.T) {
	if !NewMultiSpan(source.NoSpan).IsEmpty() {
		t.Fatalf("sentinel span must produce an empty MultiSpan")
	}
	if _, ok := (MultiSpan{Primary: []source.Span{source.NoSpan}}).PrimarySpan(); ok {
		t.Fatalf("sentinel is not a primary span")
	}
}

func TestBuilderDoesNotAliasChildren(t *testing.T) {
	base := New(SevError, Code(1), source.NoSpan, "base").WithNote("one")
	a := base.WithNote("a")
	b := base.WithHelp("b")
	if a.Children[1].Message != "a" || b.Children[1].Message != "b" {
		t.Fatalf("children aliased: %v / %v", a.Children, b.Children)
	}
}

func TestBagLimitSortDedup(t *testing.T) {
	bag := NewBag(3)
	late := New(SevWarning, Code(2), source.Span{File: 0, Start: 9, End: 10}, "late")
	early := New(SevError, Code(1), source.Span{File: 0, Start: 1, End: 2}, "early")
	if !bag.Add(late) || !bag.Add(early) || !bag.Add(early) {
		t.Fatalf("bag rejected items under the limit")
	}
	if bag.Add(late) {
		t.Fatalf("bag accepted an item over the limit")
	}
	bag.Sort()
	bag.Dedup()
	items := bag.Items()
	if len(items) != 2 || items[0].Message != "early" || items[1].Message != "late" {
		t.Fatalf("unexpected bag contents: %+v", items)
	}
	if !bag.HasErrors() {
		t.Fatalf("bag holds an error")
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(0)
	r := NewDedupReporter(BagReporter{Bag: bag})
	sp := source.Span{File: 0, Start: 0, End: 1}
	b := ReportError(r, Code(5), sp, "boom").WithHelp("try again")
	b.Emit()
	b.Emit()
	ReportError(r, Code(5), sp, "boom").Emit()
	if bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %d", bag.Len())
	}
	if got := bag.Items()[0].Children[0].Severity; got != SevHelp {
		t.Fatalf("child severity = %v", got)
	}
	if ReportError(nil, Code(5), sp, "x") != nil {
		t.Fatalf("nil reporter must give a nil builder")
	}
}

func TestFormatShort(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("src/a.tr", []byte("fn main() {\n    let x = 1;\n}\n"))
	d := New(SevError, Code(308), source.Span{File: id, Start: 20, End: 21}, "mismatched types").
		WithNote("expected i32")
	var buf bytes.Buffer
	if err := FormatShort(&buf, fs, []Diagnostic{d}); err != nil {
		t.Fatalf("FormatShort: %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		"src/a.tr:2:9: error E0308: mismatched types\n",
		"<no-span>: note: expected i32\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestRegistryFind(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Find(LowMissingDefinition); !ok {
		t.Fatalf("lowering codes are preloaded")
	}
	if _, ok := r.Find(Code(308)); ok {
		t.Fatalf("E0308 is not registered yet")
	}
	r.Register(Code(308), "types differ")
	if text, ok := r.Find(Code(308)); !ok || text != "types differ" {
		t.Fatalf("Find after Register = %q, %v", text, ok)
	}
}
