package diagfmt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"trans/internal/diag"
	"trans/internal/source"
	"trans/internal/testkit"
)

func emitString(t *testing.T, fs *source.FileSet, opts Options, d diag.Diagnostic) string {
	t.Helper()
	if err := testkit.CheckSpanInvariants(fs, &d); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	var buf bytes.Buffer
	if err := NewEmitter(&buf, fs, opts).Emit(&d); err != nil {
		t.Fatalf("emit: %v", err)
	}
	return buf.String()
}

func lines(s ...string) string { return strings.Join(s, "\n") + "\n" }

func mismatch(fs *source.FileSet) diag.Diagnostic {
	id := fs.AddVirtual("main.tr", []byte("abc = 1 + def;\n"))
	return diag.New(diag.SevError, diag.Code(308), span(id, 0, 3), "mismatched types").
		WithLabel(span(id, 0, 3), "expected `int`").
		WithLabel(span(id, 10, 13), "found here")
}

func TestEmitPrimaryAndSecondaryLabels(t *testing.T) {
	fs := source.NewFileSet()
	got := emitString(t, fs, Options{Color: ColorNever}, mismatch(fs))
	want := lines(
		"error[E0308]: mismatched types",
		" --> main.tr:1:1",
		"  |",
		"1 | abc = 1 + def;",
		"  | ^^^       --- found here",
		"  | |",
		"  | expected `int`",
		"",
	)
	if got != want {
		t.Fatalf("output mismatch:\n--- got ---\n%s--- want ---\n%s", got, want)
	}
}

func TestEmitStacksOverlappingLabels(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("f.tr", []byte("fn foo(x: u32) {\n"))
	d := diag.New(diag.SevWarning, diag.UnknownCode, span(id, 0, 14), "overlap").
		WithLabel(span(id, 0, 14), "fn_span").
		WithLabel(span(id, 7, 8), "x_span")
	got := emitString(t, fs, Options{}, d)
	want := lines(
		"warning: overlap",
		" --> f.tr:1:1",
		"  |",
		"1 | fn foo(x: u32) {",
		"  | ^^^^^^^-^^^^^^",
		"  | |      |",
		"  | |      x_span",
		"  | fn_span",
		"",
	)
	if got != want {
		t.Fatalf("output mismatch:\n--- got ---\n%s--- want ---\n%s", got, want)
	}
}

func TestEmitGapsAndSecondaryFiles(t *testing.T) {
	fs := source.NewFileSet()
	a := fs.AddVirtual("a.tr", []byte("one\ntwo\nthree\nfour\nfive\nsix\nseven\n"))
	b := fs.AddVirtual("b.tr", []byte("fn b() {}\n"))
	d := diag.New(diag.SevError, diag.UnknownCode, span(a, 0, 3), "gaps").
		WithLabel(span(b, 3, 4), "defined here").
		WithLabel(span(a, 8, 13), "here").
		WithLabel(span(a, 28, 33), "there")

	got := emitString(t, fs, Options{}, d)
	want := lines(
		"error: gaps",
		" --> a.tr:1:1",
		"  |",
		"1 | one",
		"  | ^^^",
		"2 | two",
		"3 | three",
		"  | ----- here",
		"...",
		"7 | seven",
		"  | ----- there",
		"  |",
		" ::: b.tr",
		"  |",
		"1 | fn b() {}",
		"  |    - defined here",
		"",
	)
	if got != want {
		t.Fatalf("output mismatch:\n--- got ---\n%s--- want ---\n%s", got, want)
	}
}

func TestEmitChildrenAndSuggestion(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("s.tr", []byte("let x = foo();\n"))
	d := diag.New(diag.SevError, diag.Code(425), span(id, 8, 11), "unresolved name `foo`").
		WithNote("names must be declared").
		WithSuggestion("did you mean `bar`?", span(id, 8, 11), "bar")

	got := emitString(t, fs, Options{}, d)
	want := lines(
		"error[E0425]: unresolved name `foo`",
		" --> s.tr:1:9",
		"  |",
		"1 | let x = foo();",
		"  |         ^^^",
		"  |",
		"  = note: names must be declared",
		"help: did you mean `bar`?",
		"1 | let x = bar();",
		"",
	)
	if got != want {
		t.Fatalf("output mismatch:\n--- got ---\n%s--- want ---\n%s", got, want)
	}
}

func TestSuggestionIsCapped(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("s.tr", []byte("let x = foo();\n"))
	d := diag.New(diag.SevError, diag.UnknownCode, span(id, 8, 11), "long").
		WithSuggestion("expand", span(id, 8, 11), "a\nb\nc\nd\ne\nf\ng\nh")

	got := emitString(t, fs, Options{}, d)
	for _, want := range []string{"1 | let x = a\n", "6 | f\n...\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "| g") || strings.Contains(got, "h();") {
		t.Errorf("lines past the cap must be elided:\n%s", got)
	}
}

func TestEmitWithoutLocation(t *testing.T) {
	fs := source.NewFileSet()
	d := diag.New(diag.SevError, diag.LowMissingDefinition, source.NoSpan, "no location")
	got := emitString(t, fs, Options{}, d)
	if want := "error[L0001]: no location\n\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEmitOldSchool(t *testing.T) {
	fs := source.NewFileSet()
	reg := diag.NewRegistry()
	reg.Register(diag.Code(308), "Expected and found types differ.")
	d := mismatch(fs).WithNote("check the types")

	got := emitString(t, fs, Options{Format: FormatOld, Registry: reg}, d)
	want := lines(
		"main.tr:1:1: 1:4 error: mismatched types [E0308]",
		"main.tr:1 abc = 1 + def;",
		"          ^~~       ^~~",
		"main.tr:1:1: 1:4 help: run `transc explain E0308` to see a detailed explanation",
		"main.tr:1:1: 1:4 note: check the types",
		"",
	)
	if got != want {
		t.Fatalf("output mismatch:\n--- got ---\n%s--- want ---\n%s", got, want)
	}
}

func TestOldSchoolSeparatesDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	d := mismatch(fs)
	var buf bytes.Buffer
	e := NewEmitter(&buf, fs, Options{Format: FormatOld})
	if err := e.EmitAll([]diag.Diagnostic{d, d}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	got := buf.String()
	if n := strings.Count(got, "\n\nmain.tr:1:1: 1:4 error"); n != 1 {
		t.Errorf("expected a blank line between diagnostics, got:\n%s", got)
	}
	if !strings.HasSuffix(got, "^~~\n\n") {
		t.Errorf("each diagnostic must end with a blank line, got %q", got)
	}
}

func TestOldSchoolSuggestionPrefixesFileName(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("s.tr", []byte("let x = foo();\n"))
	d := diag.New(diag.SevError, diag.UnknownCode, span(id, 8, 11), "unresolved").
		WithSuggestion("try", span(id, 8, 11), "bar")

	got := emitString(t, fs, Options{Format: FormatOld}, d)
	if !strings.Contains(got, "s.tr:1:9: 1:12 help: try\ns.tr   let x = bar();\n") {
		t.Fatalf("unexpected suggestion rendering:\n%s", got)
	}
}

func TestEnvironmentSelectsFormat(t *testing.T) {
	fs := source.NewFileSet()
	d := mismatch(fs)

	t.Setenv(ErrorFormatEnv, "old")
	if got := emitString(t, fs, Options{Format: FormatEnv}, d); !strings.HasPrefix(got, "main.tr:1:1: 1:4 error") {
		t.Errorf("old format expected, got:\n%s", got)
	}
	t.Setenv(ErrorFormatEnv, "")
	if got := emitString(t, fs, Options{Format: FormatEnv}, d); !strings.HasPrefix(got, "error[E0308]") {
		t.Errorf("new format expected, got:\n%s", got)
	}
}

func TestColorOnlyWhenRequested(t *testing.T) {
	fs := source.NewFileSet()
	d := mismatch(fs)
	if got := emitString(t, fs, Options{Color: ColorAuto}, d); strings.Contains(got, "\x1b[") {
		t.Fatalf("a buffer is not a terminal, got escapes:\n%q", got)
	}
	got := emitString(t, fs, Options{Color: ColorAlways}, d)
	if !strings.Contains(got, "\x1b[1;91merror[E0308]") {
		t.Fatalf("expected a red bold level tag, got:\n%q", got)
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestWriteErrorsAreReturned(t *testing.T) {
	fs := source.NewFileSet()
	d := mismatch(fs)
	broken := errors.New("pipe closed")
	err := NewEmitter(failingWriter{broken}, fs, Options{}).Emit(&d)
	if !errors.Is(err, broken) {
		t.Fatalf("expected wrapped write error, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed to emit error") {
		t.Errorf("unexpected message %q", err)
	}
}
