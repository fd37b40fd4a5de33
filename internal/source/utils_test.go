package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestToLineColEmptyIndex(t *testing.T) {
	if got := toLineCol(nil, 5); got != (LineCol{Line: 1, Col: 6}) {
		t.Fatalf("toLineCol(nil, 5) = %+v", got)
	}
}

func TestToLineColNewlineBelongsToItsLine(t *testing.T) {
	idx := buildLineIndex([]byte("ab\ncd\n"))
	if got := toLineCol(idx, 2); got != (LineCol{Line: 1, Col: 3}) {
		t.Fatalf("newline offset = %+v, want 1:3", got)
	}
	if got := toLineCol(idx, 3); got != (LineCol{Line: 2, Col: 1}) {
		t.Fatalf("offset after newline = %+v, want 2:1", got)
	}
}

func TestNormalizeCRLFKeepsLoneCR(t *testing.T) {
	out, changed := normalizeCRLF([]byte("a\rb\r\nc"))
	if !changed || string(out) != "a\rb\nc" {
		t.Fatalf("normalizeCRLF = %q, %v", out, changed)
	}
}

func TestRelativePathOutsideBaseFallsBackToAbsolute(t *testing.T) {
	tmp := t.TempDir()
	baseDir := filepath.Join(tmp, "base")
	otherDir := filepath.Join(tmp, "other")
	for _, d := range []string{baseDir, otherDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	target := filepath.Join(otherDir, "file.tr")
	got, err := RelativePath(target, baseDir)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}
	if want := normalizePath(target); got != want {
		t.Fatalf("expected absolute fallback %q, got %q", want, got)
	}
}

func TestRelativePathInsideBaseStaysRelative(t *testing.T) {
	baseDir := t.TempDir()
	target := filepath.Join(baseDir, "nested", "file.tr")

	got, err := RelativePath(target, baseDir)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}
	if want := "nested/file.tr"; got != want {
		t.Fatalf("expected relative path %q, got %q", want, got)
	}
}
