package ui

import (
	"errors"
	"strings"
	"testing"

	"trans/internal/driver"
)

func TestProgressTracksRootsAndInstances(t *testing.T) {
	m := NewProgressModel("lowering demo", []string{"main", "answer"}, nil).(*progressModel)

	m.applyEvent(driver.Event{Func: "main", Stage: driver.StageLower, Status: driver.StatusWorking})
	m.applyEvent(driver.Event{Func: "main", Stage: driver.StageLower, Status: driver.StatusDone})
	m.applyEvent(driver.Event{Func: "answer", Stage: driver.StageLower, Status: driver.StatusDone})
	m.applyEvent(driver.Event{Func: "id$i32", Stage: driver.StageInstances, Status: driver.StatusQueued})
	// a repeated done event must not count twice
	m.applyEvent(driver.Event{Func: "main", Stage: driver.StageLower, Status: driver.StatusDone})

	if len(m.items) != 3 || m.finished != 2 {
		t.Fatalf("got %d items, %d finished", len(m.items), m.finished)
	}
	view := m.View()
	for _, want := range []string{"lowering demo 2/3", "main", "id$i32", "queued"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressMarksFailure(t *testing.T) {
	m := NewProgressModel("x", []string{"main"}, nil).(*progressModel)
	m.applyEvent(driver.Event{Func: "main", Stage: driver.StageLower, Status: driver.StatusError, Err: errors.New("boom")})
	m.done = true
	if view := m.View(); !strings.HasPrefix(stripANSI(view), "failed: x 1/1") {
		t.Fatalf("unexpected header:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 6, "abc..."},
		{"名前名前", 5, "名..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
