package trace

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeFunction, false},
		{LevelDetail, ScopeFunction, true},
		{LevelDetail, ScopeNode, false},
		{LevelDebug, ScopeNode, true},
		{LevelError, ScopeDriver, false},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestStreamTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)
	span := Begin(tr, ScopeFunction, "main", 0)
	Point(tr, ScopeNode, "hidden", span.ID(), "")
	span.SetInt("blocks", 3).Set("allocas", "1").End("ok")
	if err := tr.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"[function] → main", "← main (ok) ", "{blocks=3, allocas=1}"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("node events must be filtered at detail level:\n%s", out)
	}
}

func TestNDJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Point(tr, ScopeNode, "id::h1", 0, "fn")
	if err := tr.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !strings.Contains(buf.String(), `"kind":"point","scope":"node"`) {
		t.Fatalf("unexpected json: %s", buf.String())
	}
}

func TestRingKeepsLastEvents(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopeNode, name, 0, "")
	}
	events := r.Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("unexpected ring contents: %+v", events)
	}
	if r.Dropped() != 1 {
		t.Errorf("expected one dropped event, got %d", r.Dropped())
	}
	var dump bytes.Buffer
	if err := r.Dump(&dump, FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.HasPrefix(dump.String(), "... 1 earlier events dropped\n") {
		t.Errorf("dump should start with the drop count:\n%s", dump.String())
	}
	multi := NewMultiTracer(LevelDebug, Nop, r)
	if got, ok := RingOf(multi); !ok || got != r {
		t.Fatalf("RingOf must find the ring behind a multi tracer")
	}
}

func TestContextDefaultsToNop(t *testing.T) {
	if FromContext(context.Background()).Enabled() {
		t.Fatalf("missing tracer must be a nop")
	}
	r := NewRingTracer(4, LevelPhase)
	ctx := WithTracer(context.Background(), r)
	if FromContext(ctx) != Tracer(r) {
		t.Fatalf("tracer not propagated through context")
	}
}

func TestStartNestsSpans(t *testing.T) {
	r := NewRingTracer(16, LevelDetail)
	ctx := WithTracer(context.Background(), r)
	ctx, outer := Start(ctx, ScopePass, "roots")
	_, inner := Start(ctx, ScopeFunction, "main")
	if SpanID(ctx) != outer.ID() {
		t.Fatalf("context must carry the outer span")
	}
	if err := inner.EndErr(errors.New("boom")); err == nil {
		t.Fatalf("EndErr must pass the error through")
	}
	outer.End("")

	events := r.Snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %+v", events)
	}
	if events[1].ParentID != events[0].SpanID {
		t.Errorf("function span should be a child of the pass span: %+v", events)
	}
	if events[2].Kind != KindSpanEnd || events[2].Detail != "boom" {
		t.Errorf("unexpected end event %+v", events[2])
	}
}

func TestStartSkipsFilteredScopes(t *testing.T) {
	r := NewRingTracer(16, LevelPhase)
	ctx, outer := Start(WithTracer(context.Background(), r), ScopePass, "roots")
	inner, span := Start(ctx, ScopeFunction, "main")
	span.End("")
	if SpanID(inner) != outer.ID() {
		t.Fatalf("a filtered span must not become the parent")
	}
	outer.End("")
	if n := len(r.Snapshot()); n != 2 {
		t.Fatalf("expected only pass events, got %d", n)
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	if l, err := ParseLevel(" Detail "); err != nil || l != LevelDetail {
		t.Errorf("ParseLevel: %v %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil || !strings.Contains(err.Error(), "off|error|phase|detail|debug") {
		t.Errorf("expected the list of levels, got %v", err)
	}
	if f, err := ParseFormat("json"); err != nil || f != FormatNDJSON {
		t.Errorf("ParseFormat: %v %v", f, err)
	}
	if formatFor(FormatAuto, "out.jsonl") != FormatNDJSON || formatFor(FormatAuto, "-") != FormatText {
		t.Errorf("auto format should follow the file extension")
	}
}
