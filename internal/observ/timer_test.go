package observ

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestTimerConcurrentPhases(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.End(tm.Begin(PhaseLower), "")
		}()
	}
	wg.Wait()
	if got := len(tm.Report().Phases); got != 16 {
		t.Fatalf("expected 16 phases, got %d", got)
	}
}

func TestMeasureRecordsFailure(t *testing.T) {
	tm := NewTimer()
	boom := errors.New("boom")
	if err := tm.Measure(PhaseDecode, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Measure must return fn's error, got %v", err)
	}
	_ = tm.Measure(PhasePrint, func() error { return nil })

	summary := tm.Summary()
	for _, want := range []string{"decode", "// failed: boom", "print", "total"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}

	var nilTimer *Timer
	if err := nilTimer.Measure("x", func() error { return nil }); err != nil {
		t.Fatalf("nil timer: %v", err)
	}
}

func TestEmptyReport(t *testing.T) {
	if r := NewTimer().Report(); r.TotalMS != 0 || r.Phases != nil {
		t.Fatalf("empty timer should report nothing, got %+v", r)
	}
}
