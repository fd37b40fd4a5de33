package diag

import "trans/internal/source"

// Reporter receives diagnostics.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter adapts a Bag to the Reporter interface.
type BagReporter struct {
	Bag *Bag
}

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag != nil {
		r.Bag.Add(d)
	}
}

// DedupReporter drops diagnostics already reported with the same key.
type DedupReporter struct {
	Next Reporter
	seen map[string]struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{Next: next, seen: make(map[string]struct{})}
}

func (r *DedupReporter) Report(d Diagnostic) {
	if r == nil || r.Next == nil {
		return
	}
	key := dedupKey(d)
	if _, ok := r.seen[key]; ok {
		return
	}
	r.seen[key] = struct{}{}
	r.Next.Report(d)
}

// ReportBuilder accumulates a diagnostic before it is emitted.
type ReportBuilder struct {
	reporter Reporter
	diag     Diagnostic
	emitted  bool
}

// ReportError starts an error report.
func ReportError(r Reporter, code Code, sp source.Span, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevError, code, sp, msg)
}

// ReportWarning starts a warning report.
func ReportWarning(r Reporter, code Code, sp source.Span, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevWarning, code, sp, msg)
}

func NewReportBuilder(r Reporter, sev Severity, code Code, sp source.Span, msg string) *ReportBuilder {
	if r == nil {
		return nil
	}
	return &ReportBuilder{reporter: r, diag: New(sev, code, sp, msg)}
}

func (b *ReportBuilder) WithLabel(sp source.Span, label string) *ReportBuilder {
	if b != nil {
		b.diag = b.diag.WithLabel(sp, label)
	}
	return b
}

func (b *ReportBuilder) WithNote(sp source.Span, msg string) *ReportBuilder {
	if b == nil {
		return nil
	}
	if sp.IsDummy() {
		b.diag = b.diag.WithNote(msg)
	} else {
		b.diag = b.diag.WithSpanNote(sp, msg)
	}
	return b
}

func (b *ReportBuilder) WithHelp(msg string) *ReportBuilder {
	if b != nil {
		b.diag = b.diag.WithHelp(msg)
	}
	return b
}

func (b *ReportBuilder) WithSuggestion(msg string, sp source.Span, text string) *ReportBuilder {
	if b != nil {
		b.diag = b.diag.WithSuggestion(msg, sp, text)
	}
	return b
}

// Diagnostic returns the accumulated diagnostic without emitting it.
func (b *ReportBuilder) Diagnostic() Diagnostic {
	if b == nil {
		return Diagnostic{}
	}
	return b.diag
}

// Emit sends the diagnostic once; later calls are no-ops.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	b.emitted = true
	b.reporter.Report(b.diag)
}
