package diag

import "trans/internal/source"

// SpanLabel is one annotated span of a MultiSpan.
type SpanLabel struct {
	Span      source.Span
	Label     string // пустая строка: без подписи
	IsPrimary bool
}

// MultiSpan groups primary spans with optional labelled spans. A span
// listed in Primary and also labelled is rendered once, with the label.
type MultiSpan struct {
	Primary []source.Span
	Labels  []SpanLabel
}

// NewMultiSpan returns a MultiSpan with a single primary span. The
// sentinel span yields an empty MultiSpan.
func NewMultiSpan(sp source.Span) MultiSpan {
	if sp.IsDummy() {
		return MultiSpan{}
	}
	return MultiSpan{Primary: []source.Span{sp}}
}

// IsEmpty reports whether no real span is present.
func (m MultiSpan) IsEmpty() bool {
	for _, sp := range m.Primary {
		if !sp.IsDummy() {
			return false
		}
	}
	for _, l := range m.Labels {
		if !l.Span.IsDummy() {
			return false
		}
	}
	return true
}

// PrimarySpan returns the first non-sentinel primary span.
func (m MultiSpan) PrimarySpan() (source.Span, bool) {
	for _, sp := range m.Primary {
		if !sp.IsDummy() {
			return sp, true
		}
	}
	return source.NoSpan, false
}

// PushLabel attaches a secondary label; a label on a primary span makes
// it the primary label.
func (m *MultiSpan) PushLabel(sp source.Span, label string) {
	m.Labels = append(m.Labels, SpanLabel{Span: sp, Label: label})
}

// SpanLabels returns every labelled span followed by unlabelled primary
// spans, flagging which ones are primary.
func (m MultiSpan) SpanLabels() []SpanLabel {
	isPrimary := func(sp source.Span) bool {
		for _, p := range m.Primary {
			if p == sp {
				return true
			}
		}
		return false
	}
	out := make([]SpanLabel, 0, len(m.Labels)+len(m.Primary))
	labelled := make(map[source.Span]bool, len(m.Labels))
	for _, l := range m.Labels {
		labelled[l.Span] = true
		out = append(out, SpanLabel{Span: l.Span, Label: l.Label, IsPrimary: isPrimary(l.Span)})
	}
	for _, sp := range m.Primary {
		if labelled[sp] {
			continue
		}
		out = append(out, SpanLabel{Span: sp, IsPrimary: true})
	}
	return out
}

// Suggestion proposes replacement text for a span.
type Suggestion struct {
	Span        source.Span
	Replacement string
}

// SubDiagnostic is a note, help or other child attached to a diagnostic.
type SubDiagnostic struct {
	Severity   Severity
	Message    string
	Span       MultiSpan
	Suggestion *Suggestion
}

// Diagnostic is a single report with optional children.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Span     MultiSpan
	Children []SubDiagnostic
}

// New builds a diagnostic with one primary span.
func New(sev Severity, code Code, sp source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Message: msg, Span: NewMultiSpan(sp)}
}

// WithLabel adds a labelled span to the diagnostic.
func (d Diagnostic) WithLabel(sp source.Span, label string) Diagnostic {
	d.Span.PushLabel(sp, label)
	return d
}

// WithNote appends a span-less note.
func (d Diagnostic) WithNote(msg string) Diagnostic {
	return d.withChild(SubDiagnostic{Severity: SevNote, Message: msg})
}

// WithSpanNote appends a note pointing at sp.
func (d Diagnostic) WithSpanNote(sp source.Span, msg string) Diagnostic {
	return d.withChild(SubDiagnostic{Severity: SevNote, Message: msg, Span: NewMultiSpan(sp)})
}

// WithHelp appends a span-less help message.
func (d Diagnostic) WithHelp(msg string) Diagnostic {
	return d.withChild(SubDiagnostic{Severity: SevHelp, Message: msg})
}

// WithSuggestion appends a help child that replaces sp with text.
func (d Diagnostic) WithSuggestion(msg string, sp source.Span, text string) Diagnostic {
	return d.withChild(SubDiagnostic{
		Severity:   SevHelp,
		Message:    msg,
		Suggestion: &Suggestion{Span: sp, Replacement: text},
	})
}

func (d Diagnostic) withChild(c SubDiagnostic) Diagnostic {
	children := make([]SubDiagnostic, len(d.Children), len(d.Children)+1)
	copy(children, d.Children)
	d.Children = append(children, c)
	return d
}

// IsError reports whether the diagnostic fails the run.
func (d Diagnostic) IsError() bool {
	return d.Severity >= SevError
}
