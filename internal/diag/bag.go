package diag

import (
	"fmt"
	"slices"
	"sort"
)

// Bag collects diagnostics up to a limit.
type Bag struct {
	items []Diagnostic
	max   uint16
}

// NewBag creates a bag; max == 0 means no limit.
func NewBag(max uint16) *Bag {
	return &Bag{items: make([]Diagnostic, 0), max: max}
}

// Add appends d and reports whether it was kept.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max != 0 && len(b.items) >= int(b.max) {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// HasErrors проверяет, есть ли ошибки уровня SevError и выше.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Len возвращает количество диагностик.
func (b *Bag) Len() int {
	return len(b.items)
}

// Items возвращает копию диагностик.
func (b *Bag) Items() []Diagnostic {
	return slices.Clone(b.items)
}

// Merge добавляет диагностики другого мешка с учётом лимита.
func (b *Bag) Merge(other *Bag) {
	for _, d := range other.items {
		if !b.Add(d) {
			return
		}
	}
}

// Sort orders diagnostics by primary file, start, end, then severity
// (most severe first) and code.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		si, _ := di.Span.PrimarySpan()
		sj, _ := dj.Span.PrimarySpan()
		if si.File != sj.File {
			return si.File < sj.File
		}
		if si.Start != sj.Start {
			return si.Start < sj.Start
		}
		if si.End != sj.End {
			return si.End < sj.End
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}

// Dedup убирает дубликаты с тем же кодом, основным спаном и сообщением.
// Предполагается, что Sort уже вызван.
func (b *Bag) Dedup() {
	if len(b.items) < 2 {
		return
	}
	seen := make(map[string]struct{}, len(b.items))
	out := b.items[:0]
	for _, d := range b.items {
		key := dedupKey(d)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	b.items = out
}

func dedupKey(d Diagnostic) string {
	sp, _ := d.Span.PrimarySpan()
	return fmt.Sprintf("%d|%s|%s", d.Code, sp, d.Message)
}
