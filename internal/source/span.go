package source

import (
	"fmt"
)

// Span is a half-open byte range [Start, End) inside one file.
type Span struct {
	File  FileID
	Start uint32 // в байтах включительно
	End   uint32 // в байтах не включительно
}

// NoSpan is the "no location" sentinel. Diagnostics carrying it render
// without a source snippet.
var NoSpan = Span{File: NoFileID}

// IsDummy reports whether the span is the sentinel value.
func (s Span) IsDummy() bool {
	return s.File == NoFileID
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	if s.IsDummy() {
		return "<no-span>"
	}
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover returns the smallest span enclosing both spans. Spans from
// different files are not merged.
func (s Span) Cover(other Span) Span {
	if s.IsDummy() {
		return other
	}
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}
