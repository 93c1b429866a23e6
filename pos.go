package physis

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// SourceRange is a byte-offset span within a single input file: a
// half-open interval [Start, End).
type SourceRange struct {
	Start int
	End   int
}

// NewSourceRange builds a SourceRange from a pair of byte offsets.
func NewSourceRange(start, end int) SourceRange {
	return SourceRange{Start: start, End: end}
}

func (r SourceRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d..%d", r.Start, r.End)
}

// Contains reports whether other lies entirely within r.
func (r SourceRange) Contains(other SourceRange) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// SourceLocation is a human-facing line/column location, the
// resolved form of a SourceRange's endpoint. Carried on every fatal
// TranslationError per spec §7.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// LineIndex converts byte cursor offsets to line/column locations. It
// stores the start byte offset of each line and binary searches line
// starts (O(log lines)) on lookup. Construction is O(n) over the
// input and is intended to be cached per file.
type LineIndex struct {
	file      string
	input     []byte
	lineStart []int
}

// NewLineIndex builds a LineIndex over input, tagging resolved
// locations with file.
func NewLineIndex(file string, input []byte) *LineIndex {
	lineStart := make([]int, 1, 64)
	lineStart[0] = 0
	for i, b := range input {
		if b == '\n' {
			lineStart = append(lineStart, i+1)
		}
	}
	return &LineIndex{file: file, input: input, lineStart: lineStart}
}

// Resolve returns the SourceLocation of r.Start.
func (li *LineIndex) Resolve(r SourceRange) SourceLocation {
	return li.LocationAt(r.Start)
}

func (li *LineIndex) LocationAt(cursor int) SourceLocation {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(li.input) {
		cursor = len(li.input)
	}

	lineIdx := sort.Search(len(li.lineStart), func(i int) bool {
		return li.lineStart[i] > cursor
	}) - 1
	if lineIdx < 0 {
		lineIdx = 0
	}

	lineStart := li.lineStart[lineIdx]
	col := utf8.RuneCount(li.input[lineStart:cursor]) + 1

	return SourceLocation{
		File:   li.file,
		Line:   lineIdx + 1,
		Column: col,
	}
}
