package chunker

import (
	"sort"
	"strings"
)

// Ensure DocumentLocator implements the interface.
var _ Locator = (*DocumentLocator)(nil)

// DocumentLocator maps character offsets in extracted text to page
// numbers and section titles. Pages come from converter-reported page
// break offsets; sections from markdown headings in the text itself.
type DocumentLocator struct {
	pageStarts []int // offset where each page begins; nil when unknown
	sections   []sectionMark
}

type sectionMark struct {
	offset int
	title  string
}

// NewDocumentLocator builds a locator for text. pageBreaks holds the
// offsets where each page after the first begins; nil means the
// converter had no page information and pages stay unknown.
func NewDocumentLocator(text string, pageBreaks []int) *DocumentLocator {
	loc := &DocumentLocator{
		sections: scanHeadings(text),
	}

	if pageBreaks != nil {
		starts := make([]int, 0, len(pageBreaks)+1)
		starts = append(starts, 0)
		starts = append(starts, pageBreaks...)
		sort.Ints(starts)
		loc.pageStarts = starts
	}

	return loc
}

// PageAt returns the 1-based page containing offset.
func (l *DocumentLocator) PageAt(offset int) (int, bool) {
	if l.pageStarts == nil || offset < 0 {
		return 0, false
	}
	// Greatest page start <= offset.
	idx := sort.SearchInts(l.pageStarts, offset+1) - 1
	if idx < 0 {
		return 0, false
	}
	return idx + 1, true
}

// SectionAt returns the title of the nearest heading at or before offset.
func (l *DocumentLocator) SectionAt(offset int) (string, bool) {
	if len(l.sections) == 0 || offset < 0 {
		return "", false
	}
	idx := sort.Search(len(l.sections), func(i int) bool {
		return l.sections[i].offset > offset
	}) - 1
	if idx < 0 {
		return "", false
	}
	return l.sections[idx].title, true
}

// scanHeadings records the offset and title of each markdown heading.
func scanHeadings(text string) []sectionMark {
	var marks []sectionMark

	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimLeft(line, "#")
		if hashes := len(line) - len(trimmed); hashes >= 1 && hashes <= 6 && strings.HasPrefix(trimmed, " ") {
			title := strings.TrimSpace(trimmed)
			if title != "" {
				marks = append(marks, sectionMark{offset: offset, title: title})
			}
		}
		offset += len(line)
	}

	return marks
}
