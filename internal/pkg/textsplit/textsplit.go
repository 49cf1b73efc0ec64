package textsplit

import "iter"

// Splitter cuts text into overlapping chunks of at most Size runes.
// When Separator is non-empty and an occurrence falls inside the tail of a
// window, the chunk ends at that occurrence instead of the hard boundary,
// so lines are kept whole where possible.
type Splitter struct {
	Size      int
	Overlap   int
	Separator string
}

// New returns a Splitter with sane bounds: Size must be positive and
// Overlap is clamped below Size.
func New(size, overlap int, separator string) Splitter {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return Splitter{Size: size, Overlap: overlap, Separator: separator}
}

// Split returns a lazy, restartable sequence of chunks. Empty input yields
// no chunks. Each chunk after the first starts Overlap runes before the end
// of its predecessor, so concatenating the chunks with the overlaps removed
// reproduces the input.
func (s Splitter) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		runes := []rune(text)
		sep := []rune(s.Separator)
		for start := 0; start < len(runes); {
			end := start + s.Size
			if end >= len(runes) {
				if !yield(string(runes[start:])) {
					return
				}
				return
			}
			if cut := s.separatorCut(runes, start, end, sep); cut > start {
				end = cut
			}
			if !yield(string(runes[start:end])) {
				return
			}
			next := end - s.Overlap
			if next <= start {
				next = start + 1
			}
			start = next
		}
	}
}

// Chunks is Split collected into a slice.
func (s Splitter) Chunks(text string) []string {
	var out []string
	for chunk := range s.Split(text) {
		out = append(out, chunk)
	}
	return out
}

// separatorCut looks for the last separator inside (start, end] and returns
// the index just past it, or start when there is none. Ending at the
// separator keeps the split on a line boundary.
func (s Splitter) separatorCut(runes []rune, start, end int, sep []rune) int {
	if len(sep) == 0 {
		return start
	}
	for i := end - len(sep); i > start; i-- {
		if matchAt(runes, i, sep) {
			return i + len(sep)
		}
	}
	return start
}

func matchAt(runes []rune, at int, sep []rune) bool {
	if at+len(sep) > len(runes) {
		return false
	}
	for j := range sep {
		if runes[at+j] != sep[j] {
			return false
		}
	}
	return true
}
