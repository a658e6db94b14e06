// Package chunker splits document text into overlapping fixed-size windows.
package chunker

import "iter"

const (
	DefaultSize    = 900
	DefaultOverlap = 180
)

// Windows yields overlapping windows of at most size runes, each starting
// max(1, size-overlap) runes after the previous one. The sequence ends with
// the first window that reaches the end of text, and can be ranged over
// any number of times.
func Windows(text string, size, overlap int) iter.Seq[string] {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	step := max(1, size-overlap)

	return func(yield func(string) bool) {
		runes := []rune(text)
		for start := 0; start < len(runes); start += step {
			end := min(start+size, len(runes))
			if !yield(string(runes[start:end])) {
				return
			}
			if end == len(runes) {
				return
			}
		}
	}
}

// Split collects Windows into a slice.
func Split(text string, size, overlap int) []string {
	var out []string
	for w := range Windows(text, size, overlap) {
		out = append(out, w)
	}
	return out
}
