package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindows_Empty(t *testing.T) {
	assert.Empty(t, Split("", 10, 2))
}

func TestWindows_ShortTextIsOneChunk(t *testing.T) {
	assert.Equal(t, []string{"hello"}, Split("hello", 10, 2))
}

func TestWindows_Overlap(t *testing.T) {
	got := Split("abcdefghij", 4, 2)
	assert.Equal(t, []string{"abcd", "cdef", "efgh", "ghij"}, got)
}

func TestWindows_FinalChunkMayBeShort(t *testing.T) {
	got := Split("abcdefg", 4, 1)
	assert.Equal(t, []string{"abcd", "defg"}, got)

	got = Split("abcdefgh", 4, 1)
	assert.Equal(t, []string{"abcd", "defg", "gh"}, got)
}

func TestWindows_OverlapNotSmallerThanSizeStillProgresses(t *testing.T) {
	got := Split("abcd", 2, 5)
	assert.Equal(t, []string{"ab", "bc", "cd"}, got)
}

func TestWindows_Restartable(t *testing.T) {
	seq := Windows(strings.Repeat("x", 50), 10, 3)
	var first, second []string
	for w := range seq {
		first = append(first, w)
	}
	for w := range seq {
		second = append(second, w)
	}
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestWindows_EarlyBreak(t *testing.T) {
	n := 0
	for range Windows(strings.Repeat("y", 100), 10, 0) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestWindows_CountsByRunes(t *testing.T) {
	text := strings.Repeat("é", 7)
	got := Split(text, 3, 1)
	require.Len(t, got, 3)
	for _, w := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(w), 3)
	}
}

func TestWindows_CountAndOffsetsProperty(t *testing.T) {
	for _, tc := range []struct{ length, size, overlap int }{
		{1, 900, 180},
		{900, 900, 180},
		{901, 900, 180},
		{5000, 900, 180},
		{37, 5, 2},
		{100, 10, 9},
		{99, 7, 0},
	} {
		text := strings.Repeat("a", tc.length)
		step := tc.size - tc.overlap
		var starts []int
		start := 0
		for w := range Windows(text, tc.size, tc.overlap) {
			assert.LessOrEqual(t, len(w), tc.size)
			assert.Equal(t, text[start:start+len(w)], w)
			starts = append(starts, start)
			start += step
		}
		for i := 1; i < len(starts); i++ {
			assert.Greater(t, starts[i], starts[i-1])
		}

		want := 1
		if tc.length > tc.size {
			want = (max(1, tc.length-tc.overlap) + step - 1) / step
		}
		assert.Equal(t, want, len(starts), "length=%d size=%d overlap=%d", tc.length, tc.size, tc.overlap)
	}
}

func TestWindows_DefaultsForNonPositiveSize(t *testing.T) {
	got := Split(strings.Repeat("z", DefaultSize+10), 0, -4)
	require.Len(t, got, 2)
	assert.Len(t, got[0], DefaultSize)
}
