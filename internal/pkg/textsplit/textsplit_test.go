package textsplit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	s := New(1000, 200, "\n")
	assert.Empty(t, s.Chunks(""))
}

func TestSplitShortInputSingleChunk(t *testing.T) {
	s := New(1000, 200, "\n")
	chunks := s.Chunks("short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplitRoundTrip(t *testing.T) {
	// 5000 runes, no separators, size 1000 / overlap 200: removing the
	// overlap from every chunk after the first must rebuild the input.
	var sb strings.Builder
	for sb.Len() < 5000 {
		sb.WriteByte(byte('a' + sb.Len()%26))
	}
	text := sb.String()

	s := New(1000, 200, "\n")
	chunks := s.Chunks(text)
	require.Len(t, chunks, 6)

	rebuilt := chunks[0]
	for _, c := range chunks[1:] {
		runes := []rune(c)
		require.GreaterOrEqual(t, len(runes), s.Overlap)
		rebuilt += string(runes[s.Overlap:])
	}
	assert.Equal(t, text, rebuilt)
}

func TestSplitOverlapRepeatsTail(t *testing.T) {
	var sb strings.Builder
	for sb.Len() < 250 {
		sb.WriteByte(byte('0' + sb.Len()%10))
	}
	s := New(100, 20, "")
	chunks := s.Chunks(sb.String())
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		cur := []rune(chunks[i])
		assert.Equal(t, string(prev[len(prev)-20:]), string(cur[:20]))
	}
}

func TestSplitPrefersSeparatorBoundary(t *testing.T) {
	// Lines of 40 runes + "\n"; with size 100 every chunk but the last
	// should end exactly at a line break.
	line := strings.Repeat("x", 40) + "\n"
	text := strings.Repeat(line, 20)

	s := New(100, 10, "\n")
	chunks := s.Chunks(text)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(c, "\n"), "chunk should end at a line break: %q", c)
		assert.LessOrEqual(t, len([]rune(c)), 100)
	}
}

func TestSplitIsRestartable(t *testing.T) {
	s := New(50, 10, "\n")
	text := strings.Repeat("restartable sequence of chunks\n", 10)
	seq := s.Split(text)

	var first, second []string
	for c := range seq {
		first = append(first, c)
	}
	for c := range seq {
		second = append(second, c)
	}
	assert.Equal(t, first, second)
}

func TestSplitStopsEarly(t *testing.T) {
	s := New(10, 2, "")
	text := strings.Repeat("z", 100)
	n := 0
	for range s.Split(text) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestNewClampsDegenerateParameters(t *testing.T) {
	s := New(-5, 10, "\n")
	assert.Equal(t, 1000, s.Size)

	s = New(100, 100, "\n")
	assert.Equal(t, 50, s.Overlap)
}
