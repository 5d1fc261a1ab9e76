package text

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

func TestSplit(t *testing.T) {
	t.Run("Fifty Lines Window 20 Overlap 5", func(t *testing.T) {
		content := makeLines(50)
		chunks := Split("utils.py", content, "py", 20, 5, 8)

		require.Len(t, chunks, 3)
		assert.Equal(t, 1, chunks[0].StartLine)
		assert.Equal(t, 20, chunks[0].EndLine)
		assert.Equal(t, 16, chunks[1].StartLine)
		assert.Equal(t, 35, chunks[1].EndLine)
		assert.Equal(t, 31, chunks[2].StartLine)
		assert.Equal(t, 50, chunks[2].EndLine)

		for _, c := range chunks {
			assert.Equal(t, "utils.py", c.Filename)
			assert.Equal(t, "py", c.FileType)
		}
	})

	t.Run("File Shorter Than Window", func(t *testing.T) {
		content := makeLines(7)
		chunks := Split("small.go", content, "go", 20, 5, 8)

		require.Len(t, chunks, 1)
		assert.Equal(t, 1, chunks[0].StartLine)
		assert.Equal(t, 7, chunks[0].EndLine)
		assert.Equal(t, content, chunks[0].Text)
	})

	t.Run("Verbatim Line Spans", func(t *testing.T) {
		content := makeLines(50)
		lines := strings.Split(content, "\n")
		chunks := Split("utils.py", content, "py", 20, 5, 8)

		for _, c := range chunks {
			want := strings.Join(lines[c.StartLine-1:c.EndLine], "\n")
			assert.Equal(t, want, c.Text, "chunk %s must be the verbatim span", c.ID)
		}
	})

	t.Run("Lossless Up To Overlap", func(t *testing.T) {
		content := makeLines(52)
		chunks := Split("f.ts", content, "ts", 20, 5, 1)

		// Reassemble: first chunk whole, subsequent chunks minus the
		// lines already covered by the previous one.
		var rebuilt []string
		covered := 0
		for _, c := range chunks {
			lines := strings.Split(c.Text, "\n")
			skip := covered - c.StartLine + 1
			if skip < 0 {
				skip = 0
			}
			rebuilt = append(rebuilt, lines[skip:]...)
			covered = c.EndLine
		}
		assert.Equal(t, content, strings.Join(rebuilt, "\n"))
	})

	t.Run("Boundary Invariant", func(t *testing.T) {
		for _, n := range []int{1, 5, 19, 20, 21, 35, 50, 100} {
			content := makeLines(n)
			chunks := Split("f.py", content, "py", 20, 5, 1)
			for _, c := range chunks {
				assert.GreaterOrEqual(t, c.StartLine, 1)
				assert.LessOrEqual(t, c.StartLine, c.EndLine)
				assert.LessOrEqual(t, c.EndLine, n)
			}
		}
	})

	t.Run("Ascending Order And Unique IDs", func(t *testing.T) {
		chunks := Split("f.py", makeLines(100), "py", 20, 5, 1)
		seen := map[string]bool{}
		for i := 1; i < len(chunks); i++ {
			assert.Greater(t, chunks[i].StartLine, chunks[i-1].StartLine)
		}
		for _, c := range chunks {
			assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
			seen[c.ID] = true
		}
	})

	t.Run("Whitespace Only Discarded", func(t *testing.T) {
		content := "   \n\t\n \n"
		chunks := Split("blank.py", content, "py", 20, 5, 8)
		assert.Empty(t, chunks)
	})

	t.Run("Trailing Blank Remainder Dropped", func(t *testing.T) {
		// 20 real lines then blanks: the second window is whitespace only.
		content := makeLines(20) + "\n" + strings.Repeat(" \n", 10)
		chunks := Split("f.py", content, "py", 20, 5, 8)
		require.Len(t, chunks, 1)
		assert.Equal(t, 1, chunks[0].StartLine)
		assert.Equal(t, 20, chunks[0].EndLine)
	})

	t.Run("Trailing Newline Not A Line", func(t *testing.T) {
		chunks := Split("f.py", makeLines(20)+"\n", "py", 20, 5, 1)
		require.Len(t, chunks, 1)
		assert.Equal(t, 20, chunks[0].EndLine)
	})

	t.Run("Empty Content", func(t *testing.T) {
		assert.Empty(t, Split("f.py", "", "py", 20, 5, 1))
	})

	t.Run("Invalid Window Parameters", func(t *testing.T) {
		assert.Nil(t, Split("f.py", makeLines(10), "py", 0, 0, 1))
		assert.Nil(t, Split("f.py", makeLines(10), "py", 10, 10, 1))
		assert.Nil(t, Split("f.py", makeLines(10), "py", 10, -1, 1))
	})

	t.Run("Deterministic", func(t *testing.T) {
		content := makeLines(47)
		a := Split("f.py", content, "py", 20, 5, 8)
		b := Split("f.py", content, "py", 20, 5, 8)
		assert.Equal(t, a, b)
	})
}
