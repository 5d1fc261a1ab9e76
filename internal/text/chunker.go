package text

import (
	"fmt"
	"strings"
)

// Chunk is a line-bounded excerpt of a source file, the atomic unit of
// indexing and citation. Text is the verbatim span of the cited lines,
// never paraphrased; StartLine and EndLine are 1-based and inclusive.
type Chunk struct {
	ID        string
	Filename  string
	StartLine int
	EndLine   int
	FileType  string
	Text      string
	Embedding []float32
}

// Split partitions a document's content into fixed windows of `window` lines
// with `overlap` lines shared between consecutive windows. Original line
// numbers are preserved so a citation into any line of a chunk can be mapped
// back to the file. Chunks with fewer than minChars non-blank characters are
// discarded so whitespace-only fragments are never indexed.
//
// Deterministic: identical input yields identical chunks, emitted in
// ascending StartLine order. A file shorter than the window yields a single
// chunk spanning the whole file.
func Split(filename, content, fileType string, window, overlap, minChars int) []Chunk {
	if window <= 0 || overlap < 0 || overlap >= window {
		return nil
	}
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	// A trailing newline produces one empty trailing element; it is not a line.
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	step := window - overlap
	var chunks []Chunk

	for start := 0; start < len(lines); start += step {
		end := start + window
		if end > len(lines) {
			end = len(lines)
		}

		body := strings.Join(lines[start:end], "\n")
		if countNonBlank(body) < minChars {
			if end == len(lines) {
				break
			}
			continue
		}

		chunks = append(chunks, Chunk{
			ID:        fmt.Sprintf("%s:%d-%d", filename, start+1, end),
			Filename:  filename,
			StartLine: start + 1,
			EndLine:   end,
			FileType:  fileType,
			Text:      body,
		})

		if end == len(lines) {
			break
		}
	}

	return chunks
}

func countNonBlank(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			n++
		}
	}
	return n
}
