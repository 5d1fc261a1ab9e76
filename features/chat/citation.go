package chat

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/faiqfarooq/Codebase-RAG/internal/retrieval"
)

// citationPattern matches file:line references in generated text: a filename
// with an extension (optionally preceded by path segments), a colon, and a
// line number.
var citationPattern = regexp.MustCompile(`\b([A-Za-z0-9_\-]+(?:[./][A-Za-z0-9_\-]+)*\.[A-Za-z0-9]+):(\d+)\b`)

// BindCitations verifies every file:line citation in the answer against the
// chunks retrieved for this query. A citation binds to the first retrieved
// chunk (best score first) whose filename matches and whose line interval
// contains the cited line. Citations with no matching chunk are dropped: an
// unverifiable reference must never surface as a navigable source. Sources
// keep first-seen order and duplicates binding to the same chunk collapse.
func BindCitations(answer string, chunks []retrieval.ScoredChunk) []Source {
	sources := []Source{}
	seen := map[string]bool{}

	for _, m := range citationPattern.FindAllStringSubmatch(answer, -1) {
		filename := m[1]
		line, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		chunk, ok := findChunk(chunks, filename, line)
		if !ok {
			continue
		}
		if seen[chunk.Chunk.ID] {
			continue
		}
		seen[chunk.Chunk.ID] = true

		sources = append(sources, Source{
			Filename:  chunk.Chunk.Filename,
			StartLine: chunk.Chunk.StartLine,
			FileType:  chunk.Chunk.FileType,
			Preview:   chunk.Chunk.Text,
		})
	}

	return sources
}

func findChunk(chunks []retrieval.ScoredChunk, cited string, line int) (retrieval.ScoredChunk, bool) {
	for _, c := range chunks {
		if !filenameMatches(c.Chunk.Filename, cited) {
			continue
		}
		if line >= c.Chunk.StartLine && line <= c.Chunk.EndLine {
			return c, true
		}
	}
	return retrieval.ScoredChunk{}, false
}

// filenameMatches accepts the indexed relative path, a cited bare basename,
// or a cited path suffix, so "utils.py:20" binds to "lib/utils.py" but not
// to "lib/other.py".
func filenameMatches(indexed, cited string) bool {
	if indexed == cited {
		return true
	}
	if path.Base(indexed) == cited {
		return true
	}
	return strings.HasSuffix(indexed, "/"+cited)
}
