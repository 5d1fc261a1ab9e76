package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/faiqfarooq/Codebase-RAG/internal/retrieval"
)

const systemPrompt = `You are a helpful code assistant that explains code and helps debug issues.
When explaining code or answering questions, always cite the file and line number using the format: filename.ext:line_number
When explaining why something isn't working, be specific and reference the exact locations in the code.

Always format file references as: filename.ext:line_number (e.g., Button.tsx:42)`

// Compose builds the grounding context from the retrieved chunks, each block
// labeled with the filename:start_line anchor the model is instructed to cite,
// and invokes the backend. With no chunks the backend is still invoked, but
// the prompt says so; the answer is then allowed to be unfounded and the
// citation binder will verify nothing.
func Compose(ctx context.Context, query string, chunks []retrieval.ScoredChunk, backend ModelBackend) (string, error) {
	var userPrompt string

	if len(chunks) == 0 {
		userPrompt = fmt.Sprintf(`No relevant code was found in the indexed codebase for this question.

Question: %s

Answer from general knowledge if you can, and say that no matching code was found. Do not invent file references.`, query)
	} else {
		blocks := make([]string, len(chunks))
		for i, c := range chunks {
			blocks[i] = fmt.Sprintf("[%s:%d]\n%s", c.Chunk.Filename, c.Chunk.StartLine, c.Chunk.Text)
		}
		context := strings.Join(blocks, "\n\n---\n\n")

		userPrompt = fmt.Sprintf(`Context from codebase:

%s

---

Question: %s

Please answer the question based on the code context above. When mentioning files or code locations, use the format filename.ext:line_number.`, context, query)
	}

	return backend.Generate(ctx, systemPrompt, userPrompt)
}
