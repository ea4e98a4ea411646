package engine

import (
	"fmt"
	"strings"

	"github.com/reposcope/reposcope/pkg/types"
)

// DefaultChunkSize is the character ceiling for line accumulation.
const DefaultChunkSize = 2000

// ChunkFile splits a file's content into bounded chunks. Whole lines are
// accumulated until appending the next line would exceed maxChars, then the
// chunk is closed; chunks never break mid-line. Each chunk's content is
// prefixed with a header naming the file and line range, and the header is
// included in the text sent for vectorization. Empty content still yields
// exactly one whole-file chunk.
func ChunkFile(relPath, content string, maxChars int) []types.FileChunk {
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}

	lines := strings.Split(content, "\n")

	var chunks []types.FileChunk
	var buf []string
	bufLen := 0
	startLine := 1

	flush := func(endLine int) {
		if len(buf) == 0 {
			return
		}
		body := strings.Join(buf, "\n")
		chunks = append(chunks, types.FileChunk{
			Content:   withHeader(relPath, startLine, endLine, body),
			StartLine: startLine,
			EndLine:   endLine,
		})
		buf = buf[:0]
		bufLen = 0
	}

	for i, line := range lines {
		lineNo := i + 1
		// Close on the accumulation boundary; an oversized single line still
		// becomes its own chunk rather than being split mid-line.
		if len(buf) > 0 && bufLen+len(line)+1 > maxChars {
			flush(lineNo - 1)
			startLine = lineNo
		}
		if len(buf) == 0 {
			startLine = lineNo
		}
		buf = append(buf, line)
		bufLen += len(line)
		if len(buf) > 1 {
			bufLen++ // The newline joining this line to the previous one
		}
	}
	flush(len(lines))

	// strings.Split never returns an empty slice, so even an empty file
	// yields exactly one whole-file chunk covering line 1.
	return chunks
}

func withHeader(relPath string, startLine, endLine int, body string) string {
	return fmt.Sprintf("File: %s (lines %d-%d)\n\n%s", relPath, startLine, endLine, body)
}
