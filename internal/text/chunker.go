package text

import (
	"fmt"
	"strings"

	"github.com/velum-cloud/ragdex/internal/domain"
)

// minChunkChars is the minimum joined length for a window to be kept.
// Shorter trailing fragments carry no retrieval signal.
const minChunkChars = 5

// Chunk splits text into overlapping word windows of size words, starting
// every size-overlap words. The scan stops after emitting the window that
// reaches the last word, so no tiny trailing duplicate window is produced.
// Identical (text, size, overlap) always yields identical windows; chunk ids
// depend on this.
func Chunk(text string, size, overlap int) ([]string, error) {
	if size <= 0 || overlap < 0 || size <= overlap {
		return nil, fmt.Errorf("size=%d overlap=%d: %w", size, overlap, domain.ErrInvalidChunking)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	stride := size - overlap
	var chunks []string
	for i := 0; ; i += stride {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		window := strings.Join(words[i:end], " ")
		if len(window) >= minChunkChars {
			chunks = append(chunks, window)
		}
		// This window already covers the last word: stop.
		if i+size >= len(words) {
			break
		}
	}
	return chunks, nil
}
