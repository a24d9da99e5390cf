package chunker

import "strings"

// DefaultMaxWords is the chunk size used when none is configured.
const DefaultMaxWords = 500

// WordChunker splits text into contiguous runs of at most maxWords
// whitespace-delimited tokens. Original spacing is not preserved.
type WordChunker struct {
	maxWords int
}

func NewWordChunker(maxWords int) *WordChunker {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &WordChunker{maxWords: maxWords}
}

// Chunk returns no chunks for text without tokens. Every token lands in
// exactly one chunk and only the last chunk may be shorter than maxWords.
func (c *WordChunker) Chunk(text string) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) < c.maxWords {
		return []string{strings.Join(tokens, " ")}
	}
	chunks := make([]string, 0, (len(tokens)+c.maxWords-1)/c.maxWords)
	for start := 0; start < len(tokens); start += c.maxWords {
		end := start + c.maxWords
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[start:end], " "))
	}
	return chunks
}
