package chunker

import (
	"regexp"
	"strings"
)

// SentenceChunker groups sentences into chunks with an optional overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 || overlapSentences >= sentencesPerChunk {
		overlapSentences = 0
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// Chunk normalises whitespace inside each sentence so chunk text is
// comparable with the word chunker's output.
func (c *SentenceChunker) Chunk(text string) []string {
	sentences := c.sentences(text)
	if len(sentences) == 0 {
		return nil
	}
	var chunks []string
	for start := 0; start < len(sentences); {
		end := start + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, strings.Join(sentences[start:end], " "))
		if end == len(sentences) {
			break
		}
		start = end - c.overlapSentences
	}
	return chunks
}

func (c *SentenceChunker) sentences(text string) []string {
	locs := c.splitter.FindAllStringIndex(text, -1)
	raw := make([]string, 0, len(locs)+1)
	end := 0
	for _, loc := range locs {
		raw = append(raw, text[loc[0]:loc[1]])
		end = loc[1]
	}
	// Trailing text without terminal punctuation is still a sentence.
	if tail := text[end:]; strings.Trim(tail, ".!? \t\r\n") != "" {
		raw = append(raw, tail)
	}
	out := raw[:0]
	for _, s := range raw {
		if joined := strings.Join(strings.Fields(s), " "); joined != "" {
			out = append(out, joined)
		}
	}
	return out
}
