package chunker

import (
	"regexp"
	"strings"
)

// DefaultChunkSize matches the ingestion default for catalog overviews.
const DefaultChunkSize = 512

var sentenceSplitter = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?]+)`)

// Split breaks text into chunks of at most maxChunkSize characters, keeping
// paragraph boundaries where possible and sentence boundaries otherwise.
// It is pure and stateless. Non-empty input always yields at least one
// chunk, and no trailing content is dropped.
func Split(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxChunkSize {
		return []string{text}
	}

	var chunks []string
	for _, para := range splitParagraphs(text) {
		if len(para) <= maxChunkSize {
			chunks = appendChunk(chunks, para, maxChunkSize)
			continue
		}
		for _, sent := range splitSentences(para) {
			chunks = appendChunk(chunks, sent, maxChunkSize)
		}
	}
	return chunks
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		for _, line := range strings.Split(p, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

func splitSentences(text string) []string {
	spans := sentenceSplitter.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	var sentences []string
	for _, span := range spans {
		sentences = append(sentences, strings.TrimSpace(text[span[0]:span[1]]))
	}
	// The regexp stops at the last terminator; keep whatever trails it.
	if rest := strings.TrimSpace(text[spans[len(spans)-1][1]:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// appendChunk packs the piece into the last open chunk when it fits,
// hard-splitting pieces that alone exceed the budget.
func appendChunk(chunks []string, piece string, maxChunkSize int) []string {
	piece = strings.TrimSpace(piece)
	if piece == "" {
		return chunks
	}
	for len(piece) > maxChunkSize {
		cut := strings.LastIndex(piece[:maxChunkSize], " ")
		if cut <= 0 {
			cut = maxChunkSize
		}
		chunks = append(chunks, strings.TrimSpace(piece[:cut]))
		piece = strings.TrimSpace(piece[cut:])
	}
	if piece == "" {
		return chunks
	}
	if n := len(chunks); n > 0 && len(chunks[n-1])+1+len(piece) <= maxChunkSize {
		chunks[n-1] = chunks[n-1] + " " + piece
		return chunks
	}
	return append(chunks, piece)
}
