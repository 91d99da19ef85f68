// Package chunker splits a complete backend reply into the ordered fragment
// sequence used for simulated streaming.
package chunker

import (
	"unicode"
	"unicode/utf8"
)

// DefaultWordsPerChunk matches the chunk size the gateway has always used.
const DefaultWordsPerChunk = 10

// Chunker produces fragments by a fixed word-group policy: each fragment is a
// run of up to N whitespace-delimited words together with the whitespace that
// follows them. Joining all fragments in order reproduces the input exactly,
// including leading, trailing, and internal whitespace.
type Chunker struct {
	wordsPerChunk int
}

// New creates a chunker grouping up to wordsPerChunk words per fragment.
// Non-positive values fall back to the default.
func New(wordsPerChunk int) *Chunker {
	if wordsPerChunk <= 0 {
		wordsPerChunk = DefaultWordsPerChunk
	}
	return &Chunker{wordsPerChunk: wordsPerChunk}
}

// Chunk splits text into an ordered, finite fragment sequence.
// Empty text yields zero fragments; text shorter than one word group yields a
// single fragment equal to the whole text.
func (c *Chunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}

	var fragments []string
	start := 0
	words := 0
	inWord := false

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if inWord {
				inWord = false
				words++
			}
		} else {
			// A word boundary closes the fragment once the group is full.
			if !inWord && words >= c.wordsPerChunk {
				fragments = append(fragments, text[start:i])
				start = i
				words = 0
			}
			inWord = true
		}
		i += size
	}

	fragments = append(fragments, text[start:])
	return fragments
}
