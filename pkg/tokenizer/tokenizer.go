// Package tokenizer counts and splits text using the cl100k_base BPE
// encoding, the one used by the GPT-3.5/GPT-4 model family.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

var (
	enc     *tiktoken.Tiktoken
	encOnce sync.Once
	encErr  error
)

func encoding() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding(encodingName)
	})
	if encErr != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", encodingName, encErr)
	}
	return enc, nil
}

func CountTokens(text string) (int, error) {
	e, err := encoding()
	if err != nil {
		return 0, err
	}
	return len(e.Encode(text, nil, nil)), nil
}

// Split cuts text into segments of at most size tokens, preserving order.
// Concatenating the decoded segments reconstructs the original token stream.
func Split(text string, size int) ([]string, error) {
	e, err := encoding()
	if err != nil {
		return nil, err
	}

	chunks := chunkInts(e.Encode(text, nil, nil), size)

	segments := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		segments = append(segments, e.Decode(chunk))
	}
	return segments, nil
}

func chunkInts(tokens []int, n int) [][]int {
	if n <= 0 || len(tokens) == 0 {
		return nil
	}
	chunks := make([][]int, 0, len(tokens)/n+1)
	for i := 0; i < len(tokens); i += n {
		end := i + n
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[i:end])
	}
	return chunks
}
