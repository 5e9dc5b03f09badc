package provider

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const charsPerToken = 4

// estimateTokens is the fragment-level approximation used for running stream
// estimates when the backend reports no exact counts.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := (len(text) + charsPerToken - 1) / charsPerToken
	if n < 1 {
		n = 1
	}
	return n
}

var (
	encOnce sync.Once
	encoder *tiktoken.Tiktoken
)

// countTokens counts with cl100k_base when the encoding is loadable, falling
// back to the character approximation otherwise (the encoder fetches its
// dictionary lazily and can fail offline).
func countTokens(text string) int {
	encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			encoder = enc
		}
	})
	if encoder == nil {
		return estimateTokens(text)
	}
	return len(encoder.Encode(text, nil, nil))
}
