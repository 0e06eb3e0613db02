// Package utils provides small utility functions shared across the bot
// framework.
package utils

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter gives a per-model token count. Models tiktoken does not
// recognize (e.g. local Ollama models) are counted with cl100k_base; the
// rough character-based estimate is used only when no encoding can be
// loaded at all.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
	mu       sync.RWMutex
}

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

// NewTokenCounter returns a TokenCounter for model, falling back to the
// cl100k_base encoding if the model isn't one tiktoken recognizes directly.
func NewTokenCounter(model string) *TokenCounter {
	cacheMu.RLock()
	cached, ok := encodingCache[model]
	cacheMu.RUnlock()
	if ok {
		return &TokenCounter{encoding: cached, model: model}
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return &TokenCounter{model: model} // encoding stays nil: Count falls back to the estimate
		}
	}

	cacheMu.Lock()
	encodingCache[model] = encoding
	cacheMu.Unlock()
	return &TokenCounter{encoding: encoding, model: model}
}

// Count returns tc's best estimate of text's token count.
func (tc *TokenCounter) Count(text string) int {
	if tc == nil || tc.encoding == nil {
		return EstimateTokens(text)
	}
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.encoding.Encode(text, nil, nil))
}

// EstimateTokens provides a rough, encoding-free token estimate (roughly 4
// characters per token), used when no TokenCounter is available.
func EstimateTokens(text string) int {
	return len(text) / 4
}
