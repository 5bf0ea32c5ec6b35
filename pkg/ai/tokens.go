package ai

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultTokenEncoding = "cl100k_base"

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

// CountTokens returns the token count of text under the default encoding.
// Falls back to a character-based estimate if the encoding cannot load.
func CountTokens(text string) int {
	encodingOnce.Do(func() {
		encoding, encodingErr = tiktoken.GetEncoding(defaultTokenEncoding)
	})
	if encodingErr != nil || encoding == nil {
		return len(text) / 4
	}
	return len(encoding.Encode(text, nil, nil))
}

// BatchByTokenBudget splits lines into batches whose combined token count
// stays under budget. A single oversized line still gets its own batch so
// nothing is dropped here; the model call decides what to do with it.
func BatchByTokenBudget(lines []string, budget int) ([][]string, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("token budget must be positive, got %d", budget)
	}

	var batches [][]string
	var current []string
	used := 0

	for _, line := range lines {
		cost := CountTokens(line)
		if len(current) > 0 && used+cost > budget {
			batches = append(batches, current)
			current = nil
			used = 0
		}
		current = append(current, line)
		used += cost
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches, nil
}
