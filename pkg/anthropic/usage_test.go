package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenUsage_Add(t *testing.T) {
	u := TokenUsage{InputTokens: 10, OutputTokens: 2}
	u.Add(TokenUsage{InputTokens: 5, OutputTokens: 3, CacheCreationInputTokens: 7, CacheReadInputTokens: 11})
	assert.Equal(t, TokenUsage{InputTokens: 15, OutputTokens: 5, CacheCreationInputTokens: 7, CacheReadInputTokens: 11}, u)
}

func TestEstimateCost_Haiku(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 6.00, u.EstimateCost("claude-haiku-4-5-20251001"), 0.0001)
}

func TestEstimateCost_WithCache(t *testing.T) {
	u := TokenUsage{CacheCreationInputTokens: 1_000_000, CacheReadInputTokens: 1_000_000}
	// 3.00 * 1.25 + 3.00 * 0.1
	assert.InDelta(t, 4.05, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.0001)
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1000}
	assert.Equal(t, 0.0, u.EstimateCost("unknown"))
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		TokenUsage{InputTokens: 100}.LogCost("claude-haiku-4-5-20251001", "acme.pdf")
	})
}

func TestCachedSystem(t *testing.T) {
	blocks := CachedSystem("instructions")
	assert.Len(t, blocks, 1)
	assert.Equal(t, "instructions", blocks[0].Text)
	assert.Equal(t, "5m", blocks[0].CacheControl.TTL)
}
