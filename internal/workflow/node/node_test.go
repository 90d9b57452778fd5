package node

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenBudget(t *testing.T) {
	cases := []struct {
		words, ceiling, want int
	}{
		{500, 8000, 1250},
		{1000, 8000, 2000},
		{333, 8000, 1000},
		{5000, 8000, 8000},
		{0, 8000, 500},
		{1001, 0, 2002},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TokenBudget(tc.words, tc.ceiling), "words=%d", tc.words)
	}
}

func TestParseTableOfContents(t *testing.T) {
	text := "1. Getting Started\n\n2.  Core Ideas \r\n3.Deep Dive\n  \nAppendix\n5. Extra"

	assert.Equal(t, []string{"Getting Started", "Core Ideas", "Deep Dive", "Appendix"}, ParseTableOfContents(text, 4))
	assert.Len(t, ParseTableOfContents(text, 0), 5)
	assert.Empty(t, ParseTableOfContents("  \n\n", 3))
}

type statusErr int

func (s statusErr) Error() string   { return "provider error" }
func (s statusErr) StatusCode() int { return int(s) }

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, IsRateLimitError(fmt.Errorf("call: %w", statusErr(429))))
	assert.False(t, IsRateLimitError(statusErr(500)))
	assert.True(t, IsRateLimitError(errors.New("error, status code: 429, message: Rate limit reached")))
	assert.True(t, IsRateLimitError(errors.New("Too Many Requests")))
	assert.False(t, IsRateLimitError(errors.New("context deadline exceeded")))
	assert.False(t, IsRateLimitError(errors.New("max_tokens 4290 exceeds model limit")))
	assert.False(t, IsRateLimitError(nil))
}

func TestTruncateByRunes(t *testing.T) {
	assert.Equal(t, "héll", TruncateByRunes("héllo", 4))
	assert.Equal(t, "", TruncateByRunes("abc", 0))
}
