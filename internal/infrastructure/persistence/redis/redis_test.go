package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"ebook-ai-api/internal/config"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "template:12", TemplateKey(12))
	assert.Equal(t, "ratelimit:user:7:generate", BuildUserRateLimitKey(7, "generate"))
	assert.Equal(t, "ratelimit:ip:10.0.0.1:api", BuildIPRateLimitKey("10.0.0.1", "api"))
}

func TestWindowMath(t *testing.T) {
	assert.Equal(t, int64(40_000), windowStart(100_000, time.Minute))

	a, b := windowMember(1000), windowMember(1000)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "1000-"))
}

func TestIsNil(t *testing.T) {
	assert.True(t, IsNil(goredis.Nil))
	assert.True(t, IsNil(fmt.Errorf("wrapped: %w", goredis.Nil)))
	assert.False(t, IsNil(errors.New("other")))
}

func TestHealthCheckUnreachable(t *testing.T) {
	opts := newOptions(&config.RedisConfig{Host: "127.0.0.1", Port: 1, DialTimeout: 200 * time.Millisecond})
	assert.Equal(t, "127.0.0.1:1", opts.Addr)
	assert.True(t, opts.ContextTimeoutEnabled)

	c := NewClientFromRedis(goredis.NewClient(opts))
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, c.HealthCheck(ctx))
}
