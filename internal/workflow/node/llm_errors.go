package node

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
)

var status429 = regexp.MustCompile(`\b429\b`)

// statusCoder 兼容带 HTTP 状态码的提供方错误
type statusCoder interface {
	StatusCode() int
}

// IsRateLimitError 判断提供方错误是否为限流
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case status429.MatchString(msg):
		return true
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "rate_limit"), strings.Contains(msg, "ratelimit"):
		return true
	case strings.Contains(msg, "too many requests"):
		return true
	case strings.Contains(msg, "overloaded"):
		return true
	default:
		return false
	}
}
