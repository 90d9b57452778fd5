package node

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// TruncateByRunes 按字符数截断
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// TokenBudget 由目标字数推导输出 token 上限：ceil(words × 1.5) + 500，不超过 ceiling
func TokenBudget(targetWords, ceiling int) int {
	if targetWords < 0 {
		targetWords = 0
	}
	budget := int(math.Ceil(float64(targetWords)*1.5)) + 500
	if ceiling > 0 && budget > ceiling {
		return ceiling
	}
	return budget
}

var tocNumberPrefix = regexp.MustCompile(`^\d+\.\s*`)

// ParseTableOfContents 从模型返回的编号列表中提取章节标题，最多 limit 条
func ParseTableOfContents(text string, limit int) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	titles := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		title := strings.TrimSpace(tocNumberPrefix.ReplaceAllString(line, ""))
		if title == "" {
			continue
		}
		titles = append(titles, title)
		if limit > 0 && len(titles) == limit {
			break
		}
	}
	return titles
}
