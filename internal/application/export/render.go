// Package export 将生成完成的电子书渲染为可下载文件
package export

import (
	"fmt"
	"strings"
	"unicode"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/workflow/node"
)

// maxFilenameRunes 下载文件名主体的最大字符数
const maxFilenameRunes = 80

// Format 导出格式
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// ParseFormat 解析导出格式，空值默认 markdown
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, true
	case "txt", "text":
		return FormatText, true
	default:
		return "", false
	}
}

// Extension 文件扩展名
func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return "md"
}

// ContentType 上传时使用的 MIME 类型
func (f Format) ContentType() string {
	if f == FormatText {
		return "text/plain; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// Render 渲染封面、目录与全部章节
func Render(e *entity.Ebook, f Format) []byte {
	var b strings.Builder
	switch f {
	case FormatText:
		renderText(&b, e)
	default:
		renderMarkdown(&b, e)
	}
	return []byte(b.String())
}

func renderMarkdown(b *strings.Builder, e *entity.Ebook) {
	fmt.Fprintf(b, "# %s\n\n", e.Title)
	if e.Description != "" {
		fmt.Fprintf(b, "_%s_\n\n", strings.TrimSpace(e.Description))
	}

	b.WriteString("## Table of Contents\n\n")
	for _, ch := range e.Chapters {
		fmt.Fprintf(b, "%d. [%s](#chapter-%d)\n", ch.ChapterNumber, ch.Title, ch.ChapterNumber)
	}
	b.WriteString("\n")

	for _, ch := range e.Chapters {
		fmt.Fprintf(b, "<a id=\"chapter-%d\"></a>\n\n## Chapter %d: %s\n\n", ch.ChapterNumber, ch.ChapterNumber, ch.Title)
		b.WriteString(strings.TrimSpace(ch.Content))
		b.WriteString("\n\n")
	}
}

func renderText(b *strings.Builder, e *entity.Ebook) {
	title := strings.ToUpper(e.Title)
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len([]rune(title))) + "\n\n")
	if e.Description != "" {
		b.WriteString(strings.TrimSpace(e.Description) + "\n\n")
	}

	b.WriteString("TABLE OF CONTENTS\n\n")
	for _, ch := range e.Chapters {
		fmt.Fprintf(b, "%d. %s\n", ch.ChapterNumber, ch.Title)
	}
	b.WriteString("\n")

	for _, ch := range e.Chapters {
		heading := fmt.Sprintf("CHAPTER %d: %s", ch.ChapterNumber, ch.Title)
		b.WriteString(heading + "\n")
		b.WriteString(strings.Repeat("-", len([]rune(heading))) + "\n\n")
		b.WriteString(strings.TrimSpace(ch.Content))
		b.WriteString("\n\n")
	}
}

// Filename 下载文件名：标题转为小写连字符形式
func Filename(title string, f Format) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	name := strings.TrimSuffix(node.TruncateByRunes(b.String(), maxFilenameRunes), "-")
	if name == "" {
		name = "ebook"
	}
	return name + "." + f.Extension()
}
