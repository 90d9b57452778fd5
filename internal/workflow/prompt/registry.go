// Package prompt 管理内嵌的 prompt 模板并构建 LLM 消息
package prompt

import (
	"embed"
	"fmt"
	"path"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

// PromptID 模板标识，对应 templates/{id}.system.txt 与 templates/{id}.user.txt
type PromptID string

const (
	PromptTableOfContentsV1 PromptID = "toc_v1"
	PromptChapterV1         PromptID = "chapter_v1"
	PromptImproveV1         PromptID = "improve_v1"
)

var knownPrompts = []PromptID{
	PromptTableOfContentsV1,
	PromptChapterV1,
	PromptImproveV1,
}

// Registry 创建时解析全部内嵌模板，之后只读
type Registry struct {
	templates map[PromptID]einoprompt.ChatTemplate
}

// NewRegistry 加载内嵌模板，模板缺失属于构建错误，直接 panic
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[PromptID]einoprompt.ChatTemplate, len(knownPrompts))}
	for _, id := range knownPrompts {
		r.templates[id] = einoprompt.FromMessages(
			schema.FString,
			schema.SystemMessage(mustRead(id, "system")),
			schema.UserMessage(mustRead(id, "user")),
		)
	}
	return r
}

// ChatTemplate 获取已加载的模板
func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	tpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}
	return tpl, nil
}

func mustRead(id PromptID, role string) string {
	name := path.Join("templates", fmt.Sprintf("%s.%s.txt", id, role))
	b, err := templatesFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("prompt: missing embedded template %s: %v", name, err))
	}
	return strings.TrimSpace(string(b))
}
