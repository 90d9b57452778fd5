package prompt

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-ai-api/internal/domain/entity"
)

func sampleEbook() *entity.Ebook {
	e := entity.NewEbook(1, "Go in Practice", "concurrency patterns")
	e.NumChapters = 3
	e.WordsPerChapter = 500
	e.TargetAudience = "backend engineers"
	return e
}

func TestTableOfContentsPrompt(t *testing.T) {
	b := NewBuilder(nil)

	msgs, err := b.TableOfContents(context.Background(), sampleEbook())
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	user := msgs[1].Content
	assert.Contains(t, user, "Title: Go in Practice")
	assert.Contains(t, user, "Number of Chapters: 3")
	assert.Contains(t, user, "Please provide exactly 3 chapter titles")
	assert.Contains(t, user, "Target Audience: backend engineers")
	assert.Contains(t, user, "Tone: professional")
}

func TestChapterPromptIncludesContextAndDirectives(t *testing.T) {
	b := NewBuilder(nil)
	e := sampleEbook()
	chapters := entity.NewChaptersFromTitles(1, []string{"Intro", "Body", "End"})
	shuffled := []*entity.Chapter{chapters[2], chapters[0], chapters[1]}

	first, err := b.Chapter(context.Background(), e, chapters[0], shuffled)
	require.NoError(t, err)
	user := first[1].Content
	assert.Contains(t, user, "Write Chapter 1 of an ebook")
	assert.Contains(t, user, "1. Intro\n2. Body\n3. End")
	assert.Contains(t, user, "Target Word Count: 500 words (acceptable range 450-550 words)")
	assert.Contains(t, user, firstChapterDirective)
	assert.NotContains(t, user, finalChapterDirective)
	assert.NotContains(t, user, "\n\n\n")

	middle, err := b.Chapter(context.Background(), e, chapters[1], shuffled)
	require.NoError(t, err)
	assert.NotContains(t, middle[1].Content, firstChapterDirective)
	assert.NotContains(t, middle[1].Content, finalChapterDirective)

	last, err := b.Chapter(context.Background(), e, chapters[2], shuffled)
	require.NoError(t, err)
	assert.Contains(t, last[1].Content, finalChapterDirective)
}

func TestChapterPromptIsDeterministic(t *testing.T) {
	b := NewBuilder(nil)
	e := sampleEbook()
	chapters := entity.NewChaptersFromTitles(1, []string{"Only"})

	a, err := b.Chapter(context.Background(), e, chapters[0], chapters)
	require.NoError(t, err)
	c, err := b.Chapter(context.Background(), e, chapters[0], chapters)
	require.NoError(t, err)
	assert.Equal(t, a[1].Content, c[1].Content)
	assert.Contains(t, a[1].Content, firstChapterDirective+"\n"+finalChapterDirective)
}

func TestImprovePromptValidation(t *testing.T) {
	b := NewBuilder(nil)

	_, err := b.Improve(context.Background(), "", "shorter")
	assert.Error(t, err)

	msgs, err := b.Improve(context.Background(), "Some {braced} text", "make it shorter")
	require.NoError(t, err)
	assert.Contains(t, msgs[1].Content, "Some {braced} text")
	assert.Contains(t, msgs[1].Content, "instruction: make it shorter")
}

func TestUnknownPromptID(t *testing.T) {
	_, err := NewRegistry().ChatTemplate("nope")
	assert.Error(t, err)
}
