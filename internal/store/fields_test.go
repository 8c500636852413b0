package store

import (
	"strings"
	"testing"
)

func TestChunkTextRoundTrip(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"short":          "hello",
		"exact boundary": strings.Repeat("a", maxTextChunk),
		"one over":       strings.Repeat("a", maxTextChunk+1),
		"long":           strings.Repeat("abc", 3000),
		"multibyte":      strings.Repeat("世界", 2500),
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			chunks := ChunkText(text)
			for i, chunk := range chunks {
				if n := len([]rune(chunk.Text.Content)); n > maxTextChunk {
					t.Fatalf("chunk %d has %d runes", i, n)
				}
			}
			if got := joinRichText(chunks); got != text {
				t.Fatalf("round trip mismatch: %d runes in, %d out", len([]rune(text)), len([]rune(got)))
			}
		})
	}
}

func TestChunkTextNeverSplitsRunes(t *testing.T) {
	text := strings.Repeat("界", maxTextChunk+10)
	for _, chunk := range ChunkText(text) {
		if !strings.HasPrefix(chunk.Text.Content, "界") {
			t.Fatalf("chunk starts mid-rune: %q", chunk.Text.Content[:4])
		}
	}
}

func TestReadersFailClosedOnMissingWrappers(t *testing.T) {
	var empty Property
	if empty.PlainTitle() != "" || empty.PlainText() != "" {
		t.Fatalf("expected empty text from zero property")
	}
	if empty.NumberValue() != 0 {
		t.Fatalf("expected zero number")
	}
	if empty.SelectName() != "" {
		t.Fatalf("expected empty select")
	}
	if len(empty.RelationIDs()) != 0 {
		t.Fatalf("expected no relations")
	}
	if empty.HasText() {
		t.Fatalf("expected HasText false")
	}
}

func TestJoinRichTextPrefersPlainText(t *testing.T) {
	entries := []RichText{
		{PlainText: "rendered ", Text: &TextValue{Content: "raw "}},
		{Text: &TextValue{Content: "fallback"}},
	}
	if got := joinRichText(entries); got != "rendered fallback" {
		t.Fatalf("unexpected join %q", got)
	}
}

func TestProjectFromRecordDefaults(t *testing.T) {
	project := projectFromRecord(Record{ID: "p-1"})
	if project.Title != "Untitled Project" {
		t.Fatalf("expected title default, got %q", project.Title)
	}
	if project.Status != "Planning" {
		t.Fatalf("expected status default, got %q", project.Status)
	}
}

func TestChapterFromRecordDerivesHasContentWithoutContent(t *testing.T) {
	record := Record{
		ID: "ch-1",
		Properties: map[string]Property{
			fieldChapterTitle: TitleProperty("The Method"),
			fieldChapterNo:    NumberProperty(3),
			fieldStatus:       SelectProperty("Drafting"),
			fieldContent:      RichTextProperty("<p>body</p>"),
			fieldBookSeries:   RelationProperty("p-1"),
		},
	}

	summary := chapterFromRecord(record, false)
	if !summary.HasContent {
		t.Fatalf("expected hasContent true")
	}
	if summary.Content != "" {
		t.Fatalf("expected no content in summary, got %q", summary.Content)
	}
	if summary.ProjectID != "p-1" {
		t.Fatalf("expected project relation, got %q", summary.ProjectID)
	}
	if summary.ChapterNo != 3 {
		t.Fatalf("expected chapter number 3, got %v", summary.ChapterNo)
	}

	full := chapterFromRecord(record, true)
	if full.Content != "<p>body</p>" {
		t.Fatalf("expected full content, got %q", full.Content)
	}
}

func TestChapterFromRecordDefaults(t *testing.T) {
	chapter := chapterFromRecord(Record{ID: "ch-1"}, false)
	if chapter.Title != "Untitled" {
		t.Fatalf("expected title default, got %q", chapter.Title)
	}
	if chapter.Status != "To Do" {
		t.Fatalf("expected status default, got %q", chapter.Status)
	}
	if chapter.HasContent {
		t.Fatalf("expected hasContent false for empty record")
	}
}
