package app

import (
	"bytes"
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"bookstudio/api/internal/llm"
)

// updateContentPattern matches the sentinel block the assistant emits when it
// wants to rewrite the chapter. Dot matches newlines: the rewritten HTML
// spans many lines.
var updateContentPattern = regexp.MustCompile(`(?s)<UPDATE_CONTENT>(.*?)</UPDATE_CONTENT>`)

var chatMarkdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// maxChatContextRunes caps how much chapter content is embedded in the
// system prompt.
const maxChatContextRunes = 5000

// ChatReply is what the editor shows after a ghostwriter turn.
type ChatReply struct {
	Reply          string `json:"reply"`
	ReplyHTML      string `json:"replyHtml"`
	ContentUpdated bool   `json:"contentUpdated"`
}

const ghostwriterSystem = `You are a professional ghostwriter collaborating on a book.
Answer questions about the work and propose improvements.`

const ghostwriterChapterSystem = ghostwriterSystem + `
When the author asks you to change the chapter text, reply with the complete
rewritten chapter HTML wrapped in <UPDATE_CONTENT></UPDATE_CONTENT> tags and
keep any commentary outside the tags. Otherwise never emit those tags.`

// Chat runs one ghostwriter turn. A chapter id is optional: when given, the
// chapter title and current content are embedded in the system prompt and an
// update sentinel in the reply rewrites the chapter content, with the
// sentinel replaced by a short confirmation before the reply is returned.
// Without a chapter the turn is plain conversation.
func (s *Service) Chat(ctx context.Context, chapterID string, history []llm.Message, userMessage string) (ChatReply, error) {
	if strings.TrimSpace(userMessage) == "" {
		return ChatReply{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "message is required", nil)
	}
	if s.chat == nil || !s.chat.Configured() {
		return ChatReply{}, domainError(http.StatusServiceUnavailable, "CHAT_UNAVAILABLE", "The ghostwriter model is not configured", nil)
	}

	chapterID = strings.TrimSpace(chapterID)
	system := ghostwriterSystem
	if chapterID != "" {
		chapter, err := s.GetChapter(ctx, chapterID)
		if err != nil {
			return ChatReply{}, err
		}
		system = ghostwriterChapterSystem + "\n\nChapter title: " + chapter.Title
		if chapter.Content != "" {
			// The model only needs enough context to discuss the chapter;
			// very long chapters would blow the prompt budget.
			content := chapter.Content
			if runes := []rune(content); len(runes) > maxChatContextRunes {
				content = string(runes[:maxChatContextRunes])
			}
			system += "\n\nCurrent chapter content:\n" + content
		}
	}

	raw, err := s.chat.ChatCompletion(ctx, system, history, userMessage)
	if err != nil {
		return ChatReply{}, err
	}

	reply := raw
	updated := false
	if chapterID != "" {
		reply, updated = s.applyContentUpdate(ctx, chapterID, raw)
	}

	var buf bytes.Buffer
	if err := chatMarkdown.Convert([]byte(reply), &buf); err != nil {
		s.log.Warn().Err(err).Str("chapter_id", chapterID).Msg("render chat reply")
		buf.Reset()
	}

	return ChatReply{Reply: reply, ReplyHTML: buf.String(), ContentUpdated: updated}, nil
}

// applyContentUpdate extracts at most one sentinel block, writes it as the
// new chapter content, and strips every sentinel from the visible reply. The
// raw block never reaches the caller, whether the write succeeded or not.
func (s *Service) applyContentUpdate(ctx context.Context, chapterID, raw string) (string, bool) {
	match := updateContentPattern.FindStringSubmatch(raw)
	if match == nil {
		return raw, false
	}

	updated := false
	content := strings.TrimSpace(match[1])
	if content == "" {
		s.log.Warn().Str("chapter_id", chapterID).Msg("empty content update from model; ignored")
	} else if err := s.UpdateChapterContent(ctx, chapterID, content); err != nil {
		s.log.Error().Err(err).Str("chapter_id", chapterID).Msg("apply content update from chat")
	} else {
		updated = true
	}

	note := "\n\n*(The chapter could not be updated; please try again.)*"
	if updated {
		note = "\n\n*(I've updated the chapter content for you.)*"
	}
	reply := strings.TrimSpace(updateContentPattern.ReplaceAllString(raw, ""))
	return reply + note, updated
}
