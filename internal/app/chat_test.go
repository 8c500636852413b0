package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"bookstudio/api/internal/config"
	"bookstudio/api/internal/llm"
	"bookstudio/api/internal/store"
)

func newChatService(fs *fakeStore, chat *fakeChat) *Service {
	return New(config.Config{}, fs, &fakeDispatcher{}, chat, zerolog.Nop())
}

func TestChatUnavailableWithoutModel(t *testing.T) {
	svc := newChatService(&fakeStore{}, &fakeChat{configured: false})

	_, err := svc.Chat(context.Background(), "ch-1", nil, "hello")
	if code := domainCode(t, err); code != "CHAT_UNAVAILABLE" {
		t.Fatalf("expected CHAT_UNAVAILABLE, got %s", code)
	}
}

func TestChatPassesChapterContextToModel(t *testing.T) {
	var system string
	fs := &fakeStore{
		getChapterFn: func(_ context.Context, id string) (store.Chapter, error) {
			return store.Chapter{ID: id, Title: "The Method", Content: "<p>old text</p>"}, nil
		},
	}
	chat := &fakeChat{
		configured: true,
		chatCompletionFn: func(_ context.Context, sys string, _ []llm.Message, _ string) (string, error) {
			system = sys
			return "Sounds good.", nil
		},
	}
	svc := newChatService(fs, chat)

	reply, err := svc.Chat(context.Background(), "ch-1", nil, "thoughts?")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(system, "The Method") || !strings.Contains(system, "<p>old text</p>") {
		t.Fatalf("expected chapter context in system prompt, got %q", system)
	}
	if reply.ContentUpdated {
		t.Fatalf("expected no content update for a plain reply")
	}
	if reply.Reply != "Sounds good." {
		t.Fatalf("unexpected reply %q", reply.Reply)
	}
	if !strings.Contains(reply.ReplyHTML, "Sounds good.") {
		t.Fatalf("expected rendered reply, got %q", reply.ReplyHTML)
	}
}

func TestChatWithoutChapterSkipsChapterLoad(t *testing.T) {
	var system string
	fs := &fakeStore{
		getChapterFn: func(context.Context, string) (store.Chapter, error) {
			t.Fatal("unexpected chapter read for a chapter-less turn")
			return store.Chapter{}, nil
		},
	}
	chat := &fakeChat{
		configured: true,
		chatCompletionFn: func(_ context.Context, sys string, _ []llm.Message, _ string) (string, error) {
			system = sys
			return "Open one from the chapter list.", nil
		},
	}
	svc := newChatService(fs, chat)

	reply, err := svc.Chat(context.Background(), "", nil, "how do I open a chapter?")
	if err != nil {
		t.Fatalf("chat without a chapter: %v", err)
	}
	if strings.Contains(system, "UPDATE_CONTENT") {
		t.Fatalf("expected no update instructions without a chapter, got %q", system)
	}
	if reply.ContentUpdated {
		t.Fatalf("expected no content update without a chapter")
	}
	if reply.Reply != "Open one from the chapter list." {
		t.Fatalf("unexpected reply %q", reply.Reply)
	}
}

func TestChatAppliesContentUpdateSentinel(t *testing.T) {
	var written string
	fs := &fakeStore{
		getChapterFn: func(_ context.Context, id string) (store.Chapter, error) {
			return store.Chapter{ID: id, Title: "The Method", ProjectID: "project-1"}, nil
		},
		updateChapterContentFn: func(_ context.Context, _ string, content string) error {
			written = content
			return nil
		},
	}
	chat := &fakeChat{
		configured: true,
		chatCompletionFn: func(context.Context, string, []llm.Message, string) (string, error) {
			return "Here you go!\n<UPDATE_CONTENT>\n<p>new text</p>\n</UPDATE_CONTENT>", nil
		},
	}
	svc := newChatService(fs, chat)

	reply, err := svc.Chat(context.Background(), "ch-1", nil, "rewrite it")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if written != "<p>new text</p>" {
		t.Fatalf("expected trimmed content written, got %q", written)
	}
	if !reply.ContentUpdated {
		t.Fatalf("expected ContentUpdated")
	}
	if strings.Contains(reply.Reply, "UPDATE_CONTENT") || strings.Contains(reply.Reply, "<p>new text</p>") {
		t.Fatalf("raw sentinel leaked into reply: %q", reply.Reply)
	}
	if !strings.Contains(reply.Reply, "updated the chapter content") {
		t.Fatalf("expected confirmation note, got %q", reply.Reply)
	}
}

func TestChatHidesSentinelWhenUpdateFails(t *testing.T) {
	fs := &fakeStore{
		updateChapterContentFn: func(context.Context, string, string) error {
			return errors.New("store down")
		},
	}
	chat := &fakeChat{
		configured: true,
		chatCompletionFn: func(context.Context, string, []llm.Message, string) (string, error) {
			return "<UPDATE_CONTENT><p>new text</p></UPDATE_CONTENT>", nil
		},
	}
	svc := newChatService(fs, chat)

	reply, err := svc.Chat(context.Background(), "ch-1", nil, "rewrite it")
	if err != nil {
		t.Fatalf("expected chat to survive a failed update, got %v", err)
	}
	if reply.ContentUpdated {
		t.Fatalf("expected ContentUpdated false after failed write")
	}
	if strings.Contains(reply.Reply, "UPDATE_CONTENT") {
		t.Fatalf("raw sentinel leaked into reply: %q", reply.Reply)
	}
	if !strings.Contains(reply.Reply, "could not be updated") {
		t.Fatalf("expected failure note, got %q", reply.Reply)
	}
}
