package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestListChaptersFiltersByProjectRelation(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(queryPage{Results: []Record{{ID: "ch-1"}}})
	})
	remote := NewRemoteStore(client, "projects-col", "chapters-col")

	chapters, err := remote.ListChapters(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("list chapters: %v", err)
	}
	if len(chapters) != 1 {
		t.Fatalf("expected one chapter, got %d", len(chapters))
	}
	if chapters[0].Content != "" || chapters[0].HasContent {
		t.Fatalf("expected content-free summary, got %+v", chapters[0])
	}

	raw, _ := json.Marshal(body["filter"])
	if !strings.Contains(string(raw), "Book Series") || !strings.Contains(string(raw), "p-1") {
		t.Fatalf("expected relation filter on Book Series, got %s", raw)
	}
	sorts, _ := json.Marshal(body["sorts"])
	if !strings.Contains(string(sorts), "Chapter No.") || !strings.Contains(string(sorts), "ascending") {
		t.Fatalf("expected ascending chapter number sort, got %s", sorts)
	}
}

func TestCreateProjectOmitsEmptyTone(t *testing.T) {
	var fields map[string]json.RawMessage
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Fields map[string]json.RawMessage `json:"fields"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		fields = body.Fields
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "p-1"})
	})
	remote := NewRemoteStore(client, "projects-col", "chapters-col")

	if _, err := remote.CreateProject(context.Background(), ProjectDraft{Title: "My Book", Status: "Idea"}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, ok := fields["Tone Of Voice"]; ok {
		t.Fatalf("expected empty tone omitted, got %v", fields)
	}
	if _, ok := fields["Book Title"]; !ok {
		t.Fatalf("expected title field, got %v", fields)
	}
}

func TestUpdateChapterContentChunksLongText(t *testing.T) {
	var property Property
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Fields map[string]Property `json:"fields"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		property = body.Fields["Content(HTML)"]
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "ch-1"})
	})
	remote := NewRemoteStore(client, "projects-col", "chapters-col")

	content := strings.Repeat("x", maxTextChunk*2+500)
	if err := remote.UpdateChapterContent(context.Background(), "ch-1", content); err != nil {
		t.Fatalf("update content: %v", err)
	}
	if len(property.RichText) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(property.RichText))
	}
	if got := joinRichText(property.RichText); got != content {
		t.Fatalf("expected chunks to reassemble the content")
	}
}

func TestOperationsFailWithoutCollectionIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected remote call %s %s", r.Method, r.URL.Path)
	})
	remote := NewRemoteStore(client, "", "")

	if _, err := remote.ListProjects(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := remote.ListChapters(context.Background(), "p-1"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := remote.Ping(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
