// Package dispatch calls the workflow webhooks that perform the actual
// content-generation and document-binding work outside this service.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Dispatcher struct {
	httpClient     *http.Client
	ghostwriterURL string
	binderURL      string
	log            zerolog.Logger
}

func New(ghostwriterURL, binderURL string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		httpClient:     &http.Client{Timeout: 120 * time.Second},
		ghostwriterURL: ghostwriterURL,
		binderURL:      binderURL,
		log:            log.With().Str("component", "dispatch").Logger(),
	}
}

// TriggerGhostwriter notifies the content-generation workflow for a chapter.
// The response body is ignored; only success/failure matters to callers.
func (d *Dispatcher) TriggerGhostwriter(ctx context.Context, chapterID string) error {
	if d.ghostwriterURL == "" {
		return fmt.Errorf("ghostwriter webhook not configured")
	}
	eventID := uuid.NewString()
	resp, err := d.post(ctx, d.ghostwriterURL, map[string]string{
		"chapterId": chapterID,
		"eventId":   eventID,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ghostwriter webhook failed (%d): %s", resp.StatusCode, string(raw))
	}
	d.log.Info().Str("chapter_id", chapterID).Str("event_id", eventID).Msg("ghostwriter triggered")
	return nil
}

// BindBook asks the document-binder workflow to assemble the book and waits
// for its synchronous response, which carries the bound document URL.
func (d *Dispatcher) BindBook(ctx context.Context, projectID string) (string, error) {
	if d.binderURL == "" {
		return "", fmt.Errorf("book binder webhook not configured")
	}
	resp, err := d.post(ctx, d.binderURL, map[string]string{
		"projectId": projectID,
		"eventId":   uuid.NewString(),
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("book binder failed (%d): %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		DocURL string `json:"docUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode binder response: %w", err)
	}
	if parsed.DocURL == "" {
		return "", fmt.Errorf("binder response missing docUrl")
	}
	return parsed.DocURL, nil
}

func (d *Dispatcher) post(ctx context.Context, url string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook call: %w", err)
	}
	return resp, nil
}
