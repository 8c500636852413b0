// Package store is the client for the remote record store that acts as the
// system of record for Projects and Chapters. It speaks the store's query
// protocol and normalizes its per-field wrapper shapes at this boundary so the
// rest of the service never sees them.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RemoteError carries the upstream status and body of a failed store call.
// Calls are never retried; callers must not assume partial results.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote store error (%d): %s", e.Status, e.Body)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	version    string
	log        zerolog.Logger
}

func NewClient(baseURL, apiKey, version string, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		version:    version,
		log:        log.With().Str("component", "store").Logger(),
	}
}

// Filter is a structural predicate in the store's query JSON.
type Filter map[string]any

// RelationContains matches records whose relation property contains id.
func RelationContains(property, id string) Filter {
	return Filter{
		"property": property,
		"relation": map[string]any{"contains": id},
	}
}

// Sort orders a query by a named property or by a store-maintained timestamp.
type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

// Record is one page of the remote store with its loosely-typed properties.
type Record struct {
	ID             string              `json:"id"`
	Archived       bool                `json:"archived"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Properties     map[string]Property `json:"properties"`
}

type queryPage struct {
	Results    []Record `json:"results"`
	HasMore    bool     `json:"has_more"`
	NextCursor string   `json:"next_cursor"`
}

// Query runs a filtered, sorted query against a collection and accumulates
// every cursor page before returning. Callers never see a partial page.
func (c *Client) Query(ctx context.Context, collectionID string, filter Filter, sorts []Sort) ([]Record, error) {
	var all []Record
	cursor := ""
	for {
		page, err := c.queryPage(ctx, collectionID, filter, sorts, cursor, 0)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if !page.HasMore || page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

func (c *Client) queryPage(ctx context.Context, collectionID string, filter Filter, sorts []Sort, cursor string, pageSize int) (queryPage, error) {
	body := map[string]any{}
	if filter != nil {
		body["filter"] = filter
	}
	if len(sorts) > 0 {
		body["sorts"] = sorts
	}
	if cursor != "" {
		body["start_cursor"] = cursor
	}
	if pageSize > 0 {
		body["page_size"] = pageSize
	}

	var page queryPage
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/query", collectionID), body, &page)
	if err != nil {
		return queryPage{}, err
	}
	return page, nil
}

// CreateRecord inserts a record into a collection and returns its store-assigned id.
func (c *Client) CreateRecord(ctx context.Context, collectionID string, fields map[string]Property) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s", collectionID), map[string]any{"fields": fields}, &created)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// GetRecord fetches a single record with its full property values.
func (c *Client) GetRecord(ctx context.Context, id string) (Record, error) {
	var record Record
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/records/%s", id), nil, &record)
	if err != nil {
		return Record{}, err
	}
	return record, nil
}

// UpdateRecord applies a partial update; only the given fields change.
func (c *Client) UpdateRecord(ctx context.Context, id string, fields map[string]Property) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/records/%s", id), map[string]any{"fields": fields}, nil)
}

// ArchiveRecord soft-deletes a record. Archived records drop out of queries
// but are never physically removed.
func (c *Client) ArchiveRecord(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/records/%s", id), map[string]any{"archived": true}, nil)
}

// Ping issues a minimal single-page query, for readiness checks.
func (c *Client) Ping(ctx context.Context, collectionID string) error {
	_, err := c.queryPage(ctx, collectionID, nil, nil, "", 1)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Store-Version", c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Error().Int("status", resp.StatusCode).Str("path", path).Msg("store call failed")
		return &RemoteError{Status: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
