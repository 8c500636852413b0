package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bookstudio/api/internal/llm"
	"bookstudio/api/internal/search"
	"bookstudio/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	apiToken   string
	log        zerolog.Logger
}

func NewHTTPServer(service *Service, corsOrigin, apiToken string, log zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		apiToken:   apiToken,
		log:        log.With().Str("component", "http").Logger(),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"store": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["store"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/projects" {
		projects, err := s.service.ListProjects(r.Context())
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/projects" {
		var body struct {
			Title    string `json:"title"`
			Audience string `json:"audience"`
			Tone     string `json:"tone"`
			Goal     string `json:"goal"`
			Brief    Brief  `json:"brief"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		id, err := s.service.CreateProject(r.Context(), body.Title, body.Audience, body.Tone, body.Goal, body.Brief)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/chat" {
		var body struct {
			ChapterID string        `json:"chapterId"`
			Message   string        `json:"message"`
			History   []llm.Message `json:"history"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		reply, err := s.service.Chat(r.Context(), body.ChapterID, body.History, body.Message)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		q := r.URL.Query()
		limit := intQuery(q.Get("limit"), 20)
		offset := intQuery(q.Get("offset"), 0)
		response, err := s.service.Search(r.Context(), search.Query{
			Text:            q.Get("q"),
			FilterType:      search.ResultType(q.Get("type")),
			FilterProjectID: q.Get("projectId"),
			Limit:           limit,
			Offset:          offset,
		})
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, response)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "projects" {
		s.handleProject(w, r, parts[2:])
		return
	}
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "chapters" {
		s.handleChapter(w, r, parts[2:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// handleProject routes /api/projects/{id}[/...]; parts starts at the id.
func (s *HTTPServer) handleProject(w http.ResponseWriter, r *http.Request, parts []string) {
	id := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			project, err := s.service.GetProject(r.Context(), id)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, project)
		case http.MethodPut:
			var body struct {
				Title string `json:"title"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			s.finish(w, s.service.RenameProject(r.Context(), id, body.Title))
		case http.MethodDelete:
			s.finish(w, s.service.DeleteProject(r.Context(), id))
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 2 {
		switch {
		case r.Method == http.MethodGet && parts[1] == "chapters":
			chapters, err := s.service.ListChapters(r.Context(), id)
			if err != nil {
				s.fail(w, err)
				return
			}
			if chapters == nil {
				chapters = []store.Chapter{}
			}
			writeJSON(w, http.StatusOK, map[string]any{"chapters": chapters})
			return
		case r.Method == http.MethodPost && parts[1] == "chapters":
			var body struct {
				Title     string  `json:"title"`
				ChapterNo float64 `json:"chapterNo"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.CreateChapter(r.Context(), id, body.Title, body.ChapterNo); err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
			return
		case r.Method == http.MethodGet && parts[1] == "book":
			project, chapters, err := s.service.ProjectBook(r.Context(), id)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"project": project, "chapters": chapters})
			return
		case r.Method == http.MethodPost && parts[1] == "publish":
			s.finish(w, s.service.TriggerPublish(r.Context(), id))
			return
		case r.Method == http.MethodPost && parts[1] == "outline":
			s.finish(w, s.service.TriggerGenerateOutline(r.Context(), id))
			return
		case r.Method == http.MethodPost && parts[1] == "bind":
			docURL, err := s.service.BindBook(r.Context(), id)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"docUrl": docURL})
			return
		}
	}

	if len(parts) == 3 && parts[1] == "chapters" && r.Method == http.MethodPost {
		switch parts[2] {
		case "bulk":
			var body struct {
				Titles []string `json:"titles"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.BulkCreateChapters(r.Context(), id, body.Titles); err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "count": len(body.Titles)})
			return
		case "reorder":
			var body struct {
				OrderedIDs []string `json:"orderedIds"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			s.finish(w, s.service.ReorderChapters(r.Context(), body.OrderedIDs))
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// handleChapter routes /api/chapters/{id}[/...]; parts starts at the id.
func (s *HTTPServer) handleChapter(w http.ResponseWriter, r *http.Request, parts []string) {
	id := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			chapter, err := s.service.GetChapter(r.Context(), id)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, chapter)
		case http.MethodDelete:
			s.finish(w, s.service.DeleteChapter(r.Context(), id))
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 2 {
		switch {
		case r.Method == http.MethodPut && parts[1] == "title":
			var body struct {
				Title string `json:"title"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			s.finish(w, s.service.UpdateChapterTitle(r.Context(), id, body.Title))
			return
		case r.Method == http.MethodPut && parts[1] == "number":
			var body struct {
				ChapterNo float64 `json:"chapterNo"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			s.finish(w, s.service.UpdateChapterNumber(r.Context(), id, body.ChapterNo))
			return
		case r.Method == http.MethodPut && parts[1] == "content":
			var body struct {
				Content string `json:"content"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			s.finish(w, s.service.UpdateChapterContent(r.Context(), id, body.Content))
			return
		case r.Method == http.MethodPost && parts[1] == "generate":
			s.finish(w, s.service.TriggerGenerate(r.Context(), id))
			return
		case r.Method == http.MethodPost && parts[1] == "reset-status":
			s.finish(w, s.service.ResetChapterStatus(r.Context(), id))
			return
		case r.Method == http.MethodGet && parts[1] == "history":
			history, err := s.service.ChapterHistory(r.Context(), id)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"revisions": history})
			return
		}
	}

	if len(parts) == 3 && parts[1] == "history" && r.Method == http.MethodGet {
		content, err := s.service.ChapterRevision(r.Context(), id, parts[2])
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"hash": parts[2], "content": content})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// authorized enforces the optional static bearer token. Health and readiness
// are handled before this check so probes never need credentials.
func (s *HTTPServer) authorized(r *http.Request) bool {
	if s.apiToken == "" {
		return true
	}
	return bearerToken(r) == s.apiToken
}

func (s *HTTPServer) finish(w http.ResponseWriter, err error) {
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) fail(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Int("status", status).Str("code", code).Msg("request failed")
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var remoteErr *store.RemoteError
	if errors.As(err, &remoteErr) {
		if remoteErr.Status == http.StatusNotFound {
			return http.StatusNotFound, "NOT_FOUND", "Not found", nil
		}
		return http.StatusBadGateway, "REMOTE_STORE_ERROR", "Remote store request failed",
			map[string]any{"upstreamStatus": remoteErr.Status}
	}
	if errors.Is(err, store.ErrNotConfigured) {
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Remote store is not configured", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
