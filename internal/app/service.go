package app

import (
	"context"

	"github.com/rs/zerolog"

	"bookstudio/api/internal/config"
	"bookstudio/api/internal/llm"
	"bookstudio/api/internal/revs"
	"bookstudio/api/internal/search"
	"bookstudio/api/internal/store"
)

// Chapter statuses. The remote store enforces no transition graph; these are
// the values the UI and the generation workflow understand.
const (
	StatusToDo      = "To Do"
	StatusDrafting  = "Drafting"
	StatusReviewing = "Reviewing"
	StatusApproved  = "Approved"
	StatusDone      = "Done"
)

// Project statuses watched by the external automation.
const (
	ProjectStatusIdea       = "Idea"
	ProjectStatusGenerating = "Generating Content"
	ProjectStatusPublish    = "Publish"
)

type dataStore interface {
	Ping(ctx context.Context) error
	ListProjects(ctx context.Context) ([]store.Project, error)
	GetProject(ctx context.Context, id string) (store.Project, error)
	CreateProject(ctx context.Context, draft store.ProjectDraft) (string, error)
	UpdateProjectTitle(ctx context.Context, id, title string) error
	UpdateProjectStatus(ctx context.Context, id, status string) error
	ListChapters(ctx context.Context, projectID string) ([]store.Chapter, error)
	ListChaptersWithContent(ctx context.Context, projectID string) ([]store.Chapter, error)
	GetChapter(ctx context.Context, id string) (store.Chapter, error)
	CreateChapter(ctx context.Context, projectID, title string, chapterNo float64, status string) (string, error)
	UpdateChapterTitle(ctx context.Context, id, title string) error
	UpdateChapterNumber(ctx context.Context, id string, chapterNo float64) error
	UpdateChapterStatus(ctx context.Context, id, status string) error
	UpdateChapterContent(ctx context.Context, id, content string) error
	Archive(ctx context.Context, id string) error
}

type workDispatcher interface {
	TriggerGhostwriter(ctx context.Context, chapterID string) error
	BindBook(ctx context.Context, projectID string) (string, error)
}

type chatClient interface {
	Configured() bool
	ChatCompletion(ctx context.Context, system string, history []llm.Message, user string) (string, error)
}

type listCache interface {
	Get(ctx context.Context, projectID string) ([]store.Chapter, bool)
	Put(ctx context.Context, projectID string, chapters []store.Chapter) error
	Invalidate(ctx context.Context, projectID string) error
	InvalidateAll(ctx context.Context) error
}

type searchIndex interface {
	Search(q search.Query) ([]search.Result, int, error)
	Healthy() bool
	IndexProject(p search.ProjectRecord) error
	IndexChapter(c search.ChapterRecord) error
	DeleteProject(id string) error
	DeleteChapter(id string) error
}

type revisionLog interface {
	CommitChapter(projectID, chapterID, title, html, author string) (string, error)
	ChapterHistory(projectID, chapterID string, limit int) ([]revs.Revision, error)
	RevisionContent(projectID, chapterID, hash string) (string, error)
}

type bookArchiver interface {
	ArchiveBook(ctx context.Context, projectID, title string, html []byte) (string, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	dispatch workDispatcher
	chat     chatClient
	log      zerolog.Logger

	// optional collaborators; nil when not configured
	cache  listCache
	search searchIndex
	revs   revisionLog
	snaps  bookArchiver
}

func New(cfg config.Config, store dataStore, dispatcher workDispatcher, chat chatClient, log zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		dispatch: dispatcher,
		chat:     chat,
		log:      log.With().Str("component", "app").Logger(),
	}
}

func (s *Service) UseCache(c listCache) *Service       { s.cache = c; return s }
func (s *Service) UseSearch(m searchIndex) *Service    { s.search = m; return s }
func (s *Service) UseRevisions(r revisionLog) *Service { s.revs = r; return s }
func (s *Service) UseArchiver(a bookArchiver) *Service { s.snaps = a; return s }

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Search runs a full-text query across projects and chapters.
func (s *Service) Search(ctx context.Context, q search.Query) (search.Response, error) {
	if s.search == nil {
		return search.Response{}, domainError(503, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
	}
	results, total, err := s.search.Search(q)
	if err != nil {
		return search.Response{}, err
	}
	if results == nil {
		results = []search.Result{}
	}
	return search.Response{Results: results, Total: total, Query: q.Text}, nil
}
