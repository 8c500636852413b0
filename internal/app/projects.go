package app

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"bookstudio/api/internal/search"
	"bookstudio/api/internal/store"
)

const maxDescriptionRunes = 2000

// Brief is the structured intake form for a new book. The fields are folded
// into the project description because the remote collection has a single
// theme field.
type Brief struct {
	PainPoints     string `json:"painPoints"`
	Transformation string `json:"transformation"`
	CoreMessage    string `json:"coreMessage"`
	AntiGoals      string `json:"antiGoals"`
	AuthorRole     string `json:"authorRole"`
	DraftStructure string `json:"draftStructure"`
}

func (s *Service) ListProjects(ctx context.Context) ([]store.Project, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []store.Project{}
	}
	return projects, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (store.Project, error) {
	if strings.TrimSpace(id) == "" {
		return store.Project{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "project id is required", nil)
	}
	return s.store.GetProject(ctx, id)
}

// CreateProject creates the project record and, when the brief sketches a
// structure, seeds its chapters. Seeding is best effort: the project survives
// even when every chapter insert fails.
func (s *Service) CreateProject(ctx context.Context, title, audience, tone, goal string, brief Brief) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "project title is required", nil)
	}

	description := briefDescription(goal, brief)
	id, err := s.store.CreateProject(ctx, store.ProjectDraft{
		Title:    title,
		Theme:    description,
		Audience: audience,
		Tone:     tone,
		Status:   ProjectStatusIdea,
	})
	if err != nil {
		return "", err
	}

	s.indexProject(search.ProjectRecord{
		ID:       id,
		Title:    title,
		Theme:    description,
		Audience: audience,
		Status:   ProjectStatusIdea,
	})

	if titles := CleanOutline(brief.DraftStructure); len(titles) > 0 {
		if err := s.BulkCreateChapters(ctx, id, titles); err != nil {
			s.log.Warn().Err(err).Str("project_id", id).Msg("seed chapters from draft structure")
		}
	}
	return id, nil
}

// briefDescription joins the goal and the labelled brief sections into one
// description block, then truncates to the remote store's text chunk size so
// the whole brief always fits a single rich-text fragment.
func briefDescription(goal string, b Brief) string {
	sections := []struct{ label, text string }{
		{"Goal", goal},
		{"Pain Points", b.PainPoints},
		{"Transformation", b.Transformation},
		{"Core Message", b.CoreMessage},
		{"Anti-Goals", b.AntiGoals},
		{"Author Role", b.AuthorRole},
		{"Draft Structure", b.DraftStructure},
	}
	var sb strings.Builder
	for _, sec := range sections {
		if strings.TrimSpace(sec.text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(sec.label)
		sb.WriteString(": ")
		sb.WriteString(strings.TrimSpace(sec.text))
	}
	runes := []rune(sb.String())
	if len(runes) > maxDescriptionRunes {
		runes = runes[:maxDescriptionRunes]
	}
	return string(runes)
}

var outlineMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// CleanOutline turns a free-form outline blob into chapter titles, one per
// non-empty line, with leading bullet and number markers stripped.
func CleanOutline(outline string) []string {
	var titles []string
	for _, line := range strings.Split(outline, "\n") {
		title := strings.TrimSpace(outlineMarker.ReplaceAllString(line, ""))
		if title != "" {
			titles = append(titles, title)
		}
	}
	return titles
}

func (s *Service) RenameProject(ctx context.Context, id, title string) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(title) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "project id and title are required", nil)
	}
	if err := s.store.UpdateProjectTitle(ctx, id, title); err != nil {
		return err
	}
	s.reindexProject(ctx, id)
	return nil
}

// DeleteProject archives every chapter of the project and then the project
// record itself. Chapter archival runs as an unordered parallel batch;
// failed chapters are logged but never block archiving the project, since
// archived chapters drop out of queries anyway and a retry would re-archive
// an already-gone project.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "project id is required", nil)
	}

	chapters, err := s.store.ListChapters(ctx, id)
	if err != nil {
		return err
	}

	errs := make([]error, len(chapters))
	var wg sync.WaitGroup
	for i, ch := range chapters {
		wg.Add(1)
		go func(i int, chapterID string) {
			defer wg.Done()
			errs[i] = s.store.Archive(ctx, chapterID)
		}(i, ch.ID)
	}
	wg.Wait()

	s.invalidateChapters(ctx, id)

	for i, archiveErr := range errs {
		if archiveErr != nil {
			s.log.Warn().Err(archiveErr).Str("chapter_id", chapters[i].ID).Msg("archive chapter during cascade")
			continue
		}
		if s.search != nil {
			if err := s.search.DeleteChapter(chapters[i].ID); err != nil {
				s.log.Warn().Err(err).Str("chapter_id", chapters[i].ID).Msg("remove chapter from search index")
			}
		}
	}

	if err := s.store.Archive(ctx, id); err != nil {
		return err
	}
	if s.search != nil {
		if err := s.search.DeleteProject(id); err != nil {
			s.log.Warn().Err(err).Str("project_id", id).Msg("remove project from search index")
		}
	}
	return nil
}

// ProjectBook assembles the current manuscript: every chapter in number
// order, content included.
func (s *Service) ProjectBook(ctx context.Context, id string) (store.Project, []store.Chapter, error) {
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return store.Project{}, nil, err
	}
	chapters, err := s.store.ListChaptersWithContent(ctx, id)
	if err != nil {
		return store.Project{}, nil, err
	}
	if chapters == nil {
		chapters = []store.Chapter{}
	}
	return project, chapters, nil
}

// TriggerPublish flips the project status that the publishing automation
// watches. Before flipping it takes a snapshot of the assembled manuscript;
// the snapshot is best effort and never blocks the publish.
func (s *Service) TriggerPublish(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "project id is required", nil)
	}

	if s.snaps != nil {
		if err := s.snapshotBook(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("project_id", id).Msg("archive manuscript snapshot")
		}
	}
	return s.store.UpdateProjectStatus(ctx, id, ProjectStatusPublish)
}

// TriggerGenerateOutline flips the project status that the outline
// automation watches. The automation writes chapters back through the bulk
// create endpoint.
func (s *Service) TriggerGenerateOutline(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "project id is required", nil)
	}
	return s.store.UpdateProjectStatus(ctx, id, ProjectStatusGenerating)
}

// BindBook asks the binding workflow to produce a document and waits for the
// URL. Unlike the other triggers this call is synchronous by contract.
func (s *Service) BindBook(ctx context.Context, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "project id is required", nil)
	}
	return s.dispatch.BindBook(ctx, id)
}

func (s *Service) snapshotBook(ctx context.Context, id string) error {
	project, chapters, err := s.ProjectBook(ctx, id)
	if err != nil {
		return err
	}
	var sb strings.Builder
	sb.WriteString("<h1>" + project.Title + "</h1>\n")
	for _, ch := range chapters {
		sb.WriteString("<h2>" + ch.Title + "</h2>\n")
		sb.WriteString(ch.Content)
		sb.WriteString("\n")
	}
	key, err := s.snaps.ArchiveBook(ctx, id, project.Title, []byte(sb.String()))
	if err != nil {
		return err
	}
	s.log.Info().Str("project_id", id).Str("object", key).Msg("manuscript snapshot archived")
	return nil
}

func (s *Service) indexProject(record search.ProjectRecord) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexProject(record); err != nil {
		s.log.Warn().Err(err).Str("project_id", record.ID).Msg("index project")
	}
}

func (s *Service) reindexProject(ctx context.Context, id string) {
	if s.search == nil {
		return
	}
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("project_id", id).Msg("reload project for indexing")
		return
	}
	s.indexProject(search.ProjectRecord{
		ID:       project.ID,
		Title:    project.Title,
		Theme:    project.Theme,
		Audience: project.Audience,
		Status:   project.Status,
	})
}
