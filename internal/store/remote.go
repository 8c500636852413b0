package store

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a collection id required by an operation
// is missing from the configuration.
var ErrNotConfigured = errors.New("store collection not configured")

// RemoteStore exposes typed Project/Chapter operations over the raw client.
type RemoteStore struct {
	client     *Client
	projectsID string
	chaptersID string
}

func NewRemoteStore(client *Client, projectsID, chaptersID string) *RemoteStore {
	return &RemoteStore{client: client, projectsID: projectsID, chaptersID: chaptersID}
}

func (s *RemoteStore) Ping(ctx context.Context) error {
	if s.projectsID == "" {
		return ErrNotConfigured
	}
	return s.client.Ping(ctx, s.projectsID)
}

// ListProjects returns every project, most recently edited first.
func (s *RemoteStore) ListProjects(ctx context.Context) ([]Project, error) {
	if s.projectsID == "" {
		return nil, ErrNotConfigured
	}
	records, err := s.client.Query(ctx, s.projectsID, nil, []Sort{
		{Timestamp: "last_edited_time", Direction: "descending"},
	})
	if err != nil {
		return nil, err
	}
	projects := make([]Project, 0, len(records))
	for _, r := range records {
		projects = append(projects, projectFromRecord(r))
	}
	return projects, nil
}

func (s *RemoteStore) GetProject(ctx context.Context, id string) (Project, error) {
	record, err := s.client.GetRecord(ctx, id)
	if err != nil {
		return Project{}, err
	}
	return projectFromRecord(record), nil
}

func (s *RemoteStore) CreateProject(ctx context.Context, draft ProjectDraft) (string, error) {
	if s.projectsID == "" {
		return "", ErrNotConfigured
	}
	fields := map[string]Property{
		fieldBookTitle: TitleProperty(draft.Title),
		fieldTheme:     RichTextProperty(draft.Theme),
		fieldAudience:  RichTextProperty(draft.Audience),
		fieldStatus:    SelectProperty(draft.Status),
	}
	if draft.Tone != "" {
		fields[fieldTone] = SelectProperty(draft.Tone)
	}
	return s.client.CreateRecord(ctx, s.projectsID, fields)
}

func (s *RemoteStore) UpdateProjectTitle(ctx context.Context, id, title string) error {
	return s.client.UpdateRecord(ctx, id, map[string]Property{
		fieldBookTitle: TitleProperty(title),
	})
}

func (s *RemoteStore) UpdateProjectStatus(ctx context.Context, id, status string) error {
	return s.client.UpdateRecord(ctx, id, map[string]Property{
		fieldStatus: SelectProperty(status),
	})
}

// ListChapters returns chapter summaries for a project, ascending by chapter
// number. Content is never transferred here; hasContent is derived from the
// wrapper so the list stays cheap.
func (s *RemoteStore) ListChapters(ctx context.Context, projectID string) ([]Chapter, error) {
	return s.listChapters(ctx, projectID, false)
}

// ListChaptersWithContent returns the full chapters for export and binding.
func (s *RemoteStore) ListChaptersWithContent(ctx context.Context, projectID string) ([]Chapter, error) {
	return s.listChapters(ctx, projectID, true)
}

func (s *RemoteStore) listChapters(ctx context.Context, projectID string, withContent bool) ([]Chapter, error) {
	if s.chaptersID == "" {
		return nil, ErrNotConfigured
	}
	var filter Filter
	if projectID != "" {
		filter = RelationContains(fieldBookSeries, projectID)
	}
	records, err := s.client.Query(ctx, s.chaptersID, filter, []Sort{
		{Property: fieldChapterNo, Direction: "ascending"},
	})
	if err != nil {
		return nil, err
	}
	chapters := make([]Chapter, 0, len(records))
	for _, r := range records {
		chapters = append(chapters, chapterFromRecord(r, withContent))
	}
	return chapters, nil
}

func (s *RemoteStore) GetChapter(ctx context.Context, id string) (Chapter, error) {
	record, err := s.client.GetRecord(ctx, id)
	if err != nil {
		return Chapter{}, err
	}
	return chapterFromRecord(record, true), nil
}

func (s *RemoteStore) CreateChapter(ctx context.Context, projectID, title string, chapterNo float64, status string) (string, error) {
	if s.chaptersID == "" {
		return "", ErrNotConfigured
	}
	return s.client.CreateRecord(ctx, s.chaptersID, map[string]Property{
		fieldChapterTitle: TitleProperty(title),
		fieldChapterNo:    NumberProperty(chapterNo),
		fieldStatus:       SelectProperty(status),
		fieldBookSeries:   RelationProperty(projectID),
	})
}

func (s *RemoteStore) UpdateChapterTitle(ctx context.Context, id, title string) error {
	return s.client.UpdateRecord(ctx, id, map[string]Property{
		fieldChapterTitle: TitleProperty(title),
	})
}

func (s *RemoteStore) UpdateChapterNumber(ctx context.Context, id string, chapterNo float64) error {
	return s.client.UpdateRecord(ctx, id, map[string]Property{
		fieldChapterNo: NumberProperty(chapterNo),
	})
}

func (s *RemoteStore) UpdateChapterStatus(ctx context.Context, id, status string) error {
	return s.client.UpdateRecord(ctx, id, map[string]Property{
		fieldStatus: SelectProperty(status),
	})
}

func (s *RemoteStore) UpdateChapterContent(ctx context.Context, id, content string) error {
	return s.client.UpdateRecord(ctx, id, map[string]Property{
		fieldContent: RichTextProperty(content),
	})
}

// Archive soft-deletes a record of either collection.
func (s *RemoteStore) Archive(ctx context.Context, id string) error {
	return s.client.ArchiveRecord(ctx, id)
}
