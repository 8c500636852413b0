package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"bookstudio/api/internal/revs"
	"bookstudio/api/internal/search"
	"bookstudio/api/internal/store"
)

// ListChapters returns the summary list for a project (or every chapter when
// projectID is empty), served from the cache when possible. Summaries never
// carry content; hasContent is derived by the store mapping.
func (s *Service) ListChapters(ctx context.Context, projectID string) ([]store.Chapter, error) {
	if s.cache != nil {
		if chapters, ok := s.cache.Get(ctx, projectID); ok {
			return chapters, nil
		}
	}
	chapters, err := s.store.ListChapters(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, projectID, chapters); err != nil {
			s.log.Warn().Err(err).Msg("cache chapter list")
		}
	}
	return chapters, nil
}

func (s *Service) GetChapter(ctx context.Context, id string) (store.Chapter, error) {
	if strings.TrimSpace(id) == "" {
		return store.Chapter{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "chapter id is required", nil)
	}
	return s.store.GetChapter(ctx, id)
}

// CreateChapter adds a single chapter. The chapter number is taken as given:
// 0 and 99 are reserved by convention for introduction and appendix chapters,
// and duplicates are allowed.
func (s *Service) CreateChapter(ctx context.Context, projectID, title string, chapterNo float64) error {
	if strings.TrimSpace(projectID) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "project id is required", nil)
	}
	if strings.TrimSpace(title) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "chapter title is required", nil)
	}

	id, err := s.store.CreateChapter(ctx, projectID, title, chapterNo, StatusDrafting)
	if err != nil {
		return err
	}
	s.invalidateChapters(ctx, projectID)
	s.indexChapter(search.ChapterRecord{ID: id, Title: title, ProjectID: projectID, Status: StatusDrafting})
	return nil
}

// BulkCreateChapters seeds a project's structure from an ordered list of
// titles, numbering them 1..N. The whole call refuses to run when the project
// already has chapters, so two automation triggers racing on the same project
// cannot double-insert. The existence check and the creation burst are not
// atomic; that window is accepted.
func (s *Service) BulkCreateChapters(ctx context.Context, projectID string, titles []string) error {
	if strings.TrimSpace(projectID) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "project id is required", nil)
	}
	if len(titles) == 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "at least one chapter title is required", nil)
	}

	existing, err := s.store.ListChapters(ctx, projectID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return domainError(http.StatusConflict, "CHAPTERS_EXIST", "Chapters already exist for this project", nil)
	}

	// Unordered parallel batch; the store may apply creations in any order
	// and partial failure leaves the applied subset in place.
	errs := make([]error, len(titles))
	ids := make([]string, len(titles))
	var wg sync.WaitGroup
	for i, title := range titles {
		wg.Add(1)
		go func(i int, title string) {
			defer wg.Done()
			ids[i], errs[i] = s.store.CreateChapter(ctx, projectID, title, float64(i+1), StatusToDo)
		}(i, title)
	}
	wg.Wait()

	s.invalidateChapters(ctx, projectID)
	for i := range titles {
		if errs[i] == nil {
			s.indexChapter(search.ChapterRecord{ID: ids[i], Title: titles[i], ProjectID: projectID, Status: StatusToDo})
		}
	}

	if failed := failedSubjects(titles, errs); len(failed) > 0 {
		return domainError(http.StatusBadGateway, "BULK_CREATE_FAILED",
			fmt.Sprintf("failed to create %d of %d chapters", len(failed), len(titles)),
			map[string]any{"failed": failed})
	}
	return nil
}

// ReorderChapters rewrites the number of every listed chapter to a dense
// 1..N sequence following the given order. Prior numbering, including the
// 0/99 sentinels, is discarded. Updates go out as an unordered parallel
// batch with no rollback on partial failure.
func (s *Service) ReorderChapters(ctx context.Context, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "ordered chapter ids are required", nil)
	}

	errs := make([]error, len(orderedIDs))
	var wg sync.WaitGroup
	for i, id := range orderedIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = s.store.UpdateChapterNumber(ctx, id, float64(i+1))
		}(i, id)
	}
	wg.Wait()

	s.invalidateAllChapters(ctx)

	if failed := failedSubjects(orderedIDs, errs); len(failed) > 0 {
		return domainError(http.StatusBadGateway, "REORDER_FAILED",
			fmt.Sprintf("failed to renumber %d of %d chapters", len(failed), len(orderedIDs)),
			map[string]any{"failed": failed})
	}
	return nil
}

func (s *Service) UpdateChapterTitle(ctx context.Context, id, title string) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(title) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "chapter id and title are required", nil)
	}
	if err := s.store.UpdateChapterTitle(ctx, id, title); err != nil {
		return err
	}
	s.invalidateAllChapters(ctx)
	s.reindexChapter(ctx, id)
	return nil
}

// UpdateChapterNumber accepts any numeric value, sentinels included, and
// never normalizes it against existing numbers.
func (s *Service) UpdateChapterNumber(ctx context.Context, id string, chapterNo float64) error {
	if strings.TrimSpace(id) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "chapter id is required", nil)
	}
	if err := s.store.UpdateChapterNumber(ctx, id, chapterNo); err != nil {
		return err
	}
	s.invalidateAllChapters(ctx)
	return nil
}

// UpdateChapterContent writes the chapter HTML (chunked by the store client)
// and performs the best-effort side effects: a revision commit, a search
// re-index, and cache invalidation.
func (s *Service) UpdateChapterContent(ctx context.Context, id, content string) error {
	if strings.TrimSpace(id) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "chapter id is required", nil)
	}
	if content == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content is required", nil)
	}

	// Read the summary first so the revision commit and re-index know the
	// title and owning project. Failure here only degrades side effects.
	chapter, chapterErr := s.store.GetChapter(ctx, id)
	if chapterErr != nil {
		s.log.Warn().Err(chapterErr).Str("chapter_id", id).Msg("load chapter before content update")
	}

	if err := s.store.UpdateChapterContent(ctx, id, content); err != nil {
		return err
	}

	if s.revs != nil && chapterErr == nil && chapter.ProjectID != "" {
		if _, err := s.revs.CommitChapter(chapter.ProjectID, id, chapter.Title, content, "studio"); err != nil {
			s.log.Warn().Err(err).Str("chapter_id", id).Msg("record content revision")
		}
	}
	if chapterErr == nil {
		s.indexChapter(search.ChapterRecord{
			ID:        id,
			Title:     chapter.Title,
			Content:   content,
			ProjectID: chapter.ProjectID,
			Status:    chapter.Status,
		})
	}
	s.invalidateAllChapters(ctx)
	return nil
}

// DeleteChapter archives the record. Nothing is ever physically removed.
func (s *Service) DeleteChapter(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "chapter id is required", nil)
	}
	if err := s.store.Archive(ctx, id); err != nil {
		return err
	}
	if s.search != nil {
		if err := s.search.DeleteChapter(id); err != nil {
			s.log.Warn().Err(err).Str("chapter_id", id).Msg("remove chapter from search index")
		}
	}
	s.invalidateAllChapters(ctx)
	return nil
}

// ResetChapterStatus is the manual escape hatch for a generation job that
// never reported back: it forces the status back to idle. There is no
// automatic staleness detection.
func (s *Service) ResetChapterStatus(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "chapter id is required", nil)
	}
	if err := s.store.UpdateChapterStatus(ctx, id, StatusToDo); err != nil {
		return err
	}
	s.invalidateAllChapters(ctx)
	return nil
}

// TriggerGenerate marks the chapter Drafting and notifies the ghostwriter
// workflow. The two steps are independent: a dispatch failure is logged and
// the chapter stays Drafting until manually reset.
func (s *Service) TriggerGenerate(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "chapter id is required", nil)
	}
	if err := s.store.UpdateChapterStatus(ctx, id, StatusDrafting); err != nil {
		return err
	}
	s.invalidateAllChapters(ctx)

	if err := s.dispatch.TriggerGhostwriter(ctx, id); err != nil {
		s.log.Error().Err(err).Str("chapter_id", id).Msg("ghostwriter dispatch failed; chapter stays Drafting until reset")
	}
	return nil
}

// ChapterHistory lists the recorded content revisions for a chapter.
func (s *Service) ChapterHistory(ctx context.Context, id string) ([]revs.Revision, error) {
	if s.revs == nil {
		return nil, domainError(http.StatusServiceUnavailable, "REVISIONS_UNAVAILABLE", "Revision history is not configured", nil)
	}
	chapter, err := s.GetChapter(ctx, id)
	if err != nil {
		return nil, err
	}
	if chapter.ProjectID == "" {
		return []revs.Revision{}, nil
	}
	return s.revs.ChapterHistory(chapter.ProjectID, id, 50)
}

// ChapterRevision returns the chapter content as of one recorded revision.
func (s *Service) ChapterRevision(ctx context.Context, id, hash string) (string, error) {
	if s.revs == nil {
		return "", domainError(http.StatusServiceUnavailable, "REVISIONS_UNAVAILABLE", "Revision history is not configured", nil)
	}
	chapter, err := s.GetChapter(ctx, id)
	if err != nil {
		return "", err
	}
	if chapter.ProjectID == "" {
		return "", domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	content, err := s.revs.RevisionContent(chapter.ProjectID, id, hash)
	if err != nil {
		return "", domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
	}
	return content, nil
}

func (s *Service) invalidateChapters(ctx context.Context, projectID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, projectID); err != nil {
		s.log.Warn().Err(err).Str("project_id", projectID).Msg("invalidate chapter cache")
	}
}

func (s *Service) invalidateAllChapters(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.log.Warn().Err(err).Msg("invalidate chapter caches")
	}
}

func (s *Service) indexChapter(record search.ChapterRecord) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexChapter(record); err != nil {
		s.log.Warn().Err(err).Str("chapter_id", record.ID).Msg("index chapter")
	}
}

func (s *Service) reindexChapter(ctx context.Context, id string) {
	if s.search == nil {
		return
	}
	chapter, err := s.store.GetChapter(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("chapter_id", id).Msg("reload chapter for indexing")
		return
	}
	s.indexChapter(search.ChapterRecord{
		ID:        chapter.ID,
		Title:     chapter.Title,
		Content:   chapter.Content,
		ProjectID: chapter.ProjectID,
		Status:    chapter.Status,
	})
}

func failedSubjects(subjects []string, errs []error) []string {
	var failed []string
	for i, err := range errs {
		if err != nil {
			failed = append(failed, subjects[i])
		}
	}
	return failed
}
