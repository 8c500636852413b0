// Package revs records chapter content revisions in one git repository per
// project. The remote store only keeps the latest content; this log is what
// lets an author see and recover earlier drafts.
package revs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type Revision struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Service) projectLock(projectID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[projectID] = lock
	}
	return lock
}

func (s *Service) repoPath(projectID string) string {
	return filepath.Join(s.baseDir, projectID)
}

func chapterFile(chapterID string) string {
	return filepath.Join("chapters", chapterID+".html")
}

// CommitChapter writes the chapter's HTML into the project repository and
// commits it. The project repo is initialized lazily on first commit.
func (s *Service) CommitChapter(projectID, chapterID, title, html, author string) (string, error) {
	if projectID == "" || chapterID == "" {
		return "", fmt.Errorf("project and chapter ids are required")
	}
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(projectID)
	if err != nil {
		return "", err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}

	path := s.repoPath(projectID)
	relative := chapterFile(chapterID)
	if err := os.MkdirAll(filepath.Dir(filepath.Join(path, relative)), 0o755); err != nil {
		return "", fmt.Errorf("create chapters dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, relative), []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write chapter content: %w", err)
	}
	if _, err := worktree.Add(relative); err != nil {
		return "", fmt.Errorf("git add chapter content: %w", err)
	}

	if author == "" {
		author = "studio"
	}
	message := fmt.Sprintf("Update %s", title)
	if strings.TrimSpace(title) == "" {
		message = fmt.Sprintf("Update chapter %s", chapterID)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.bookstudio.dev", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit chapter content: %w", err)
	}
	return hash.String(), nil
}

// ChapterHistory lists the revisions that touched one chapter, newest first.
func (s *Service) ChapterHistory(projectID, chapterID string, limit int) ([]Revision, error) {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(projectID))
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return []Revision{}, nil
		}
		return nil, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return []Revision{}, nil
	}

	relative := chapterFile(chapterID)
	iter, err := repo.Log(&git.LogOptions{
		From:     head.Hash(),
		FileName: &relative,
	})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	revisions := make([]Revision, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		revisions = append(revisions, Revision{
			Hash:    commitObj.Hash.String(),
			Message: commitObj.Message,
			Author:  commitObj.Author.Name,
			When:    commitObj.Author.When,
		})
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return revisions, nil
}

// RevisionContent returns the chapter HTML as of one revision.
func (s *Service) RevisionContent(projectID, chapterID, hash string) (string, error) {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(projectID))
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}

	commitObj, err := repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return "", fmt.Errorf("read commit %s: %w", hash, err)
	}
	file, err := commitObj.File(chapterFile(chapterID))
	if err != nil {
		return "", fmt.Errorf("read chapter at %s: %w", hash, err)
	}
	return file.Contents()
}

func (s *Service) openOrInit(projectID string) (*git.Repository, error) {
	path := s.repoPath(projectID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func sanitizeEmail(name string) string {
	cleaned := strings.ToLower(strings.TrimSpace(name))
	cleaned = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, cleaned)
	if cleaned == "" {
		return "studio"
	}
	return cleaned
}
