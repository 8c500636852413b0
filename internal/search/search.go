// Package search maintains a full-text index over projects and chapters so an
// author can find material across every book in the workspace.
package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultProject ResultType = "project"
	ResultChapter ResultType = "chapter"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
	ProjectID string     `json:"projectId,omitempty"`
	Status    string     `json:"status,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text            string
	FilterType      ResultType // empty = all types
	FilterProjectID string
	Limit           int
	Offset          int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into the search index.
type Indexer interface {
	IndexProject(p ProjectRecord) error
	IndexChapter(c ChapterRecord) error
	DeleteProject(id string) error
	DeleteChapter(id string) error
}

// ProjectRecord is the data we index for a project.
type ProjectRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Theme    string `json:"theme"`
	Audience string `json:"audience"`
	Status   string `json:"status"`
}

// ChapterRecord is the data we index for a chapter.
type ChapterRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	ProjectID string `json:"projectId"`
	Status    string `json:"status"`
}
