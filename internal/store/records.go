package store

import "time"

// Remote schema field names. The store keys fields by human-readable names;
// each domain field maps to exactly one of them.
const (
	fieldBookTitle    = "Book Title"
	fieldTheme        = "Theme/Topic"
	fieldAudience     = "Target audience"
	fieldTone         = "Tone Of Voice"
	fieldStatus       = "Status"
	fieldChapterTitle = "Chapter Title"
	fieldChapterNo    = "Chapter No."
	fieldContent      = "Content(HTML)"
	fieldBookSeries   = "Book Series"
)

type Project struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Theme      string    `json:"theme"`
	Audience   string    `json:"audience"`
	LastEdited time.Time `json:"lastEdited"`
}

type Chapter struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	ChapterNo  float64 `json:"chapterNo"`
	Status     string  `json:"status"`
	ProjectID  string  `json:"projectId,omitempty"`
	HasContent bool    `json:"hasContent"`
	Content    string  `json:"content,omitempty"`
}

// ProjectDraft is the field set for a new project record.
type ProjectDraft struct {
	Title    string
	Theme    string
	Audience string
	Tone     string
	Status   string
}

func projectFromRecord(r Record) Project {
	props := r.Properties
	project := Project{
		ID:         r.ID,
		Title:      props[fieldBookTitle].PlainTitle(),
		Status:     props[fieldStatus].SelectName(),
		Theme:      props[fieldTheme].PlainText(),
		Audience:   props[fieldAudience].PlainText(),
		LastEdited: r.LastEditedTime,
	}
	if project.Title == "" {
		project.Title = "Untitled Project"
	}
	if project.Status == "" {
		project.Status = "Planning"
	}
	return project
}

// chapterFromRecord maps a chapter record. List views pass withContent=false
// and only derive hasContent; the full content never leaves the wrapper.
func chapterFromRecord(r Record, withContent bool) Chapter {
	props := r.Properties
	chapter := Chapter{
		ID:         r.ID,
		Title:      props[fieldChapterTitle].PlainTitle(),
		ChapterNo:  props[fieldChapterNo].NumberValue(),
		Status:     props[fieldStatus].SelectName(),
		HasContent: props[fieldContent].HasText(),
	}
	if ids := props[fieldBookSeries].RelationIDs(); len(ids) > 0 {
		chapter.ProjectID = ids[0]
	}
	if chapter.Title == "" {
		chapter.Title = "Untitled"
	}
	if chapter.Status == "" {
		chapter.Status = "To Do"
	}
	if withContent {
		chapter.Content = props[fieldContent].PlainText()
	}
	return chapter
}
