package store

// The store wraps every field value in a per-type shape: title array,
// rich-text array, select object, number, relation array. One adapter per
// wrapper kind lives here; each fails closed to a zero value when the wrapper
// is absent so schema drift never panics a read path.

// maxTextChunk is the store's per-entry limit for rich-text content. Writes
// longer than this are split across entries; reads concatenate every entry.
const maxTextChunk = 2000

type Property struct {
	Title    []RichText   `json:"title,omitempty"`
	RichText []RichText   `json:"rich_text,omitempty"`
	Number   *float64     `json:"number,omitempty"`
	Select   *SelectValue `json:"select,omitempty"`
	Relation []Relation   `json:"relation,omitempty"`
}

type RichText struct {
	Text      *TextValue `json:"text,omitempty"`
	PlainText string     `json:"plain_text,omitempty"`
}

type TextValue struct {
	Content string `json:"content"`
}

type SelectValue struct {
	Name string `json:"name"`
}

type Relation struct {
	ID string `json:"id"`
}

// ── write-side constructors ──

func TitleProperty(text string) Property {
	return Property{Title: []RichText{{Text: &TextValue{Content: text}}}}
}

func RichTextProperty(text string) Property {
	return Property{RichText: ChunkText(text)}
}

func NumberProperty(n float64) Property {
	return Property{Number: &n}
}

func SelectProperty(name string) Property {
	return Property{Select: &SelectValue{Name: name}}
}

func RelationProperty(ids ...string) Property {
	relations := make([]Relation, 0, len(ids))
	for _, id := range ids {
		relations = append(relations, Relation{ID: id})
	}
	return Property{Relation: relations}
}

// ChunkText splits text into rich-text entries of at most maxTextChunk
// characters each. Concatenating the entries in order reproduces the input
// exactly.
func ChunkText(text string) []RichText {
	runes := []rune(text)
	chunks := make([]RichText, 0, len(runes)/maxTextChunk+1)
	for start := 0; start < len(runes); start += maxTextChunk {
		end := start + maxTextChunk
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, RichText{Text: &TextValue{Content: string(runes[start:end])}})
	}
	return chunks
}

// ── read-side adapters ──

func (p Property) PlainTitle() string {
	return joinRichText(p.Title)
}

func (p Property) PlainText() string {
	return joinRichText(p.RichText)
}

// HasText reports whether the rich-text wrapper holds any entries, without
// touching their content. List views use this to derive hasContent cheaply.
func (p Property) HasText() bool {
	return len(p.RichText) > 0
}

func (p Property) NumberValue() float64 {
	if p.Number == nil {
		return 0
	}
	return *p.Number
}

func (p Property) SelectName() string {
	if p.Select == nil {
		return ""
	}
	return p.Select.Name
}

func (p Property) RelationIDs() []string {
	ids := make([]string, 0, len(p.Relation))
	for _, r := range p.Relation {
		ids = append(ids, r.ID)
	}
	return ids
}

func joinRichText(entries []RichText) string {
	if len(entries) == 0 {
		return ""
	}
	var out string
	for _, entry := range entries {
		if entry.PlainText != "" {
			out += entry.PlainText
			continue
		}
		if entry.Text != nil {
			out += entry.Text.Content
		}
	}
	return out
}
