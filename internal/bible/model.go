package bible

import "time"

// Verse is one verse of Scripture in a given translation.
type Verse struct {
	Book        string `json:"book"`
	Chapter     int    `json:"chapter"`
	Verse       int    `json:"verse"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

// Passage is a contiguous run of verses with a display reference like
// "John 3:16", "John 3:16-18" or "John 3".
type Passage struct {
	Reference   string  `json:"reference"`
	Verses      []Verse `json:"verses"`
	Translation string  `json:"translation"`
}

// Text joins the verse texts with single spaces.
func (p *Passage) Text() string {
	switch len(p.Verses) {
	case 0:
		return ""
	case 1:
		return p.Verses[0].Text
	}
	n := 0
	for _, v := range p.Verses {
		n += len(v.Text) + 1
	}
	b := make([]byte, 0, n)
	for i, v := range p.Verses {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, v.Text...)
	}
	return string(b)
}

// TranslationInfo describes one translation offered to clients.
type TranslationInfo struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	RequiresPro bool   `json:"requires_pro"`
}

// SavedPassage is a passage the user chose to persist.
type SavedPassage struct {
	ID          int64     `json:"id"`
	Reference   string    `json:"reference"`
	Book        string    `json:"book"`
	Chapter     int       `json:"chapter"`
	VerseStart  int       `json:"verse_start"`
	VerseEnd    *int      `json:"verse_end,omitempty"`
	Translation string    `json:"translation"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}
