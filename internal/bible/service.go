package bible

import (
	"context"
	"fmt"
	"sort"
)

// translations lists what the app exposes. NRSV rides on a licensed
// backend and is gated behind the pro subscription.
var translations = []TranslationInfo{
	{Code: "WEB", Name: "World English Bible"},
	{Code: "KJV", Name: "King James Version"},
	{Code: "BSB", Name: "Berean Standard Bible"},
	{Code: "LSV", Name: "Literal Standard Version"},
	{Code: "SRV", Name: "Santa Biblia - Reina-Valera 1909"},
	{Code: "BES", Name: "La Biblia en Español Sencillo"},
	{Code: "NRSV", Name: "New Revised Standard Version", RequiresPro: true},
}

// ErrProTranslation is returned when a free account requests a
// pro-gated translation. It carries the fields of the 403 detail body.
type ErrProTranslation struct {
	Translation string
}

func (e *ErrProTranslation) Error() string {
	return fmt.Sprintf("the %s translation requires a pro subscription", e.Translation)
}

// Service answers passage lookups and keeps the translation catalog.
type Service struct {
	fetcher ChapterFetcher
	repo    Repository
}

func NewService(fetcher ChapterFetcher, repo Repository) *Service {
	return &Service{fetcher: fetcher, repo: repo}
}

// AvailableTranslations returns the catalog, sorted by code. Free
// accounts do not see pro-gated entries.
func (s *Service) AvailableTranslations(isPro bool) []TranslationInfo {
	out := make([]TranslationInfo, 0, len(translations))
	for _, t := range translations {
		if t.RequiresPro && !isPro {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ValidateTranslationAccess rejects pro-gated translations for free
// accounts. Unknown codes pass through; the fetch will 404 on its own.
func (s *Service) ValidateTranslationAccess(translation string, isPro bool) error {
	for _, t := range translations {
		if t.Code == translation && t.RequiresPro && !isPro {
			return &ErrProTranslation{Translation: translation}
		}
	}
	return nil
}

// GetVerse returns a single verse, or nil when it does not exist.
func (s *Service) GetVerse(ctx context.Context, book string, chapter, verse int, translation string) (*Verse, error) {
	verses, err := s.fetcher.FetchChapter(ctx, book, chapter, translation)
	if err != nil {
		return nil, err
	}
	for i := range verses {
		if verses[i].Verse == verse {
			return &verses[i], nil
		}
	}
	return nil, nil
}

// GetPassage returns the verses in [verseStart, verseEnd]. When
// verseEnd is zero or equals verseStart the passage is a single verse
// and the reference collapses to "Book C:V".
func (s *Service) GetPassage(ctx context.Context, book string, chapter, verseStart, verseEnd int, translation string) (*Passage, error) {
	if verseEnd == 0 || verseEnd == verseStart {
		verse, err := s.GetVerse(ctx, book, chapter, verseStart, translation)
		if err != nil || verse == nil {
			return nil, err
		}
		return &Passage{
			Reference:   fmt.Sprintf("%s %d:%d", book, chapter, verseStart),
			Verses:      []Verse{*verse},
			Translation: translation,
		}, nil
	}

	verses, err := s.fetcher.FetchChapter(ctx, book, chapter, translation)
	if err != nil {
		return nil, err
	}
	var selected []Verse
	for _, v := range verses {
		if v.Verse >= verseStart && v.Verse <= verseEnd {
			selected = append(selected, v)
		}
	}
	if len(selected) == 0 {
		return nil, nil
	}
	return &Passage{
		Reference:   fmt.Sprintf("%s %d:%d-%d", book, chapter, verseStart, verseEnd),
		Verses:      selected,
		Translation: translation,
	}, nil
}

// GetChapter returns the whole chapter as a passage.
func (s *Service) GetChapter(ctx context.Context, book string, chapter int, translation string) (*Passage, error) {
	verses, err := s.fetcher.FetchChapter(ctx, book, chapter, translation)
	if err != nil {
		return nil, err
	}
	if len(verses) == 0 {
		return nil, nil
	}
	return &Passage{
		Reference:   fmt.Sprintf("%s %d", book, chapter),
		Verses:      verses,
		Translation: translation,
	}, nil
}

// SavePassage persists a fetched passage for later study.
func (s *Service) SavePassage(ctx context.Context, p *Passage) (*SavedPassage, error) {
	if len(p.Verses) == 0 {
		return nil, fmt.Errorf("passage has no verses")
	}

	saved := &SavedPassage{
		Reference:   p.Reference,
		Book:        p.Verses[0].Book,
		Chapter:     p.Verses[0].Chapter,
		VerseStart:  p.Verses[0].Verse,
		Translation: p.Translation,
		Text:        p.Text(),
	}
	if last := p.Verses[len(p.Verses)-1].Verse; last != saved.VerseStart {
		saved.VerseEnd = &last
	}

	if err := s.repo.SavePassage(ctx, saved); err != nil {
		return nil, err
	}
	return saved, nil
}
