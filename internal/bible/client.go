package bible

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// translationIDs maps the user-facing translation codes to the ids the
// HelloAO API serves them under.
var translationIDs = map[string]string{
	"WEB": "ENGWEBP", // World English Bible
	"KJV": "eng_kjv", // King James Version
	"BSB": "BSB",     // Berean Standard Bible
	"LSV": "eng_lsv", // Literal Standard Version
	"SRV": "spa_r09", // Reina-Valera 1909
	"BES": "spa_bes", // Biblia en Español Sencillo
}

// bookIDs maps English book names to the three-letter ids in the API paths.
var bookIDs = map[string]string{
	"Genesis": "GEN", "Exodus": "EXO", "Leviticus": "LEV", "Numbers": "NUM", "Deuteronomy": "DEU",
	"Joshua": "JOS", "Judges": "JDG", "Ruth": "RUT", "1 Samuel": "1SA", "2 Samuel": "2SA",
	"1 Kings": "1KI", "2 Kings": "2KI", "1 Chronicles": "1CH", "2 Chronicles": "2CH",
	"Ezra": "EZR", "Nehemiah": "NEH", "Esther": "EST", "Job": "JOB", "Psalms": "PSA",
	"Proverbs": "PRO", "Ecclesiastes": "ECC", "Song of Solomon": "SNG", "Isaiah": "ISA",
	"Jeremiah": "JER", "Lamentations": "LAM", "Ezekiel": "EZE", "Daniel": "DAN",
	"Hosea": "HOS", "Joel": "JOL", "Amos": "AMO", "Obadiah": "OBA", "Jonah": "JON",
	"Micah": "MIC", "Nahum": "NAM", "Habakkuk": "HAB", "Zephaniah": "ZEP", "Haggai": "HAG",
	"Zechariah": "ZEC", "Malachi": "MAL", "Matthew": "MAT", "Mark": "MRK", "Luke": "LUK",
	"John": "JHN", "Acts": "ACT", "Romans": "ROM", "1 Corinthians": "1CO", "2 Corinthians": "2CO",
	"Galatians": "GAL", "Ephesians": "EPH", "Philippians": "PHP", "Colossians": "COL",
	"1 Thessalonians": "1TH", "2 Thessalonians": "2TH", "1 Timothy": "1TI", "2 Timothy": "2TI",
	"Titus": "TIT", "Philemon": "PHM", "Hebrews": "HEB", "James": "JAS", "1 Peter": "1PE",
	"2 Peter": "2PE", "1 John": "1JN", "2 John": "2JN", "3 John": "3JN", "Jude": "JUD",
	"Revelation": "REV",
}

// normalizeBook resolves a book name to its API id, falling back to a
// best-effort upcased form for ids passed through directly.
func normalizeBook(book string) string {
	if id, ok := bookIDs[book]; ok {
		return id
	}
	if id, ok := bookIDs[strings.Title(strings.ToLower(book))]; ok { //nolint:staticcheck // book names are ASCII
		return id
	}
	return strings.ToUpper(strings.ReplaceAll(book, " ", ""))
}

// ChapterFetcher retrieves every verse of one chapter. A nil slice with
// nil error means the chapter does not exist in that translation.
type ChapterFetcher interface {
	FetchChapter(ctx context.Context, book string, chapter int, translation string) ([]Verse, error)
}

// HelloAOClient fetches chapters from the bible.helloao.org JSON API.
type HelloAOClient struct {
	baseURL string
	http    *http.Client
}

func NewHelloAOClient(baseURL string, timeout time.Duration) *HelloAOClient {
	return &HelloAOClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Chapter payloads mix plain strings, text nodes and footnote markers
// inside each verse's content array, so the items decode as raw JSON
// first and are classified afterwards.
type chapterResponse struct {
	Chapter struct {
		Content []chapterItem `json:"content"`
	} `json:"chapter"`
}

type chapterItem struct {
	Type    string            `json:"type"`
	Number  int               `json:"number"`
	Content []json.RawMessage `json:"content"`
}

func (c *HelloAOClient) FetchChapter(ctx context.Context, book string, chapter int, translation string) ([]Verse, error) {
	apiTranslation, ok := translationIDs[translation]
	if !ok {
		apiTranslation = translation
	}
	url := fmt.Sprintf("%s/%s/%s/%d.json", c.baseURL, apiTranslation, normalizeBook(book), chapter)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building chapter request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s %d (%s): %w", book, chapter, translation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s %d (%s): unexpected status %d", book, chapter, translation, resp.StatusCode)
	}

	var data chapterResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding chapter response: %w", err)
	}

	var verses []Verse
	for _, item := range data.Chapter.Content {
		if item.Type != "verse" {
			continue
		}
		verses = append(verses, Verse{
			Book:        book,
			Chapter:     chapter,
			Verse:       item.Number,
			Text:        extractVerseText(item.Content),
			Translation: translation,
		})
	}
	return verses, nil
}

// extractVerseText flattens a verse content array. Strings and text
// nodes contribute their text; footnote markers become a single space so
// the words around them do not run together.
func extractVerseText(parts []json.RawMessage) string {
	var sb strings.Builder
	for _, raw := range parts {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			sb.WriteString(s)
			continue
		}
		var node struct {
			Text   string          `json:"text"`
			NoteID json.RawMessage `json:"noteId"`
		}
		if err := json.Unmarshal(raw, &node); err != nil {
			continue
		}
		switch {
		case node.Text != "":
			sb.WriteString(node.Text)
		case node.NoteID != nil:
			sb.WriteString(" ")
		}
	}
	return strings.TrimSpace(sb.String())
}
