package westmanga

import (
	"encoding/json"
	"time"
)

// RemoteManga is the normalized shape of one catalog item as the WestManga
// API returns it. Optional fields whose absence must be distinguishable from
// a zero value (explicit false, explicit 0) are pointers.
type RemoteManga struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	AlternativeName string        `json:"alternative_name"`
	Slug            string        `json:"slug"`
	Author          string        `json:"author"`
	SynopsisID      string        `json:"sinopsis"` // Indonesian synopsis, preferred
	Synopsis        string        `json:"synopsis"`
	Thumbnail       string        `json:"thumbnail"`
	Type            string        `json:"type"`
	Country         string        `json:"country"`
	Color           *bool         `json:"color"`
	Hot             bool          `json:"hot"`
	Project         bool          `json:"is_project"`
	Safe            *bool         `json:"safe"`
	Rating          *float64      `json:"rating"`
	Bookmarks       *int          `json:"bookmarks"`
	Views           *int          `json:"views"`
	ReleaseYear     json.Number   `json:"release_year"`
	Status          string        `json:"status"`
	Genres          []RemoteGenre `json:"genres"`
}

type RemoteGenre struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// RemoteMangaDetail is the per-slug detail payload: the listing fields plus
// the full chapter index.
type RemoteMangaDetail struct {
	RemoteManga
	Chapters []RemoteChapter `json:"chapters"`
}

// RemoteChapter is one chapter as listed in a manga detail. Pages is the
// remote page count and is what backfill compares against the local image
// count to decide whether images still need fetching.
type RemoteChapter struct {
	ID     int64       `json:"id"`
	Title  string      `json:"title"`
	Number json.Number `json:"chapter"`
	Slug   string      `json:"slug"`
	Pages  int         `json:"pages"`
	Date   int64       `json:"date"` // unix seconds, pinned contract
}

// ReleasedAt converts the remote chapter date. The API reports unix seconds;
// zero means the field was absent.
func (c RemoteChapter) ReleasedAt() time.Time {
	if c.Date == 0 {
		return time.Time{}
	}
	return time.Unix(c.Date, 0).UTC()
}

// RemoteChapterDetail adds the ordered image URLs; their order defines the
// 1-based page numbers.
type RemoteChapterDetail struct {
	RemoteChapter
	Images []string `json:"images"`
}

// Page is one page of listing results plus enough paginator state to keep
// walking the catalog.
type Page struct {
	Items    []RemoteManga
	Page     int
	LastPage int
	HasMore  bool
}
