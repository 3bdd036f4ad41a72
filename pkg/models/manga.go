package models

import "time"

// Manga is the unified catalog record. An entry is either authored locally
// (Manual=true, WestmangaID=nil) or mirrored from the WestManga aggregator
// (Manual=false, WestmangaID set); exactly one of the two holds for every row,
// enforced by a CHECK constraint in the schema.
type Manga struct {
	ID              int64     `json:"id"`
	WestmangaID     *int64    `json:"westmanga_id,omitempty"`
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	AlternativeName string    `json:"alternative_name,omitempty"`
	Author          string    `json:"author"`
	Synopsis        string    `json:"synopsis,omitempty"`
	Thumbnail       string    `json:"thumbnail,omitempty"`
	Type            string    `json:"type"`
	Country         string    `json:"country,omitempty"`
	Color           bool      `json:"color"`
	Hot             bool      `json:"hot"`
	Project         bool      `json:"project"`
	Safe            bool      `json:"safe"`
	Rating          float64   `json:"rating"`
	BookmarkCount   int       `json:"bookmark_count"`
	ViewCount       int       `json:"view_count"`
	ReleaseYear     string    `json:"release_year,omitempty"`
	Status          string    `json:"status"` // "ongoing", "completed", "hiatus"
	Manual          bool      `json:"manual"`
	Genres          []string  `json:"genres,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Mirrored reports whether the entry is kept in sync with WestManga.
func (m *Manga) Mirrored() bool {
	return !m.Manual && m.WestmangaID != nil
}
