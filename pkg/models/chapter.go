package models

import "time"

// Chapter belongs to exactly one Manga. Number is stored as text because
// chapter numbering is decimal-capable ("10.5"); (MangaID, Number) is unique.
type Chapter struct {
	ID                 int64     `json:"id"`
	MangaID            int64     `json:"manga_id"`
	WestmangaChapterID *int64    `json:"westmanga_chapter_id,omitempty"`
	Title              string    `json:"title,omitempty"`
	Number             string    `json:"number"`
	Slug               string    `json:"slug"`
	CoverImage         string    `json:"cover_image,omitempty"`
	ImageCount         int       `json:"image_count,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// ChapterImage is one page of a chapter. PageNumber is 1-based and defines
// reading order.
type ChapterImage struct {
	ID         int64  `json:"id"`
	ChapterID  int64  `json:"chapter_id"`
	PageNumber int    `json:"page_number"`
	ImagePath  string `json:"image_path"`
}
