package sync

import (
	"strings"

	"github.com/cecepns/komiknesia-sub000/internal/westmanga"
	"github.com/cecepns/komiknesia-sub000/pkg/models"
	"github.com/cecepns/komiknesia-sub000/pkg/slug"
)

// TransformEntry maps a remote catalog item onto local entry fields. Pure
// function, no I/O; identity fields (local id, timestamps) are left zero.
//
// Defaulting rules for absent remote fields:
//   - author "Unknown", type "comic"
//   - synopsis: Indonesian synopsis preferred over the generic one
//   - color and safe default true, but an explicit remote false is kept
//   - rating / bookmarks / views default 0
//
// The output is always a mirrored entry: Manual=false, WestmangaID set.
func TransformEntry(rm westmanga.RemoteManga) models.Manga {
	id := rm.ID

	m := models.Manga{
		WestmangaID:     &id,
		Slug:            rm.Slug,
		Title:           rm.Title,
		AlternativeName: rm.AlternativeName,
		Author:          rm.Author,
		Thumbnail:       rm.Thumbnail,
		Type:            rm.Type,
		Country:         rm.Country,
		Color:           true,
		Hot:             rm.Hot,
		Project:         rm.Project,
		Safe:            true,
		ReleaseYear:     rm.ReleaseYear.String(),
		Status:          normalizeStatus(rm.Status),
		Manual:          false,
	}

	if m.Slug == "" {
		m.Slug = slug.Make(rm.Title)
	}
	if m.Author == "" {
		m.Author = "Unknown"
	}
	if m.Type == "" {
		m.Type = "comic"
	}

	m.Synopsis = rm.SynopsisID
	if m.Synopsis == "" {
		m.Synopsis = rm.Synopsis
	}

	if rm.Color != nil {
		m.Color = *rm.Color
	}
	if rm.Safe != nil {
		m.Safe = *rm.Safe
	}
	if rm.Rating != nil {
		m.Rating = *rm.Rating
	}
	if rm.Bookmarks != nil {
		m.BookmarkCount = *rm.Bookmarks
	}
	if rm.Views != nil {
		m.ViewCount = *rm.Views
	}

	return m
}

// GenreNames extracts the remote genre names for local link resolution.
func GenreNames(rm westmanga.RemoteManga) []string {
	if len(rm.Genres) == 0 {
		return nil
	}
	names := make([]string, 0, len(rm.Genres))
	for _, g := range rm.Genres {
		if name := strings.TrimSpace(g.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "finished", "end":
		return "completed"
	case "hiatus":
		return "hiatus"
	case "":
		return "ongoing"
	case "ongoing", "publishing", "running":
		return "ongoing"
	default:
		return "ongoing"
	}
}
