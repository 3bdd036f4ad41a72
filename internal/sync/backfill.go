package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cecepns/komiknesia-sub000/internal/westmanga"
	"github.com/cecepns/komiknesia-sub000/pkg/models"
	"github.com/cecepns/komiknesia-sub000/pkg/slug"
)

// Backfiller ensures an already-reconciled mirrored entry has its chapter
// list, and optionally its chapter images, present locally. Matching is by
// stable identifier and complete chapters are skipped, so re-running after a
// partial failure only fills the gap.
type Backfiller struct {
	remote RemoteAPI
	store  Store
	hub    Broadcaster
	log    zerolog.Logger
}

func NewBackfiller(remote RemoteAPI, store Store, hub Broadcaster, log zerolog.Logger) *Backfiller {
	if hub == nil {
		hub = noopBroadcaster{}
	}
	return &Backfiller{
		remote: remote,
		store:  store,
		hub:    hub,
		log:    log.With().Str("component", "backfill").Logger(),
	}
}

// ChapterEvent is broadcast when backfill inserts a chapter it had not seen.
type ChapterEvent struct {
	Type      string    `json:"type"` // "chapter.new"
	MangaSlug string    `json:"manga_slug"`
	Chapter   string    `json:"chapter"`
	Slug      string    `json:"slug"`
	At        time.Time `json:"at"`
}

// SyncOne backfills one entry. Per-chapter errors are counted and the loop
// continues; only a failed detail fetch ends the pass early, and even that is
// just a counted error for the parent run.
func (b *Backfiller) SyncOne(ctx context.Context, entry *models.Manga, includeImages bool) BackfillResult {
	var res BackfillResult

	detail, err := b.remote.GetDetailBySlug(ctx, entry.Slug)
	if errors.Is(err, westmanga.ErrNotFound) {
		// remote no longer lists this slug; nothing to sync
		return res
	}
	if err != nil {
		b.log.Warn().Err(err).Str("slug", entry.Slug).Msg("detail fetch failed")
		res.addFailure(entry.Slug, err)
		return res
	}

	for _, rc := range detail.Chapters {
		if ctx.Err() != nil {
			break
		}
		if err := b.syncChapter(ctx, entry, rc, includeImages, &res); err != nil {
			b.log.Warn().Err(err).Str("manga", entry.Slug).Str("chapter", rc.Number.String()).
				Msg("chapter sync failed")
			res.addFailure(chapterSlug(entry.Slug, rc), err)
		}
	}
	return res
}

func (b *Backfiller) syncChapter(ctx context.Context, entry *models.Manga, rc westmanga.RemoteChapter, includeImages bool, res *BackfillResult) error {
	number := rc.Number.String()
	if number == "" {
		return fmt.Errorf("malformed remote chapter: missing number (id %d)", rc.ID)
	}
	chSlug := chapterSlug(entry.Slug, rc)

	var (
		ch  *models.Chapter
		err error
	)
	if rc.ID != 0 {
		ch, err = b.store.GetChapterByRemoteID(ctx, entry.ID, rc.ID)
		if err != nil {
			return err
		}
	}
	if ch == nil {
		ch, err = b.store.GetChapterByNumber(ctx, entry.ID, number)
		if err != nil {
			return err
		}
	}

	if ch == nil {
		ch = &models.Chapter{
			MangaID: entry.ID,
			Title:   rc.Title,
			Number:  number,
			Slug:    chSlug,
		}
		if rc.ID != 0 {
			id := rc.ID
			ch.WestmangaChapterID = &id
		}
		chID, err := b.store.InsertChapter(ctx, ch)
		if err != nil {
			return err
		}
		ch.ID = chID
		res.ChaptersSynced++
		b.hub.BroadcastJSON(ChapterEvent{
			Type: "chapter.new", MangaSlug: entry.Slug, Chapter: number, Slug: chSlug,
			At: time.Now().UTC(),
		})
	} else {
		// metadata only; image completeness decides re-downloads below
		if err := b.store.UpdateChapterMeta(ctx, ch.ID, rc.Title, number, chSlug); err != nil {
			return err
		}
		res.ChaptersSynced++
	}

	if !includeImages || rc.Pages <= 0 {
		return nil
	}

	have, err := b.store.CountChapterImages(ctx, ch.ID)
	if err != nil {
		return err
	}
	if have >= rc.Pages {
		// complete already; skip the large transfer
		return nil
	}

	cd, err := b.remote.GetChapterBySlug(ctx, chSlug)
	if errors.Is(err, westmanga.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	// remote order is authoritative for page numbers
	for i, img := range cd.Images {
		if err := b.store.UpsertChapterImage(ctx, ch.ID, i+1, img); err != nil {
			return err
		}
		res.ImagesSynced++
	}
	return nil
}

// chapterSlug prefers the remote slug, falling back to the derived
// {mangaSlug}-chapter-{number} form.
func chapterSlug(mangaSlug string, rc westmanga.RemoteChapter) string {
	if rc.Slug != "" {
		return rc.Slug
	}
	return slug.Chapter(mangaSlug, rc.Number.String())
}
