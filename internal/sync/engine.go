// Package sync reconciles the WestManga remote catalog against the local
// store: idempotent upserts keyed by remote id, per-item failure isolation,
// and incremental chapter/image backfill.
package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cecepns/komiknesia-sub000/internal/westmanga"
	"github.com/cecepns/komiknesia-sub000/pkg/models"
)

// RemoteAPI is the slice of the WestManga client the engine needs.
type RemoteAPI interface {
	ListPage(ctx context.Context, p westmanga.ListParams) (*westmanga.Page, error)
	GetDetailBySlug(ctx context.Context, slug string) (*westmanga.RemoteMangaDetail, error)
	GetChapterBySlug(ctx context.Context, chapterSlug string) (*westmanga.RemoteChapterDetail, error)
}

// Store is the slice of the local catalog store the engine needs. All
// "have we seen this before" questions go through it; the engine keeps no
// state between runs.
type Store interface {
	GetByWestmangaID(ctx context.Context, westmangaID int64) (*models.Manga, error)
	UpsertMirrored(ctx context.Context, m *models.Manga) (int64, error)
	LinkGenres(ctx context.Context, mangaID int64, names []string) (int, error)

	GetChapterByRemoteID(ctx context.Context, mangaID, remoteChapterID int64) (*models.Chapter, error)
	GetChapterByNumber(ctx context.Context, mangaID int64, number string) (*models.Chapter, error)
	InsertChapter(ctx context.Context, ch *models.Chapter) (int64, error)
	UpdateChapterMeta(ctx context.Context, chapterID int64, title, number, chapterSlug string) error
	CountChapterImages(ctx context.Context, chapterID int64) (int, error)
	UpsertChapterImage(ctx context.Context, chapterID int64, pageNumber int, imagePath string) error
}

// Broadcaster receives progress events; the websocket hub implements it.
type Broadcaster interface {
	BroadcastJSON(v any)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastJSON(any) {}

// Engine runs one reconciliation pass over one remote page at a time.
type Engine struct {
	remote   RemoteAPI
	store    Store
	backfill *Backfiller
	hub      Broadcaster
	workers  int
	log      zerolog.Logger
}

func NewEngine(remote RemoteAPI, store Store, hub Broadcaster, workers int, log zerolog.Logger) *Engine {
	if hub == nil {
		hub = noopBroadcaster{}
	}
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		remote:   remote,
		store:    store,
		backfill: NewBackfiller(remote, store, hub, log),
		hub:      hub,
		workers:  workers,
		log:      log.With().Str("component", "sync").Logger(),
	}
}

// RunEvent is broadcast at the start and end of a run.
type RunEvent struct {
	Type    string    `json:"type"` // "sync.started" or "sync.completed"
	RunID   string    `json:"run_id"`
	Page    int       `json:"page"`
	Mode    string    `json:"mode"`
	Total   int       `json:"total"`
	Synced  int       `json:"synced,omitempty"`
	Updated int       `json:"updated,omitempty"`
	Errors  int       `json:"errors,omitempty"`
	At      time.Time `json:"at"`
}

// SyncPage fetches one page of the remote catalog and reconciles every item
// against the local store. A failed page fetch fails the whole run; a failed
// item only increments Errors and never aborts its siblings. Calling it again
// with the same arguments against an unchanged remote is a no-op beyond
// refreshed timestamps.
func (e *Engine) SyncPage(ctx context.Context, page, limit int, mode Mode) (*Result, error) {
	runID := uuid.NewString()
	log := e.log.With().Str("run_id", runID).Int("page", page).Str("mode", string(mode)).Logger()

	remotePage, err := e.remote.ListPage(ctx, westmanga.ListParams{Page: page, PerPage: limit})
	if err != nil {
		// nothing to reconcile
		log.Error().Err(err).Msg("page fetch failed")
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}

	res := &Result{RunID: runID, Total: len(remotePage.Items), HasMore: remotePage.HasMore}
	log.Info().Int("total", res.Total).Msg("sync run started")
	e.hub.BroadcastJSON(RunEvent{
		Type: "sync.started", RunID: runID, Page: page, Mode: string(mode),
		Total: res.Total, At: time.Now().UTC(),
	})

	var mu stdsync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, item := range remotePage.Items {
		item := item
		g.Go(func() error {
			// on cancellation stop issuing remote calls; committed rows stay
			if gctx.Err() != nil {
				return nil
			}

			entry, inserted, err := e.syncItem(gctx, item)
			if err != nil {
				log.Warn().Err(err).Str("slug", item.Slug).Int64("westmanga_id", item.ID).
					Msg("item reconciliation failed")
				mu.Lock()
				res.addFailure(item.Slug, err)
				mu.Unlock()
				return nil
			}

			mu.Lock()
			if inserted {
				res.Synced++
			} else {
				res.Updated++
			}
			mu.Unlock()

			if mode == ModeMangaOnly {
				return nil
			}
			bf := e.backfill.SyncOne(gctx, entry, mode == ModeFull)
			mu.Lock()
			res.ChaptersSynced += bf.ChaptersSynced
			res.ImagesSynced += bf.ImagesSynced
			res.Errors += bf.Errors
			for _, f := range bf.Failures {
				if len(res.Failures) < maxFailureDetails {
					res.Failures = append(res.Failures, f)
				}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Info().
		Int("synced", res.Synced).Int("updated", res.Updated).Int("errors", res.Errors).
		Int("chapters", res.ChaptersSynced).Int("images", res.ImagesSynced).
		Msg("sync run completed")
	e.hub.BroadcastJSON(RunEvent{
		Type: "sync.completed", RunID: runID, Page: page, Mode: string(mode),
		Total: res.Total, Synced: res.Synced, Updated: res.Updated, Errors: res.Errors,
		At: time.Now().UTC(),
	})
	return res, nil
}

// syncItem reconciles a single remote item: lookup strictly by remote id (so
// manual entries, which have none, are invisible to this path), transform,
// atomic upsert, then genre linking with silent skip on unknown names.
func (e *Engine) syncItem(ctx context.Context, item westmanga.RemoteManga) (*models.Manga, bool, error) {
	if item.ID == 0 {
		return nil, false, fmt.Errorf("malformed remote item: missing id (title %q)", item.Title)
	}

	existing, err := e.store.GetByWestmangaID(ctx, item.ID)
	if err != nil {
		return nil, false, err
	}

	entry := TransformEntry(item)
	id, err := e.store.UpsertMirrored(ctx, &entry)
	if err != nil {
		return nil, false, err
	}
	entry.ID = id

	if _, err := e.store.LinkGenres(ctx, id, GenreNames(item)); err != nil {
		return nil, false, err
	}

	return &entry, existing == nil, nil
}
