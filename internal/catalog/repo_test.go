package catalog

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cecepns/komiknesia-sub000/pkg/database"
	"github.com/cecepns/komiknesia-sub000/pkg/models"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1) // :memory: is per-connection

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepo(db)
}

func mirrored(westmangaID int64, slug, title string) *models.Manga {
	id := westmangaID
	return &models.Manga{
		WestmangaID: &id,
		Slug:        slug,
		Title:       title,
		Author:      "Unknown",
		Type:        "comic",
		Color:       true,
		Safe:        true,
		Status:      "ongoing",
	}
}

func TestUpsertMirrored(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("insert then overwrite", func(t *testing.T) {
		id1, err := repo.UpsertMirrored(ctx, mirrored(101, "alpha", "Alpha"))
		if err != nil {
			t.Fatalf("insert: %v", err)
		}

		fresh := mirrored(101, "alpha", "Alpha Refreshed")
		fresh.Rating = 9.1
		id2, err := repo.UpsertMirrored(ctx, fresh)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("local id must be stable across upserts: %d != %d", id1, id2)
		}

		got, err := repo.GetByWestmangaID(ctx, 101)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Title != "Alpha Refreshed" || got.Rating != 9.1 {
			t.Errorf("row not overwritten: %+v", got)
		}
	})

	t.Run("missing remote id rejected", func(t *testing.T) {
		if _, err := repo.UpsertMirrored(ctx, &models.Manga{Slug: "x", Title: "X"}); err == nil {
			t.Fatal("want error for missing westmanga id")
		}
	})

	t.Run("lookup miss is nil, nil", func(t *testing.T) {
		got, err := repo.GetByWestmangaID(ctx, 999999)
		if err != nil || got != nil {
			t.Fatalf("got %+v, %v", got, err)
		}
	})
}

func TestProvenanceCheck(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateManual(ctx, &models.Manga{
		Slug: "hand-made", Title: "Hand Made", Author: "Admin",
		Type: "comic", Color: true, Safe: true, Status: "ongoing", Manual: true,
	})
	if err != nil {
		t.Fatalf("create manual: %v", err)
	}
	if id == 0 {
		t.Fatal("no id assigned")
	}

	got, err := repo.GetBySlug(ctx, "hand-made")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Manual || got.WestmangaID != nil {
		t.Errorf("manual row shape wrong: %+v", got)
	}

	// a mirrored row with manual=0 but NULL westmanga_id violates the CHECK
	if _, err := repo.DB.Exec(
		`INSERT INTO manga (westmanga_id, slug, title, manual) VALUES (NULL, 'bad', 'Bad', 0)`,
	); err == nil {
		t.Error("CHECK constraint should reject mirrored rows without a remote id")
	}
}

func TestLinkGenres(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, g := range []string{"Action", "Drama"} {
		if _, err := repo.DB.Exec(`INSERT INTO genres (name) VALUES (?)`, g); err != nil {
			t.Fatalf("seed genre: %v", err)
		}
	}
	id, err := repo.UpsertMirrored(ctx, mirrored(101, "alpha", "Alpha"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	t.Run("case-insensitive match, unknown skipped", func(t *testing.T) {
		linked, err := repo.LinkGenres(ctx, id, []string{"ACTION", "Isekai", "drama"})
		if err != nil {
			t.Fatalf("link: %v", err)
		}
		if linked != 2 {
			t.Errorf("linked = %d, want 2", linked)
		}
		genres, err := repo.GenresFor(ctx, id)
		if err != nil {
			t.Fatalf("genres for: %v", err)
		}
		if len(genres) != 2 {
			t.Errorf("genres = %v", genres)
		}
	})

	t.Run("duplicate link attempts are no-ops", func(t *testing.T) {
		if _, err := repo.LinkGenres(ctx, id, []string{"Action", "Action"}); err != nil {
			t.Fatalf("relink: %v", err)
		}
		genres, _ := repo.GenresFor(ctx, id)
		if len(genres) != 2 {
			t.Errorf("genres after relink = %v", genres)
		}
	})
}

func TestChapterLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mangaID, err := repo.UpsertMirrored(ctx, mirrored(101, "alpha", "Alpha"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	remoteChID := int64(9001)
	chID, err := repo.InsertChapter(ctx, &models.Chapter{
		MangaID:            mangaID,
		WestmangaChapterID: &remoteChID,
		Title:              "Beginning",
		Number:             "10.5",
		Slug:               "alpha-chapter-10-5",
	})
	if err != nil {
		t.Fatalf("insert chapter: %v", err)
	}

	t.Run("match by remote id", func(t *testing.T) {
		ch, err := repo.GetChapterByRemoteID(ctx, mangaID, remoteChID)
		if err != nil || ch == nil {
			t.Fatalf("got %+v, %v", ch, err)
		}
		if ch.ID != chID || ch.Number != "10.5" {
			t.Errorf("chapter = %+v", ch)
		}
	})

	t.Run("match by number", func(t *testing.T) {
		ch, err := repo.GetChapterByNumber(ctx, mangaID, "10.5")
		if err != nil || ch == nil || ch.ID != chID {
			t.Fatalf("got %+v, %v", ch, err)
		}
	})

	t.Run("duplicate number rejected", func(t *testing.T) {
		_, err := repo.InsertChapter(ctx, &models.Chapter{
			MangaID: mangaID, Number: "10.5", Slug: "alpha-chapter-10-5-dup",
		})
		if err == nil {
			t.Fatal("want unique violation on (manga_id, number)")
		}
	})

	t.Run("image upsert is idempotent per page", func(t *testing.T) {
		for _, path := range []string{"first.jpg", "replaced.jpg"} {
			if err := repo.UpsertChapterImage(ctx, chID, 1, path); err != nil {
				t.Fatalf("upsert image: %v", err)
			}
		}
		if err := repo.UpsertChapterImage(ctx, chID, 2, "p2.jpg"); err != nil {
			t.Fatalf("upsert image: %v", err)
		}

		n, err := repo.CountChapterImages(ctx, chID)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 2 {
			t.Errorf("image count = %d, want 2", n)
		}

		images, err := repo.ImagesFor(ctx, chID)
		if err != nil {
			t.Fatalf("images for: %v", err)
		}
		if images[0].ImagePath != "replaced.jpg" || images[0].PageNumber != 1 {
			t.Errorf("page 1 = %+v", images[0])
		}
	})

	t.Run("chapter list carries image counts", func(t *testing.T) {
		chapters, err := repo.ChaptersFor(ctx, mangaID)
		if err != nil {
			t.Fatalf("chapters for: %v", err)
		}
		if len(chapters) != 1 || chapters[0].ImageCount != 2 {
			t.Errorf("chapters = %+v", chapters)
		}
	})
}

func TestListFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.DB.Exec(`INSERT INTO genres (name) VALUES ('Action')`); err != nil {
		t.Fatalf("seed genre: %v", err)
	}

	a := mirrored(101, "alpha", "Alpha Strike")
	a.Status = "completed"
	idA, err := repo.UpsertMirrored(ctx, a)
	if err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if _, err := repo.LinkGenres(ctx, idA, []string{"Action"}); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, err := repo.UpsertMirrored(ctx, mirrored(202, "beta", "Beta Calm")); err != nil {
		t.Fatalf("upsert b: %v", err)
	}

	t.Run("keyword", func(t *testing.T) {
		items, err := repo.List(ctx, ListQuery{Q: "strike"})
		if err != nil || len(items) != 1 || items[0].Slug != "alpha" {
			t.Fatalf("items = %+v, %v", items, err)
		}
	})

	t.Run("genre through link table", func(t *testing.T) {
		total, err := repo.Count(ctx, ListQuery{Genre: "action"})
		if err != nil || total != 1 {
			t.Fatalf("total = %d, %v", total, err)
		}
	})

	t.Run("status", func(t *testing.T) {
		items, err := repo.List(ctx, ListQuery{Status: "COMPLETED"})
		if err != nil || len(items) != 1 || items[0].Slug != "alpha" {
			t.Fatalf("items = %+v, %v", items, err)
		}
	})
}
