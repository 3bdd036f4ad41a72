package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cecepns/komiknesia-sub000/pkg/models"
)

const chapterColumns = `
	id, manga_id, westmanga_chapter_id, title, number, slug, cover_image, created_at`

func scanChapter(row interface{ Scan(...any) error }) (*models.Chapter, error) {
	var (
		ch       models.Chapter
		remoteID sql.NullInt64
		title    sql.NullString
		cover    sql.NullString
	)
	if err := row.Scan(
		&ch.ID, &ch.MangaID, &remoteID, &title, &ch.Number, &ch.Slug, &cover, &ch.CreatedAt,
	); err != nil {
		return nil, err
	}
	if remoteID.Valid {
		id := remoteID.Int64
		ch.WestmangaChapterID = &id
	}
	ch.Title = title.String
	ch.CoverImage = cover.String
	return &ch, nil
}

// GetChapterByRemoteID resolves a mirrored chapter within one manga by its
// WestManga chapter id. Returns (nil, nil) when absent.
func (r *Repo) GetChapterByRemoteID(ctx context.Context, mangaID, remoteChapterID int64) (*models.Chapter, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE manga_id = ? AND westmanga_chapter_id = ?`,
		mangaID, remoteChapterID)
	ch, err := scanChapter(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter by remote id: %w", err)
	}
	return ch, nil
}

// GetChapterByNumber is the fallback match for remote chapters that carry no
// id: (manga_id, number) is unique.
func (r *Repo) GetChapterByNumber(ctx context.Context, mangaID int64, number string) (*models.Chapter, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE manga_id = ? AND number = ?`,
		mangaID, number)
	ch, err := scanChapter(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter by number: %w", err)
	}
	return ch, nil
}

func (r *Repo) GetChapterBySlug(ctx context.Context, chapterSlug string) (*models.Chapter, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE slug = ?`, chapterSlug)
	ch, err := scanChapter(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter by slug: %w", err)
	}
	return ch, nil
}

func (r *Repo) InsertChapter(ctx context.Context, ch *models.Chapter) (int64, error) {
	var remoteID any
	if ch.WestmangaChapterID != nil {
		remoteID = *ch.WestmangaChapterID
	}
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO chapters (manga_id, westmanga_chapter_id, title, number, slug, cover_image)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ch.MangaID, remoteID, ch.Title, ch.Number, ch.Slug, ch.CoverImage)
	if err != nil {
		return 0, fmt.Errorf("insert chapter %q: %w", ch.Slug, err)
	}
	return res.LastInsertId()
}

// UpdateChapterMeta refreshes chapter metadata only. Images are deliberately
// untouched here; backfill decides separately whether they need fetching.
func (r *Repo) UpdateChapterMeta(ctx context.Context, chapterID int64, title, number, chapterSlug string) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE chapters SET title = ?, number = ?, slug = ? WHERE id = ?
	`, title, number, chapterSlug, chapterID); err != nil {
		return fmt.Errorf("update chapter meta: %w", err)
	}
	return nil
}

func (r *Repo) ChaptersFor(ctx context.Context, mangaID int64) ([]models.Chapter, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, c.manga_id, c.westmanga_chapter_id, c.title, c.number, c.slug,
		       c.cover_image, c.created_at,
		       (SELECT COUNT(*) FROM chapter_images ci WHERE ci.chapter_id = c.id)
		FROM chapters c
		WHERE c.manga_id = ?
		ORDER BY CAST(c.number AS REAL) DESC
	`, mangaID)
	if err != nil {
		return nil, fmt.Errorf("chapters for manga: %w", err)
	}
	defer rows.Close()

	var out []models.Chapter
	for rows.Next() {
		var (
			ch       models.Chapter
			remoteID sql.NullInt64
			title    sql.NullString
			cover    sql.NullString
		)
		if err := rows.Scan(
			&ch.ID, &ch.MangaID, &remoteID, &title, &ch.Number, &ch.Slug,
			&cover, &ch.CreatedAt, &ch.ImageCount,
		); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		if remoteID.Valid {
			id := remoteID.Int64
			ch.WestmangaChapterID = &id
		}
		ch.Title = title.String
		ch.CoverImage = cover.String
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (r *Repo) CountChapterImages(ctx context.Context, chapterID int64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chapter_images WHERE chapter_id = ?`, chapterID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chapter images: %w", err)
	}
	return n, nil
}

// UpsertChapterImage writes one page. Page numbers come from remote order and
// are authoritative, so a re-run overwrites the path at the same position.
func (r *Repo) UpsertChapterImage(ctx context.Context, chapterID int64, pageNumber int, imagePath string) error {
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO chapter_images (chapter_id, page_number, image_path)
		VALUES (?, ?, ?)
		ON CONFLICT(chapter_id, page_number) DO UPDATE SET image_path = excluded.image_path
	`, chapterID, pageNumber, imagePath); err != nil {
		return fmt.Errorf("upsert chapter image p%d: %w", pageNumber, err)
	}
	return nil
}

func (r *Repo) ImagesFor(ctx context.Context, chapterID int64) ([]models.ChapterImage, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, chapter_id, page_number, image_path
		FROM chapter_images
		WHERE chapter_id = ?
		ORDER BY page_number ASC
	`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("images for chapter: %w", err)
	}
	defer rows.Close()

	var out []models.ChapterImage
	for rows.Next() {
		var img models.ChapterImage
		if err := rows.Scan(&img.ID, &img.ChapterID, &img.PageNumber, &img.ImagePath); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		out = append(out, img)
	}
	return out, rows.Err()
}
