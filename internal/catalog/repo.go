package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cecepns/komiknesia-sub000/pkg/models"
)

// Repo is the local catalog store: manga rows, genre links, chapters and
// chapter images, backed by sqlite.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const mangaColumns = `
	id, westmanga_id, slug, title, alternative_name, author, synopsis, thumbnail,
	type, country, color, hot, project, safe, rating, bookmark_count, view_count,
	release_year, status, manual, created_at, updated_at`

func scanManga(row interface{ Scan(...any) error }) (*models.Manga, error) {
	var (
		m           models.Manga
		westmangaID sql.NullInt64
		altName     sql.NullString
		author      sql.NullString
		synopsis    sql.NullString
		thumbnail   sql.NullString
		country     sql.NullString
		releaseYear sql.NullString
	)
	if err := row.Scan(
		&m.ID, &westmangaID, &m.Slug, &m.Title, &altName, &author, &synopsis, &thumbnail,
		&m.Type, &country, &m.Color, &m.Hot, &m.Project, &m.Safe, &m.Rating,
		&m.BookmarkCount, &m.ViewCount, &releaseYear, &m.Status, &m.Manual,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if westmangaID.Valid {
		id := westmangaID.Int64
		m.WestmangaID = &id
	}
	m.AlternativeName = altName.String
	m.Author = author.String
	m.Synopsis = synopsis.String
	m.Thumbnail = thumbnail.String
	m.Country = country.String
	m.ReleaseYear = releaseYear.String
	return &m, nil
}

// GetByWestmangaID resolves a mirrored entry by its remote id. Returns
// (nil, nil) when no such entry exists. Manual entries have no remote id and
// are structurally invisible to this lookup.
func (r *Repo) GetByWestmangaID(ctx context.Context, westmangaID int64) (*models.Manga, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+mangaColumns+` FROM manga WHERE westmanga_id = ?`, westmangaID)
	m, err := scanManga(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by westmanga id: %w", err)
	}
	return m, nil
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (*models.Manga, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+mangaColumns+` FROM manga WHERE slug = ?`, slug)
	m, err := scanManga(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by slug: %w", err)
	}
	return m, nil
}

// UpsertMirrored writes a mirrored entry atomically: insert on first sight,
// full overwrite of all mirrored fields when the westmanga_id already exists.
// Remote is authoritative for mirrored rows, so this is an overwrite, not a
// merge. Manual rows have a NULL westmanga_id and can never conflict here.
func (r *Repo) UpsertMirrored(ctx context.Context, m *models.Manga) (int64, error) {
	if m.WestmangaID == nil {
		return 0, fmt.Errorf("upsert mirrored: missing westmanga id for %q", m.Slug)
	}
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO manga (
			westmanga_id, slug, title, alternative_name, author, synopsis, thumbnail,
			type, country, color, hot, project, safe, rating, bookmark_count,
			view_count, release_year, status, manual
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(westmanga_id) DO UPDATE SET
			slug = excluded.slug,
			title = excluded.title,
			alternative_name = excluded.alternative_name,
			author = excluded.author,
			synopsis = excluded.synopsis,
			thumbnail = excluded.thumbnail,
			type = excluded.type,
			country = excluded.country,
			color = excluded.color,
			hot = excluded.hot,
			project = excluded.project,
			safe = excluded.safe,
			rating = excluded.rating,
			bookmark_count = excluded.bookmark_count,
			view_count = excluded.view_count,
			release_year = excluded.release_year,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`,
		*m.WestmangaID, m.Slug, m.Title, m.AlternativeName, m.Author, m.Synopsis,
		m.Thumbnail, m.Type, m.Country, m.Color, m.Hot, m.Project, m.Safe,
		m.Rating, m.BookmarkCount, m.ViewCount, m.ReleaseYear, m.Status,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert mirrored %q: %w", m.Slug, err)
	}
	return id, nil
}

// CreateManual inserts a locally authored entry. The schema CHECK rejects any
// attempt to give it a westmanga_id.
func (r *Repo) CreateManual(ctx context.Context, m *models.Manga) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO manga (
			westmanga_id, slug, title, alternative_name, author, synopsis, thumbnail,
			type, country, color, hot, project, safe, rating, release_year, status, manual
		)
		VALUES (NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`,
		m.Slug, m.Title, m.AlternativeName, m.Author, m.Synopsis, m.Thumbnail,
		m.Type, m.Country, m.Color, m.Hot, m.Project, m.Safe, m.Rating,
		m.ReleaseYear, m.Status,
	)
	if err != nil {
		return 0, fmt.Errorf("create manual %q: %w", m.Slug, err)
	}
	return res.LastInsertId()
}

// LinkGenres links a manga to every named genre that already exists locally,
// matched case-insensitively. Unknown names are skipped silently, existing
// links are no-ops; returns how many names matched a local genre.
func (r *Repo) LinkGenres(ctx context.Context, mangaID int64, names []string) (int, error) {
	linked := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var genreID int64
		err := r.DB.QueryRowContext(ctx,
			`SELECT id FROM genres WHERE name = ? COLLATE NOCASE`, name).Scan(&genreID)
		if err == sql.ErrNoRows {
			continue // sync never creates genres
		}
		if err != nil {
			return linked, fmt.Errorf("lookup genre %q: %w", name, err)
		}
		if _, err := r.DB.ExecContext(ctx,
			`INSERT OR IGNORE INTO manga_genres (manga_id, genre_id) VALUES (?, ?)`,
			mangaID, genreID); err != nil {
			return linked, fmt.Errorf("link genre %q: %w", name, err)
		}
		linked++
	}
	return linked, nil
}

func (r *Repo) GenresFor(ctx context.Context, mangaID int64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT g.name FROM genres g
		JOIN manga_genres mg ON mg.genre_id = g.id
		WHERE mg.manga_id = ?
		ORDER BY g.name ASC
	`, mangaID)
	if err != nil {
		return nil, fmt.Errorf("genres for manga: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *Repo) ListGenres(ctx context.Context) ([]models.Genre, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	out := make([]models.Genre, 0, 32)
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListQuery filters the public catalog listing.
type ListQuery struct {
	Q      string // keyword search in title/author
	Genre  string
	Status string
	Type   string
	Limit  int
	Offset int
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Manga, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Manga, 0, q.Limit)
	for rows.Next() {
		m, err := scanManga(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// buildListSQL builds either COUNT(*) or the SELECT list. Genre filtering
// goes through the link table rather than stored JSON.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `SELECT ` + mangaColumns + ` FROM manga`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM manga`
	}

	var where []string
	var args []any

	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(author) LIKE ?)")
		kw = "%" + strings.ToLower(kw) + "%"
		args = append(args, kw, kw)
	}
	if s := strings.TrimSpace(q.Status); s != "" {
		where = append(where, "LOWER(status) = ?")
		args = append(args, strings.ToLower(s))
	}
	if t := strings.TrimSpace(q.Type); t != "" {
		where = append(where, "LOWER(type) = ?")
		args = append(args, strings.ToLower(t))
	}
	if g := strings.TrimSpace(q.Genre); g != "" {
		where = append(where, `id IN (
			SELECT mg.manga_id FROM manga_genres mg
			JOIN genres ge ON ge.id = mg.genre_id
			WHERE ge.name = ? COLLATE NOCASE
		)`)
		args = append(args, g)
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY updated_at DESC"
		sqlStr += " LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}
