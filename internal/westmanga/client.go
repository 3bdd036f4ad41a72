// Package westmanga is a thin typed client over the WestManga catalog API.
// It hides pagination and field naming; retry policy belongs to the caller.
package westmanga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	// ErrNotFound is a valid empty result for a missing slug, not a failure.
	ErrNotFound = errors.New("westmanga: not found")
	// ErrUnavailable covers network errors, timeouts, non-2xx responses and
	// status:false envelopes. The client never retries; only the caller knows
	// whether a retry is safe and worthwhile.
	ErrUnavailable = errors.New("westmanga: remote unavailable")
)

const (
	maxPerPage     = 100
	defaultTimeout = 15 * time.Second
)

type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client talks to the WestManga HTTP API. A shared rate limiter bounds
// in-flight calls so long backfills do not hammer the aggregator.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 4
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 2
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log.With().Str("component", "westmanga").Logger(),
	}
}

// ListParams mirrors the /contents query parameters. Zero values are omitted.
type ListParams struct {
	Page    int
	PerPage int
	Search  string
	Genre   string
	Status  string
	Type    string
	Sort    string
}

type envelope struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Paginator *struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
		PerPage     int `json:"per_page"`
		Total       int `json:"total"`
	} `json:"paginator"`
}

// ListPage fetches one page of the remote catalog. Out-of-range paging values
// are clamped rather than rejected, mirroring the tolerant behavior of the
// public API itself.
func (c *Client) ListPage(ctx context.Context, p ListParams) (*Page, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = 1
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("per_page", strconv.Itoa(p.PerPage))
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Genre != "" {
		q.Set("genre", p.Genre)
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Type != "" {
		q.Set("type", p.Type)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}

	env, err := c.get(ctx, "/contents?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var items []RemoteManga
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return nil, fmt.Errorf("%w: decode contents: %v", ErrUnavailable, err)
	}

	page := &Page{Items: items, Page: p.Page, LastPage: p.Page}
	if env.Paginator != nil {
		if env.Paginator.CurrentPage > 0 {
			page.Page = env.Paginator.CurrentPage
		}
		page.LastPage = env.Paginator.LastPage
	}
	page.HasMore = page.Page < page.LastPage
	return page, nil
}

// GetDetailBySlug fetches one manga's full detail, including its chapter
// index. Returns ErrNotFound for an unknown slug.
func (c *Client) GetDetailBySlug(ctx context.Context, slug string) (*RemoteMangaDetail, error) {
	env, err := c.get(ctx, "/contents/"+url.PathEscape(slug))
	if err != nil {
		return nil, err
	}
	var detail RemoteMangaDetail
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		return nil, fmt.Errorf("%w: decode detail %q: %v", ErrUnavailable, slug, err)
	}
	return &detail, nil
}

// GetChapterBySlug fetches one chapter's detail with its ordered image list.
func (c *Client) GetChapterBySlug(ctx context.Context, chapterSlug string) (*RemoteChapterDetail, error) {
	env, err := c.get(ctx, "/chapters/"+url.PathEscape(chapterSlug))
	if err != nil {
		return nil, err
	}
	var detail RemoteChapterDetail
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		return nil, fmt.Errorf("%w: decode chapter %q: %v", ErrUnavailable, chapterSlug, err)
	}
	return &detail, nil
}

func (c *Client) get(ctx context.Context, path string) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("remote returned non-2xx")
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrUnavailable, err)
	}
	if !env.Status {
		return nil, fmt.Errorf("%w: status false: %s", ErrUnavailable, env.Message)
	}
	return &env, nil
}
