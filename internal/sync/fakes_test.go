package sync

import (
	"context"
	"fmt"
	"strings"
	stdsync "sync"

	"github.com/cecepns/komiknesia-sub000/internal/westmanga"
	"github.com/cecepns/komiknesia-sub000/pkg/models"
)

// fakeStore is an in-memory Store with forced-failure hooks.
type fakeStore struct {
	mu       stdsync.Mutex
	nextID   int64
	entries  map[int64]*models.Manga   // by local id
	genres   map[string]int64          // lower(name) -> genre id
	links    map[string]bool           // "mangaID:genreID"
	chapters map[int64]*models.Chapter // by local chapter id
	images   map[int64]map[int]string  // chapter id -> page -> path

	failUpsertSlugs   map[string]bool
	failChapterSlugs  map[string]bool
	chapterMetaWrites int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:          make(map[int64]*models.Manga),
		genres:           make(map[string]int64),
		links:            make(map[string]bool),
		chapters:         make(map[int64]*models.Chapter),
		images:           make(map[int64]map[int]string),
		failUpsertSlugs:  make(map[string]bool),
		failChapterSlugs: make(map[string]bool),
	}
}

func (s *fakeStore) addGenre(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.genres[strings.ToLower(name)] = s.nextID
}

func (s *fakeStore) seed(m models.Manga) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	s.entries[m.ID] = &m
	return m.ID
}

func (s *fakeStore) seedChapter(ch models.Chapter, imageCount int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	ch.ID = s.nextID
	s.chapters[ch.ID] = &ch
	pages := make(map[int]string, imageCount)
	for i := 1; i <= imageCount; i++ {
		pages[i] = fmt.Sprintf("seed-%d.jpg", i)
	}
	s.images[ch.ID] = pages
	return ch.ID
}

func (s *fakeStore) bySlug(slug string) *models.Manga {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.entries {
		if m.Slug == slug {
			cp := *m
			return &cp
		}
	}
	return nil
}

func (s *fakeStore) entryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *fakeStore) chapterCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chapters)
}

func (s *fakeStore) linkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

func (s *fakeStore) GetByWestmangaID(_ context.Context, westmangaID int64) (*models.Manga, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.entries {
		if m.WestmangaID != nil && *m.WestmangaID == westmangaID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) UpsertMirrored(_ context.Context, m *models.Manga) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpsertSlugs[m.Slug] {
		return 0, fmt.Errorf("forced db error for %s", m.Slug)
	}
	for id, ex := range s.entries {
		if ex.WestmangaID != nil && m.WestmangaID != nil && *ex.WestmangaID == *m.WestmangaID {
			cp := *m
			cp.ID = id
			s.entries[id] = &cp
			return id, nil
		}
	}
	s.nextID++
	cp := *m
	cp.ID = s.nextID
	s.entries[cp.ID] = &cp
	return cp.ID, nil
}

func (s *fakeStore) LinkGenres(_ context.Context, mangaID int64, names []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	linked := 0
	for _, name := range names {
		gid, ok := s.genres[strings.ToLower(name)]
		if !ok {
			continue
		}
		s.links[fmt.Sprintf("%d:%d", mangaID, gid)] = true
		linked++
	}
	return linked, nil
}

func (s *fakeStore) GetChapterByRemoteID(_ context.Context, mangaID, remoteChapterID int64) (*models.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.chapters {
		if ch.MangaID == mangaID && ch.WestmangaChapterID != nil && *ch.WestmangaChapterID == remoteChapterID {
			cp := *ch
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetChapterByNumber(_ context.Context, mangaID int64, number string) (*models.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.chapters {
		if ch.MangaID == mangaID && ch.Number == number {
			cp := *ch
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) InsertChapter(_ context.Context, ch *models.Chapter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failChapterSlugs[ch.Slug] {
		return 0, fmt.Errorf("forced db error for %s", ch.Slug)
	}
	s.nextID++
	cp := *ch
	cp.ID = s.nextID
	s.chapters[cp.ID] = &cp
	return cp.ID, nil
}

func (s *fakeStore) UpdateChapterMeta(_ context.Context, chapterID int64, title, number, chapterSlug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.chapters[chapterID]
	if !ok {
		return fmt.Errorf("no chapter %d", chapterID)
	}
	ch.Title = title
	ch.Number = number
	ch.Slug = chapterSlug
	s.chapterMetaWrites++
	return nil
}

func (s *fakeStore) CountChapterImages(_ context.Context, chapterID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images[chapterID]), nil
}

func (s *fakeStore) UpsertChapterImage(_ context.Context, chapterID int64, pageNumber int, imagePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.images[chapterID] == nil {
		s.images[chapterID] = make(map[int]string)
	}
	s.images[chapterID][pageNumber] = imagePath
	return nil
}

// fakeRemote serves canned pages/details and counts calls per endpoint.
type fakeRemote struct {
	mu           stdsync.Mutex
	page         *westmanga.Page
	listErr      error
	details      map[string]*westmanga.RemoteMangaDetail
	chapterData  map[string]*westmanga.RemoteChapterDetail
	detailCalls  int
	chapterCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		details:     make(map[string]*westmanga.RemoteMangaDetail),
		chapterData: make(map[string]*westmanga.RemoteChapterDetail),
	}
}

func (r *fakeRemote) ListPage(_ context.Context, _ westmanga.ListParams) (*westmanga.Page, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.page, nil
}

func (r *fakeRemote) GetDetailBySlug(_ context.Context, slug string) (*westmanga.RemoteMangaDetail, error) {
	r.mu.Lock()
	r.detailCalls++
	r.mu.Unlock()
	d, ok := r.details[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", westmanga.ErrNotFound, slug)
	}
	return d, nil
}

func (r *fakeRemote) GetChapterBySlug(_ context.Context, chapterSlug string) (*westmanga.RemoteChapterDetail, error) {
	r.mu.Lock()
	r.chapterCalls++
	r.mu.Unlock()
	d, ok := r.chapterData[chapterSlug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", westmanga.ErrNotFound, chapterSlug)
	}
	return d, nil
}
