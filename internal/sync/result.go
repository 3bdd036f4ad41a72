package sync

import "fmt"

// Mode selects how deep a sync run goes.
type Mode string

const (
	// ModeMangaOnly reconciles catalog entries only.
	ModeMangaOnly Mode = "manga"
	// ModeMangaAndChapters also backfills chapter lists, without images.
	ModeMangaAndChapters Mode = "chapters"
	// ModeFull backfills chapters and their image sets.
	ModeFull Mode = "full"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMangaOnly, ModeMangaAndChapters, ModeFull:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown sync mode %q", s)
}

// maxFailureDetails caps the per-run diagnostics list; counters stay exact.
const maxFailureDetails = 25

// Failure records one failed item for diagnostics.
type Failure struct {
	Slug    string `json:"slug"`
	Message string `json:"message"`
}

// Result aggregates one reconciliation run. Synced counts fresh inserts,
// Updated counts refreshed mirrors, Errors counts isolated per-item failures;
// Total is every remote item seen on the page regardless of outcome.
type Result struct {
	RunID          string    `json:"run_id"`
	Synced         int       `json:"synced"`
	Updated        int       `json:"updated"`
	Errors         int       `json:"errors"`
	Total          int       `json:"total"`
	ChaptersSynced int       `json:"chapters_synced"`
	ImagesSynced   int       `json:"images_synced"`
	HasMore        bool      `json:"has_more"`
	Failures       []Failure `json:"failures,omitempty"`
}

func (r *Result) addFailure(slug string, err error) {
	r.Errors++
	if len(r.Failures) < maxFailureDetails {
		r.Failures = append(r.Failures, Failure{Slug: slug, Message: err.Error()})
	}
}

// BackfillResult aggregates one manga's chapter backfill.
type BackfillResult struct {
	ChaptersSynced int       `json:"chapters_synced"`
	ImagesSynced   int       `json:"images_synced"`
	Errors         int       `json:"errors"`
	Failures       []Failure `json:"failures,omitempty"`
}

func (r *BackfillResult) addFailure(slug string, err error) {
	r.Errors++
	if len(r.Failures) < maxFailureDetails {
		r.Failures = append(r.Failures, Failure{Slug: slug, Message: err.Error()})
	}
}
