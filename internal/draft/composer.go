// Package draft composes a new candidate: field edits, autofill from an
// encyclopedia summary, and the readiness gate for submission.
package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aryannaik/pick/internal/candidate"
	"github.com/aryannaik/pick/internal/logger"
	"github.com/aryannaik/pick/internal/metrics"
	"github.com/aryannaik/pick/internal/suggest"
	"github.com/aryannaik/pick/internal/wiki"
)

var (
	// ErrNotReady is returned by Submit when a required field is missing.
	ErrNotReady = errors.New("draft is not ready")
	// ErrNoPage is returned when autofill has no page to fetch.
	ErrNoPage = errors.New("no page selected")
	// ErrHandleIndex is returned for a handle index outside the list.
	ErrHandleIndex = errors.New("handle index out of range")
	// ErrLastHandleEmpty is returned when adding a handle while the last one
	// still has no username.
	ErrLastHandleEmpty = errors.New("last handle has no username")
	// ErrInvalidField is returned for an edit outside a field's range.
	ErrInvalidField = errors.New("invalid field value")
)

// MaxRating bounds the draft rating; zero means unrated.
const MaxRating = 5

// Outcome reports what happened to one autofill call.
type Outcome string

const (
	Applied Outcome = "applied"
	Stale   Outcome = "stale"
	Failed  Outcome = "failed"
)

// Fetcher retrieves a page summary.
type Fetcher interface {
	FetchSummary(ctx context.Context, page candidate.Page) (candidate.Summary, error)
}

type Config struct {
	Retries       uint64
	RetryInterval time.Duration
}

// Patch edits scalar draft fields; nil fields are left alone.
type Patch struct {
	Name             *string `json:"name,omitempty"`
	ShortDescription *string `json:"desc,omitempty"`
	About            *string `json:"about,omitempty"`
	PictureURL       *string `json:"pict,omitempty"`
	VoteCount        *int    `json:"votes,omitempty"`
	Rating           *int    `json:"rate,omitempty"`
}

// Status is a consistent copy of the composer for rendering.
type Status struct {
	Draft   candidate.Candidate `json:"draft"`
	Ready   bool                `json:"ready"`
	Missing []string            `json:"missing"`
	Busy    bool                `json:"busy"`
	Pending *candidate.Page     `json:"pending,omitempty"`
	Error   string              `json:"error,omitempty"`
	Search  suggest.Snapshot    `json:"search"`
}

// Composer owns one in-progress draft and the title search that feeds it.
// Autofill fetches run outside the lock; only the most recently started
// fetch may write to the draft.
type Composer struct {
	fetcher Fetcher
	search  *suggest.Session
	cfg     Config
	metrics *metrics.Metrics
	log     logger.Logger

	mu      sync.Mutex
	draft   candidate.Candidate
	seq     uint64
	pending *candidate.Page
	lastErr error
}

func NewComposer(fetcher Fetcher, search *suggest.Session, cfg Config, m *metrics.Metrics, log logger.Logger) *Composer {
	return &Composer{
		fetcher: fetcher,
		search:  search,
		cfg:     cfg,
		metrics: m,
		log:     log.With(logger.String("component", "draft")),
		draft:   NewDraft(),
	}
}

// NewDraft is the starting state of every draft: one blank twitter handle
// and the top rating.
func NewDraft() candidate.Candidate {
	return candidate.Candidate{
		SocialHandles: []candidate.Handle{{Platform: candidate.Twitter}},
		Rating:        MaxRating,
	}
}

// Search exposes the title search session.
func (c *Composer) Search() *suggest.Session {
	return c.search
}

// Merge copies summary fields into d. The extract, title and page always
// replace the draft's values; description and image only when present.
func Merge(d candidate.Candidate, s candidate.Summary) candidate.Candidate {
	d.About = s.Extract
	if s.ShortDescription != nil {
		d.ShortDescription = *s.ShortDescription
	}
	if s.ImageURL != nil {
		d.PictureURL = *s.ImageURL
	}
	d.Name = s.NormalizedTitle
	d.WikiPage = &candidate.Page{Title: s.NormalizedTitle}
	return d
}

// Autofill fetches page's summary and merges it into the draft. A failed
// fetch leaves the draft unmodified and is kept as the composer's error
// status; calling again retries. A fetch overtaken by a newer Autofill, a
// Reset or a Submit is discarded.
func (c *Composer) Autofill(ctx context.Context, page candidate.Page) (Outcome, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.pending = &page
	c.lastErr = nil
	c.mu.Unlock()

	var summary candidate.Summary
	err := wiki.Retry(ctx, c.cfg.Retries, c.cfg.RetryInterval, func() error {
		var err error
		summary, err = c.fetcher.FetchSummary(ctx, page)
		return err
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.metrics.StaleResults.WithLabelValues("draft").Inc()
		c.log.Debug("Dropping stale autofill",
			logger.String("page", page.Title),
			logger.Uint64("seq", seq),
			logger.Uint64("latest", c.seq),
		)
		return Stale, nil
	}
	c.pending = nil

	if err != nil {
		c.lastErr = err
		c.log.Warn("Autofill failed",
			logger.String("page", page.Title),
			logger.Uint64("seq", seq),
			logger.Err(err),
		)
		return Failed, err
	}

	c.draft = Merge(c.draft, summary)
	return Applied, nil
}

// AutofillChosen autofills from the search session's chosen page.
func (c *Composer) AutofillChosen(ctx context.Context) (Outcome, error) {
	page, ok := c.search.Chosen()
	if !ok {
		return Failed, ErrNoPage
	}
	return c.Autofill(ctx, page)
}

// Select makes page the search choice and autofills from it.
func (c *Composer) Select(ctx context.Context, page candidate.Page) (Outcome, error) {
	c.search.Select(page)
	return c.Autofill(ctx, page)
}

// Update applies p to the draft.
func (c *Composer) Update(p Patch) error {
	if p.VoteCount != nil && *p.VoteCount < 0 {
		return fmt.Errorf("%w: votes %d is negative", ErrInvalidField, *p.VoteCount)
	}
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > MaxRating) {
		return fmt.Errorf("%w: rating %d outside [0,%d]", ErrInvalidField, *p.Rating, MaxRating)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p.Name != nil {
		c.draft.Name = *p.Name
	}
	if p.ShortDescription != nil {
		c.draft.ShortDescription = *p.ShortDescription
	}
	if p.About != nil {
		c.draft.About = *p.About
	}
	if p.PictureURL != nil {
		c.draft.PictureURL = strings.TrimSpace(*p.PictureURL)
	}
	if p.VoteCount != nil {
		c.draft.VoteCount = *p.VoteCount
	}
	if p.Rating != nil {
		c.draft.Rating = *p.Rating
	}
	return nil
}

// AddHandle appends an empty twitter handle. It refuses while the last
// handle is still blank.
func (c *Composer) AddHandle() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.draft.SocialHandles); n > 0 && c.draft.SocialHandles[n-1].Username == "" {
		return ErrLastHandleEmpty
	}
	c.draft.SocialHandles = append(c.draft.SocialHandles, candidate.Handle{Platform: candidate.Twitter})
	return nil
}

// SetHandle replaces the handle at i. Only editable platforms are accepted.
func (c *Composer) SetHandle(i int, platform candidate.Platform, username string) error {
	if !platform.Editable() {
		return fmt.Errorf("%w: %q cannot be edited", candidate.ErrUnknownPlatform, platform)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i < 0 || i >= len(c.draft.SocialHandles) {
		return fmt.Errorf("%w: %d", ErrHandleIndex, i)
	}
	c.draft.SocialHandles[i] = candidate.Handle{Platform: platform, Username: strings.TrimSpace(username)}
	return nil
}

func (c *Composer) RemoveHandle(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i < 0 || i >= len(c.draft.SocialHandles) {
		return fmt.Errorf("%w: %d", ErrHandleIndex, i)
	}
	c.draft.SocialHandles = append(c.draft.SocialHandles[:i], c.draft.SocialHandles[i+1:]...)
	return nil
}

// Submit returns the finished candidate with a fresh id and resets the
// composer. Blank handles are dropped and an unrated draft gets rating 1.
func (c *Composer) Submit() (candidate.Candidate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.draft.Clone()
	out.SocialHandles = candidate.UsableHandles(out.SocialHandles)
	if missing := candidate.Missing(out); len(missing) > 0 {
		return candidate.Candidate{}, fmt.Errorf("%w: missing %s", ErrNotReady, strings.Join(missing, ", "))
	}
	if out.Rating < 1 {
		out.Rating = 1
	}
	out.ID = candidate.NewID()

	c.resetLocked()
	return out, nil
}

// Reset discards the draft and any autofill in flight.
func (c *Composer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Composer) resetLocked() {
	c.seq++
	c.draft = NewDraft()
	c.pending = nil
	c.lastErr = nil
	c.search.Reset()
}

func (c *Composer) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Draft:   c.draft.Clone(),
		Ready:   candidate.Ready(c.draft),
		Missing: candidate.Missing(c.draft),
		Busy:    c.pending != nil,
		Search:  c.search.Snapshot(),
	}
	if st.Missing == nil {
		st.Missing = []string{}
	}
	if c.pending != nil {
		p := *c.pending
		st.Pending = &p
	}
	if c.lastErr != nil {
		st.Error = c.lastErr.Error()
	}
	return st
}
