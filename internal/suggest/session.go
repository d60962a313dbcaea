// Package suggest drives incremental title search as the user types. Each
// input change issues a search tagged with a sequence number; a result is
// applied only while its sequence number is still the latest issued.
package suggest

import (
	"context"
	"sync"
	"time"

	"github.com/aryannaik/pick/internal/candidate"
	"github.com/aryannaik/pick/internal/logger"
	"github.com/aryannaik/pick/internal/metrics"
	"github.com/aryannaik/pick/internal/wiki"
)

// State is the lifecycle position of a session or of a single search call.
type State string

const (
	Idle      State = "idle"
	Searching State = "searching"
	Settled   State = "settled"
	Stale     State = "stale"
	Failed    State = "failed"
	Selected  State = "selected"
)

// DefaultLimit is the number of suggestions requested per keystroke.
const DefaultLimit = 5

// Searcher lists page titles starting at a prefix.
type Searcher interface {
	SearchTitles(ctx context.Context, prefix string, limit int) ([]candidate.Page, error)
}

type Config struct {
	Limit         int
	Retries       uint64
	RetryInterval time.Duration
}

// Snapshot is a consistent copy of the session for rendering.
type Snapshot struct {
	Input       string           `json:"input"`
	State       State            `json:"state"`
	Suggestions []candidate.Page `json:"suggestions"`
	Match       *candidate.Page  `json:"match,omitempty"`
	Selected    *candidate.Page  `json:"selected,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Session is safe for concurrent use. Searches run outside the lock so that
// several may be in flight at once.
type Session struct {
	searcher Searcher
	cfg      Config
	metrics  *metrics.Metrics
	log      logger.Logger

	mu          sync.Mutex
	seq         uint64
	input       string
	state       State
	suggestions []candidate.Page
	match       *candidate.Page
	selected    *candidate.Page
	lastErr     error
}

func NewSession(searcher Searcher, cfg Config, m *metrics.Metrics, log logger.Logger) *Session {
	if cfg.Limit < 0 {
		cfg.Limit = wiki.NoLimit
	}
	return &Session{
		searcher: searcher,
		cfg:      cfg,
		metrics:  m,
		log:      log.With(logger.String("component", "suggest")),
		state:    Idle,
	}
}

// SetInput records a new input value and searches for it, blocking until the
// search resolves. It returns the outcome of this call: Settled when the
// result was applied, Stale when a newer input superseded it, Failed when the
// search errored, and Idle for empty input. Failures keep the previous
// suggestions and are only logged. The exact match always tracks the
// current input.
func (s *Session) SetInput(ctx context.Context, text string) State {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.input = text
	s.selected = nil
	s.match = nil
	s.lastErr = nil
	if text == "" {
		s.suggestions = nil
		s.state = Idle
		s.mu.Unlock()
		return Idle
	}
	s.state = Searching
	s.mu.Unlock()

	var pages []candidate.Page
	err := wiki.Retry(ctx, s.cfg.Retries, s.cfg.RetryInterval, func() error {
		var err error
		pages, err = s.searcher.SearchTitles(ctx, text, s.cfg.Limit)
		return err
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		s.metrics.StaleResults.WithLabelValues("suggest").Inc()
		s.log.Debug("Dropping stale suggestions",
			logger.String("prefix", text),
			logger.Uint64("seq", seq),
			logger.Uint64("latest", s.seq),
		)
		return Stale
	}

	if err != nil {
		s.lastErr = err
		s.state = Failed
		s.log.Warn("Title search failed",
			logger.String("prefix", text),
			logger.Uint64("seq", seq),
			logger.Err(err),
		)
		return Failed
	}

	s.suggestions = pages
	s.match = exactMatch(pages, text)
	s.state = Settled
	return Settled
}

// Complete copies a suggestion's title into the input and searches again
// without selecting it.
func (s *Session) Complete(ctx context.Context, page candidate.Page) State {
	return s.SetInput(ctx, page.Title)
}

// Select closes the suggestion list and makes page the session's choice. Any
// search still in flight becomes stale.
func (s *Session) Select(page candidate.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.input = page.Title
	s.selected = &page
	s.match = nil
	s.suggestions = nil
	s.lastErr = nil
	s.state = Selected
}

// Chosen returns the selected page, or failing that a suggestion whose title
// equals the input exactly.
func (s *Session) Chosen() (candidate.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.selected != nil:
		return *s.selected, true
	case s.match != nil:
		return *s.match, true
	}
	return candidate.Page{}, false
}

// Reset returns the session to Idle and invalidates in-flight searches.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.input = ""
	s.state = Idle
	s.suggestions = nil
	s.match = nil
	s.selected = nil
	s.lastErr = nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Input:       s.input,
		State:       s.state,
		Suggestions: append([]candidate.Page{}, s.suggestions...),
		Match:       copyPage(s.match),
		Selected:    copyPage(s.selected),
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	return snap
}

func exactMatch(pages []candidate.Page, text string) *candidate.Page {
	for _, p := range pages {
		if p.Title == text {
			return &p
		}
	}
	return nil
}

func copyPage(p *candidate.Page) *candidate.Page {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}
