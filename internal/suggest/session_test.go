package suggest_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryannaik/pick/internal/candidate"
	"github.com/aryannaik/pick/internal/logger"
	"github.com/aryannaik/pick/internal/metrics"
	"github.com/aryannaik/pick/internal/suggest"
	"github.com/aryannaik/pick/internal/wiki"
)

type call struct {
	pages []candidate.Page
	err   error
}

// gatedSearcher blocks each prefix until the test releases it.
type gatedSearcher struct {
	mu      sync.Mutex
	gates   map[string]chan call
	started chan string
}

func newGatedSearcher() *gatedSearcher {
	return &gatedSearcher{gates: make(map[string]chan call), started: make(chan string, 8)}
}

func (g *gatedSearcher) gate(prefix string) chan call {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[prefix]
	if !ok {
		ch = make(chan call, 1)
		g.gates[prefix] = ch
	}
	return ch
}

func (g *gatedSearcher) SearchTitles(ctx context.Context, prefix string, limit int) ([]candidate.Page, error) {
	g.started <- prefix
	c := <-g.gate(prefix)
	return c.pages, c.err
}

// stubSearcher answers immediately.
type stubSearcher struct {
	pages  []candidate.Page
	err    error
	limits []int
}

func (s *stubSearcher) SearchTitles(ctx context.Context, prefix string, limit int) ([]candidate.Page, error) {
	s.limits = append(s.limits, limit)
	return s.pages, s.err
}

func pages(titles ...string) []candidate.Page {
	out := make([]candidate.Page, 0, len(titles))
	for _, t := range titles {
		out = append(out, candidate.Page{Title: t})
	}
	return out
}

func TestOutOfOrderResultsKeepLatest(t *testing.T) {
	g := newGatedSearcher()
	m := metrics.New()
	s := suggest.NewSession(g, suggest.Config{Limit: 5}, m, logger.NewNop())

	coDone := make(chan suggest.State, 1)
	go func() { coDone <- s.SetInput(context.Background(), "Co") }()
	require.Equal(t, "Co", <-g.started)

	conDone := make(chan suggest.State, 1)
	go func() { conDone <- s.SetInput(context.Background(), "Con") }()
	require.Equal(t, "Con", <-g.started)

	g.gate("Con") <- call{pages: pages("Conan Gray", "Concord")}
	assert.Equal(t, suggest.Settled, <-conDone)

	g.gate("Co") <- call{pages: pages("Coal", "Cobalt")}
	assert.Equal(t, suggest.Stale, <-coDone)

	snap := s.Snapshot()
	assert.Equal(t, "Con", snap.Input)
	assert.Equal(t, suggest.Settled, snap.State)
	assert.Equal(t, pages("Conan Gray", "Concord"), snap.Suggestions)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleResults.WithLabelValues("suggest")))
}

func TestFailureKeepsPriorSuggestions(t *testing.T) {
	stub := &stubSearcher{pages: pages("Conan Gray")}
	s := suggest.NewSession(stub, suggest.Config{Limit: 5}, metrics.New(), logger.NewNop())

	require.Equal(t, suggest.Settled, s.SetInput(context.Background(), "Con"))

	stub.err = &wiki.LookupError{Op: "search titles", Kind: wiki.KindNetwork, Err: errors.New("offline")}
	assert.Equal(t, suggest.Failed, s.SetInput(context.Background(), "Cona"))

	snap := s.Snapshot()
	assert.Equal(t, suggest.Failed, snap.State)
	assert.Equal(t, "Cona", snap.Input)
	assert.Equal(t, pages("Conan Gray"), snap.Suggestions)
	assert.NotEmpty(t, snap.Error)
}

func TestEmptyInputClearsWithoutSearching(t *testing.T) {
	stub := &stubSearcher{pages: pages("Conan Gray")}
	s := suggest.NewSession(stub, suggest.Config{Limit: 5}, metrics.New(), logger.NewNop())

	s.SetInput(context.Background(), "Con")
	assert.Equal(t, suggest.Idle, s.SetInput(context.Background(), ""))

	snap := s.Snapshot()
	assert.Equal(t, suggest.Idle, snap.State)
	assert.Empty(t, snap.Suggestions)
	assert.Len(t, stub.limits, 1)
}

func TestSelectClosesListAndInvalidatesInFlight(t *testing.T) {
	g := newGatedSearcher()
	s := suggest.NewSession(g, suggest.Config{Limit: 5}, metrics.New(), logger.NewNop())

	done := make(chan suggest.State, 1)
	go func() { done <- s.SetInput(context.Background(), "Con") }()
	<-g.started

	s.Select(candidate.Page{Title: "Conan Gray"})
	g.gate("Con") <- call{pages: pages("Conan Gray", "Concord")}
	assert.Equal(t, suggest.Stale, <-done)

	snap := s.Snapshot()
	assert.Equal(t, suggest.Selected, snap.State)
	assert.Equal(t, "Conan Gray", snap.Input)
	assert.Empty(t, snap.Suggestions)
	require.NotNil(t, snap.Selected)

	chosen, ok := s.Chosen()
	require.True(t, ok)
	assert.Equal(t, "Conan Gray", chosen.Title)
}

func TestEditingAfterSelectDropsSelection(t *testing.T) {
	stub := &stubSearcher{pages: pages("Conan Gray")}
	s := suggest.NewSession(stub, suggest.Config{Limit: 5}, metrics.New(), logger.NewNop())

	s.Select(candidate.Page{Title: "Conan Gray"})
	s.SetInput(context.Background(), "Conan Gra")

	assert.Nil(t, s.Snapshot().Selected)
	_, ok := s.Chosen()
	assert.False(t, ok)
}

func TestExactMatchIsChosen(t *testing.T) {
	stub := &stubSearcher{pages: pages("Conan Gray", "Conan Gray (album)")}
	s := suggest.NewSession(stub, suggest.Config{Limit: 5}, metrics.New(), logger.NewNop())

	assert.Equal(t, suggest.Settled, s.Complete(context.Background(), candidate.Page{Title: "Conan Gray"}))

	snap := s.Snapshot()
	assert.Nil(t, snap.Selected)
	require.NotNil(t, snap.Match)

	chosen, ok := s.Chosen()
	require.True(t, ok)
	assert.Equal(t, "Conan Gray", chosen.Title)
}

func TestMatchFollowsInput(t *testing.T) {
	stub := &stubSearcher{pages: pages("Conan Gray", "Conan Gray (album)")}
	s := suggest.NewSession(stub, suggest.Config{Limit: 5}, metrics.New(), logger.NewNop())
	require.Equal(t, suggest.Settled, s.SetInput(context.Background(), "Conan Gray"))
	require.NotNil(t, s.Snapshot().Match)

	stub.err = errors.New("offline")
	assert.Equal(t, suggest.Failed, s.SetInput(context.Background(), "Conan Gra"))

	snap := s.Snapshot()
	assert.Nil(t, snap.Match)
	assert.Len(t, snap.Suggestions, 2)
	_, ok := s.Chosen()
	assert.False(t, ok)
}

func TestRetriesNetworkFailures(t *testing.T) {
	stub := &flakySearcher{failures: 1, pages: pages("Hayd")}
	s := suggest.NewSession(stub, suggest.Config{Limit: 5, Retries: 2, RetryInterval: 1}, metrics.New(), logger.NewNop())

	assert.Equal(t, suggest.Settled, s.SetInput(context.Background(), "Hay"))
	assert.Equal(t, 2, stub.calls)
}

type flakySearcher struct {
	failures int
	calls    int
	pages    []candidate.Page
}

func (f *flakySearcher) SearchTitles(ctx context.Context, prefix string, limit int) ([]candidate.Page, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, &wiki.LookupError{Op: "search titles", Kind: wiki.KindNetwork, Err: errors.New("reset")}
	}
	return f.pages, nil
}

func TestResetInvalidates(t *testing.T) {
	stub := &stubSearcher{pages: pages("Cecil Baldwin")}
	s := suggest.NewSession(stub, suggest.Config{Limit: 5}, metrics.New(), logger.NewNop())

	s.SetInput(context.Background(), "Cecil")
	s.Reset()

	snap := s.Snapshot()
	assert.Equal(t, suggest.Idle, snap.State)
	assert.Equal(t, "", snap.Input)
	assert.Empty(t, snap.Suggestions)
}
