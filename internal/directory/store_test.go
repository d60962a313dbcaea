package directory_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryannaik/pick/internal/candidate"
	"github.com/aryannaik/pick/internal/directory"
	"github.com/aryannaik/pick/internal/logger"
	"github.com/aryannaik/pick/internal/metrics"
)

func newStore(t *testing.T) (*directory.Store, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	return directory.NewStore(t.TempDir(), "", m, logger.NewNop()), m
}

func seed(t *testing.T, s *directory.Store) []candidate.Candidate {
	t.Helper()
	var out []candidate.Candidate
	for _, c := range directory.DemoCandidates() {
		added, err := s.Add(c)
		require.NoError(t, err)
		out = append(out, added)
	}
	return out
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	added := seed(t, s)
	_, err := s.Add(candidate.Candidate{Name: "Empty Fields", SocialHandles: []candidate.Handle{}})
	require.NoError(t, err)
	require.NoError(t, s.SetPick(added[1].ID))
	require.NoError(t, s.Save())

	loaded := directory.NewStore(filepath.Dir(s.Path()), filepath.Base(s.Path()), metrics.New(), logger.NewNop())
	require.NoError(t, loaded.Load())

	assert.Equal(t, s.List(), loaded.List())
	pick, ok := loaded.Pick()
	assert.True(t, ok)
	assert.Equal(t, added[1].ID, pick)
	assert.Nil(t, loaded.List()[1].WikiPage)
}

func TestSnapshotShape(t *testing.T) {
	s, _ := newStore(t)
	seed(t, s)
	require.NoError(t, s.Save())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "null", string(doc["pick"]))

	var entries []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc["candidates"], &entries))
	require.Len(t, entries, 3)
	for _, key := range []string{"name", "social", "pict", "about", "wiki", "votes", "desc", "rate"} {
		assert.Contains(t, entries[0], key)
	}
	assert.JSONEq(t, `{"title":"Conan Gray"}`, string(entries[0]["wiki"]))
	assert.Equal(t, "null", string(entries[1]["wiki"]))
	assert.JSONEq(t, `{"platform":"instagram","username":"haydmusic"}`, mustFirst(t, entries[1]["social"]))

	_, err = os.Stat(s.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func mustFirst(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &items))
	require.NotEmpty(t, items)
	return string(items[0])
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.Len())
	_, ok := s.Pick()
	assert.False(t, ok)
}

func TestLoadCorruptFile(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"candidates": [`},
		{"missing candidates", `{"pick": null}`},
		{"unknown platform", `{"candidates":[{"id":"a","name":"x","social":[{"platform":"myspace","username":"x"}]}],"pick":null}`},
		{"duplicate ids", `{"candidates":[{"id":"a","name":"x"},{"id":"a","name":"y"}],"pick":null}`},
		{"negative votes", `{"candidates":[{"id":"a","name":"x","votes":-1}],"pick":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newStore(t)
			require.NoError(t, os.WriteFile(s.Path(), []byte(tt.body), 0o644))

			err := s.Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, directory.ErrCorruptState)

			var cerr *directory.CorruptStateError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, s.Path(), cerr.Path)
		})
	}
}

func TestLoadOrResetMovesCorruptFileAside(t *testing.T) {
	s, m := newStore(t)
	seed(t, s)
	require.NoError(t, os.WriteFile(s.Path(), []byte("garbage"), 0o644))

	backup, err := s.LoadOrReset()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(backup, s.Path()+".corrupt-"))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Candidates))

	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(data))
	_, err = os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestLoadOrResetHealthyFile(t *testing.T) {
	s, _ := newStore(t)
	seed(t, s)
	require.NoError(t, s.Save())

	backup, err := s.LoadOrReset()
	require.NoError(t, err)
	assert.Empty(t, backup)
	assert.Equal(t, 3, s.Len())
}

func TestLoadRepairsIDsAndDanglingPick(t *testing.T) {
	s, _ := newStore(t)
	body := `{"candidates":[{"name":"Hayd","social":[],"pict":"","about":"","wiki":null,"votes":2,"desc":"","rate":5}],"pick":"gone"}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(body), 0o644))

	require.NoError(t, s.Load())
	list := s.List()
	require.Len(t, list, 1)
	assert.NotEmpty(t, list[0].ID)
	assert.Equal(t, 2, list[0].VoteCount)
	_, ok := s.Pick()
	assert.False(t, ok)
}

func TestAddRejectsDuplicateID(t *testing.T) {
	s, m := newStore(t)
	c, err := s.Add(candidate.Candidate{Name: "Hayd"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)

	_, err = s.Add(candidate.Candidate{ID: c.ID, Name: "Other"})
	assert.ErrorIs(t, err, directory.ErrDuplicateID)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Candidates))
}

func TestCastVote(t *testing.T) {
	s, m := newStore(t)
	added := seed(t, s)

	_, err := s.CastVote()
	assert.ErrorIs(t, err, directory.ErrNoSelection)

	require.NoError(t, s.SetPick(added[2].ID))
	voted, err := s.CastVote()
	require.NoError(t, err)
	assert.Equal(t, added[2].VoteCount+1, voted.VoteCount)

	_, ok := s.Pick()
	assert.False(t, ok)

	_, err = s.CastVote()
	assert.ErrorIs(t, err, directory.ErrNoSelection)

	got, err := s.Get(added[2].ID)
	require.NoError(t, err)
	assert.Equal(t, added[2].VoteCount+1, got.VoteCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Votes))
}

func TestRemoveClearsPick(t *testing.T) {
	s, _ := newStore(t)
	added := seed(t, s)
	require.NoError(t, s.SetPick(added[0].ID))

	require.NoError(t, s.Remove(added[0].ID))
	_, ok := s.Pick()
	assert.False(t, ok)

	assert.ErrorIs(t, s.Remove(added[0].ID), directory.ErrNotFound)
	_, err := s.Get(added[0].ID)
	assert.ErrorIs(t, err, directory.ErrNotFound)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, added[1].ID, list[0].ID)
	assert.Equal(t, added[2].ID, list[1].ID)

	got, err := s.Get(added[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "Cecil Baldwin", got.Name)
}

func TestRemoveKeepsOtherPick(t *testing.T) {
	s, _ := newStore(t)
	added := seed(t, s)
	require.NoError(t, s.SetPick(added[2].ID))
	require.NoError(t, s.Remove(added[0].ID))

	pick, ok := s.Pick()
	assert.True(t, ok)
	assert.Equal(t, added[2].ID, pick)
}

func TestTogglePick(t *testing.T) {
	s, _ := newStore(t)
	added := seed(t, s)

	picked, err := s.TogglePick(added[0].ID)
	require.NoError(t, err)
	assert.True(t, picked)

	picked, err = s.TogglePick(added[1].ID)
	require.NoError(t, err)
	assert.True(t, picked)
	pick, _ := s.Pick()
	assert.Equal(t, added[1].ID, pick)

	picked, err = s.TogglePick(added[1].ID)
	require.NoError(t, err)
	assert.False(t, picked)
	_, ok := s.Pick()
	assert.False(t, ok)

	_, err = s.TogglePick("missing")
	assert.ErrorIs(t, err, directory.ErrNotFound)
	assert.ErrorIs(t, s.SetPick("missing"), directory.ErrNotFound)
}

func TestRate(t *testing.T) {
	s, _ := newStore(t)
	added := seed(t, s)

	got, err := s.Rate(added[0].ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Rating)

	_, err = s.Rate(added[0].ID, 0)
	assert.ErrorIs(t, err, directory.ErrInvalidRating)
	_, err = s.Rate(added[0].ID, 6)
	assert.ErrorIs(t, err, directory.ErrInvalidRating)
	_, err = s.Rate("missing", 3)
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func TestStandings(t *testing.T) {
	s, _ := newStore(t)
	for _, c := range []candidate.Candidate{
		{Name: "a", VoteCount: 1},
		{Name: "b", VoteCount: 5},
		{Name: "c", VoteCount: 1},
		{Name: "d", VoteCount: 7},
	} {
		_, err := s.Add(c)
		require.NoError(t, err)
	}

	var names []string
	for _, c := range s.Standings() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, names)
	assert.Equal(t, "a", s.List()[0].Name)
}

func TestListReturnsCopies(t *testing.T) {
	s, _ := newStore(t)
	added := seed(t, s)

	list := s.List()
	list[0].SocialHandles[0].Username = "changed"
	list[0].WikiPage.Title = "changed"

	got, err := s.Get(added[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "conangray", got.SocialHandles[0].Username)
	assert.Equal(t, "Conan Gray", got.WikiPage.Title)
}

func TestSubscribe(t *testing.T) {
	s, _ := newStore(t)
	events, cancel := s.Subscribe()

	c, err := s.Add(candidate.Candidate{Name: "Hayd"})
	require.NoError(t, err)
	require.NoError(t, s.SetPick(c.ID))
	_, err = s.CastVote()
	require.NoError(t, err)

	assert.Equal(t, directory.Event{Type: directory.EventAdded, ID: c.ID}, <-events)
	assert.Equal(t, directory.Event{Type: directory.EventPicked, ID: c.ID, Pick: c.ID}, <-events)
	assert.Equal(t, directory.Event{Type: directory.EventVoted, ID: c.ID}, <-events)

	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestAddRejectsValuesTheLoaderRefuses(t *testing.T) {
	s, _ := newStore(t)
	good, err := s.Add(candidate.Candidate{Name: "good", VoteCount: 3})
	require.NoError(t, err)
	assert.Equal(t, directory.MinRating, good.Rating)

	_, err = s.Add(candidate.Candidate{Name: "bad", VoteCount: -1})
	assert.ErrorIs(t, err, directory.ErrInvalidCandidate)
	_, err = s.Add(candidate.Candidate{Name: "bad", Rating: 99})
	assert.ErrorIs(t, err, directory.ErrInvalidRating)
	_, err = s.Add(candidate.Candidate{Name: "bad", Rating: -1})
	assert.ErrorIs(t, err, directory.ErrInvalidRating)
	_, err = s.Add(candidate.Candidate{
		Name:          "bad",
		SocialHandles: []candidate.Handle{{Platform: candidate.Wikipedia, Username: "Hayd"}},
	})
	assert.ErrorIs(t, err, directory.ErrInvalidCandidate)
	assert.ErrorIs(t, err, candidate.ErrUnknownPlatform)
	require.Equal(t, 1, s.Len())

	require.NoError(t, s.Save())
	reopened := directory.NewStore(filepath.Dir(s.Path()), filepath.Base(s.Path()), metrics.New(), logger.NewNop())
	backup, err := reopened.LoadOrReset()
	require.NoError(t, err)
	assert.Empty(t, backup)
	assert.Equal(t, s.List(), reopened.List())

	matches, err := filepath.Glob(s.Path() + ".corrupt-*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestLoadClampsOutOfRangeRating(t *testing.T) {
	s, _ := newStore(t)
	body := `{"candidates":[` +
		`{"id":"low","name":"a","social":[],"pict":"","about":"","wiki":null,"votes":0,"desc":"","rate":-1},` +
		`{"id":"high","name":"b","social":[],"pict":"","about":"","wiki":null,"votes":0,"desc":"","rate":9},` +
		`{"id":"ok","name":"c","social":[],"pict":"","about":"","wiki":null,"votes":0,"desc":"","rate":4}` +
		`],"pick":null}`
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(body), 0o644))

	backup, err := s.LoadOrReset()
	require.NoError(t, err)
	assert.Empty(t, backup)

	var ratings []int
	for _, c := range s.List() {
		ratings = append(ratings, c.Rating)
	}
	assert.Equal(t, []int{directory.MinRating, directory.MaxRating, 4}, ratings)
}
