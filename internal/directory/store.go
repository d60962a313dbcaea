// Package directory is the persisted collection of candidates and the
// current pick. Entries keep insertion order and are unique by id.
package directory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aryannaik/pick/internal/candidate"
	"github.com/aryannaik/pick/internal/logger"
	"github.com/aryannaik/pick/internal/metrics"
)

// DefaultFile is the snapshot name inside the data directory.
const DefaultFile = "election.json"

const (
	MinRating = 1
	MaxRating = 5
)

// EventType names a directory change.
type EventType string

const (
	EventAdded   EventType = "added"
	EventRemoved EventType = "removed"
	EventPicked  EventType = "picked"
	EventVoted   EventType = "voted"
	EventRated   EventType = "rated"
	EventLoaded  EventType = "loaded"
)

// Event is delivered to subscribers after each mutation.
type Event struct {
	Type EventType `json:"type"`
	ID   string    `json:"id,omitempty"`
	Pick string    `json:"pick,omitempty"`
}

const subscriberBuffer = 16

type Store struct {
	mu      sync.RWMutex
	entries []candidate.Candidate
	index   map[string]int
	pick    string
	path    string
	metrics *metrics.Metrics
	log     logger.Logger

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

func NewStore(dataDir, file string, m *metrics.Metrics, log logger.Logger) *Store {
	if file == "" {
		file = DefaultFile
	}
	return &Store{
		index:   make(map[string]int),
		path:    filepath.Join(dataDir, file),
		metrics: m,
		log:     log.With(logger.String("component", "directory")),
		subs:    make(map[int]chan Event),
	}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory directory with the snapshot file. A missing
// file leaves the directory empty and is not an error; an unreadable or
// invalid one returns a *CorruptStateError and leaves memory untouched.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read directory file: %w", err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return &CorruptStateError{Path: s.path, Err: err}
	}
	if snap.Dangling {
		s.log.Warn("Clearing pick that names no candidate", logger.String("path", s.path))
	}
	for _, id := range snap.Clamped {
		s.log.Warn("Clamped out-of-range rating", logger.String("path", s.path), logger.String("id", id))
	}
	pick := snap.Pick

	s.mu.Lock()
	s.entries = snap.Entries
	s.reindexLocked(0)
	s.pick = pick
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.Candidates.Set(float64(n))
	s.log.Info("Loaded directory", logger.String("path", s.path), logger.Int("candidates", n))
	s.notify(Event{Type: EventLoaded, Pick: pick})
	return nil
}

// LoadOrReset loads the snapshot and, if it is corrupt, moves it aside to
// <file>.corrupt-<unix seconds> and continues with an empty directory. It
// returns the backup path when a reset happened.
func (s *Store) LoadOrReset() (string, error) {
	err := s.Load()
	if err == nil || !errors.Is(err, ErrCorruptState) {
		return "", err
	}

	backup := s.path + ".corrupt-" + strconv.FormatInt(time.Now().Unix(), 10)
	if rerr := os.Rename(s.path, backup); rerr != nil {
		return "", fmt.Errorf("move corrupt snapshot aside: %w", rerr)
	}
	s.log.Error("Directory snapshot was corrupt, starting empty",
		logger.String("path", s.path),
		logger.String("backup", backup),
		logger.Err(err),
	)

	s.mu.Lock()
	s.entries = nil
	s.reindexLocked(0)
	s.pick = ""
	s.mu.Unlock()

	s.metrics.Candidates.Set(0)
	s.notify(Event{Type: EventLoaded})
	return backup, nil
}

// Save writes the whole directory as one snapshot.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := encodeSnapshot(s.entries, s.pick)
	n := len(s.entries)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}
	s.log.Debug("Saved directory", logger.String("path", s.path), logger.Int("candidates", n))
	return nil
}

// UpdatedAt returns the snapshot file's modification time, or zero if unknown.
func (s *Store) UpdatedAt() time.Time {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Add appends c, assigning an id if it has none, and returns the stored copy.
// A zero rating means unrated and is stored as MinRating.
func (s *Store) Add(c candidate.Candidate) (candidate.Candidate, error) {
	if err := validate(c); err != nil {
		return candidate.Candidate{}, err
	}
	c = c.Clone()
	if c.Rating == 0 {
		c.Rating = MinRating
	}
	if c.ID == "" {
		c.ID = candidate.NewID()
	}

	s.mu.Lock()
	if _, ok := s.index[c.ID]; ok {
		s.mu.Unlock()
		return candidate.Candidate{}, fmt.Errorf("%w: %s", ErrDuplicateID, c.ID)
	}
	s.index[c.ID] = len(s.entries)
	s.entries = append(s.entries, c)
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.Candidates.Set(float64(n))
	s.notify(Event{Type: EventAdded, ID: c.ID})
	return c.Clone(), nil
}

func validate(c candidate.Candidate) error {
	if c.VoteCount < 0 {
		return fmt.Errorf("%w: negative votes %d", ErrInvalidCandidate, c.VoteCount)
	}
	if c.Rating != 0 && (c.Rating < MinRating || c.Rating > MaxRating) {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidRating, c.Rating, MinRating, MaxRating)
	}
	for _, h := range c.SocialHandles {
		if !h.Platform.Editable() {
			return fmt.Errorf("%w: %w %q in social handles", ErrInvalidCandidate, candidate.ErrUnknownPlatform, h.Platform)
		}
	}
	return nil
}

// Remove deletes the candidate and clears the pick if it named it.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, id)
	s.reindexLocked(i)
	if s.pick == id {
		s.pick = ""
	}
	pick := s.pick
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.Candidates.Set(float64(n))
	s.notify(Event{Type: EventRemoved, ID: id, Pick: pick})
	return nil
}

func (s *Store) Get(id string) (candidate.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return candidate.Candidate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.entries[i].Clone(), nil
}

// List returns every candidate in insertion order.
func (s *Store) List() []candidate.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]candidate.Candidate, len(s.entries))
	for i, c := range s.entries {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the number of candidates.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Standings returns candidates by vote count, highest first. Ties keep
// insertion order.
func (s *Store) Standings() []candidate.Candidate {
	out := s.List()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].VoteCount > out[j].VoteCount
	})
	return out
}

// Pick returns the picked candidate id.
func (s *Store) Pick() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pick, s.pick != ""
}

// SetPick marks id as the candidate awaiting a vote.
func (s *Store) SetPick(id string) error {
	s.mu.Lock()
	if _, ok := s.index[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.pick = id
	s.mu.Unlock()

	s.notify(Event{Type: EventPicked, ID: id, Pick: id})
	return nil
}

// TogglePick picks id, or clears the pick if id is already picked. It
// reports whether id is picked afterwards.
func (s *Store) TogglePick(id string) (bool, error) {
	s.mu.Lock()
	if _, ok := s.index[id]; !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.pick == id {
		s.pick = ""
	} else {
		s.pick = id
	}
	pick := s.pick
	s.mu.Unlock()

	s.notify(Event{Type: EventPicked, ID: id, Pick: pick})
	return pick == id, nil
}

func (s *Store) ClearPick() {
	s.mu.Lock()
	s.pick = ""
	s.mu.Unlock()

	s.notify(Event{Type: EventPicked})
}

// CastVote adds one vote to the picked candidate and clears the pick.
func (s *Store) CastVote() (candidate.Candidate, error) {
	s.mu.Lock()
	if s.pick == "" {
		s.mu.Unlock()
		return candidate.Candidate{}, ErrNoSelection
	}
	id := s.pick
	i, ok := s.index[id]
	if !ok {
		s.pick = ""
		s.mu.Unlock()
		return candidate.Candidate{}, fmt.Errorf("%w: picked %s", ErrNotFound, id)
	}
	s.entries[i].VoteCount++
	s.pick = ""
	out := s.entries[i].Clone()
	s.mu.Unlock()

	s.metrics.Votes.Inc()
	s.log.Info("Vote cast", logger.String("id", id), logger.Int("votes", out.VoteCount))
	s.notify(Event{Type: EventVoted, ID: id})
	return out, nil
}

// Rate sets the candidate's private rating.
func (s *Store) Rate(id string, rating int) (candidate.Candidate, error) {
	if rating < MinRating || rating > MaxRating {
		return candidate.Candidate{}, fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidRating, rating, MinRating, MaxRating)
	}

	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return candidate.Candidate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.entries[i].Rating = rating
	out := s.entries[i].Clone()
	s.mu.Unlock()

	s.notify(Event{Type: EventRated, ID: id})
	return out, nil
}

// Subscribe returns a channel of change events and a function that ends the
// subscription. Slow subscribers miss events rather than block writers.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Store) notify(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Debug("Dropping event for slow subscriber", logger.String("type", string(ev.Type)))
		}
	}
}

func (s *Store) reindexLocked(from int) {
	if from == 0 {
		s.index = make(map[string]int, len(s.entries))
	}
	for i := from; i < len(s.entries); i++ {
		s.index[s.entries[i].ID] = i
	}
}
