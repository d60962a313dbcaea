package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aryannaik/pick/internal/candidate"
)

// snapshot is the on-disk document: {"candidates": [...], "pick": id|null}.
type snapshot struct {
	Candidates []candidate.Candidate `json:"candidates"`
	Pick       *string               `json:"pick"`
}

func encodeSnapshot(entries []candidate.Candidate, pick string) ([]byte, error) {
	snap := snapshot{Candidates: entries}
	if snap.Candidates == nil {
		snap.Candidates = []candidate.Candidate{}
	}
	if pick != "" {
		snap.Pick = &pick
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal directory: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeSnapshot parses and validates a snapshot. Entries without an id get a
// fresh one. A pick that names no entry is returned as dangling so the caller
// can log it.
// decoded is a validated snapshot. Dangling reports a pick that named no
// candidate; Clamped lists ids whose rating was pulled into range.
type decoded struct {
	Entries  []candidate.Candidate
	Pick     string
	Dangling bool
	Clamped  []string
}

func decodeSnapshot(data []byte) (decoded, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return decoded{}, err
	}
	if snap.Candidates == nil {
		return decoded{}, errors.New("missing candidates")
	}

	var out decoded
	seen := make(map[string]bool, len(snap.Candidates))
	for i := range snap.Candidates {
		c := &snap.Candidates[i]
		if c.ID == "" {
			c.ID = candidate.NewID()
		}
		if seen[c.ID] {
			return decoded{}, fmt.Errorf("duplicate candidate id %q", c.ID)
		}
		seen[c.ID] = true
		if c.VoteCount < 0 {
			return decoded{}, fmt.Errorf("candidate %q has negative votes", c.ID)
		}
		if r := clampRating(c.Rating); r != c.Rating {
			c.Rating = r
			out.Clamped = append(out.Clamped, c.ID)
		}
	}

	if snap.Pick != nil && *snap.Pick != "" {
		if seen[*snap.Pick] {
			out.Pick = *snap.Pick
		} else {
			out.Dangling = true
		}
	}
	out.Entries = snap.Candidates
	return out, nil
}

func clampRating(r int) int {
	switch {
	case r < MinRating:
		return MinRating
	case r > MaxRating:
		return MaxRating
	}
	return r
}

// writeFileAtomic replaces path with data through a synced temporary file so
// a crash never leaves a truncated snapshot.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temporary snapshot: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temporary snapshot: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temporary snapshot: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temporary snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
