// Package candidate holds the value types of the directory: candidates,
// their social handles, and references to encyclopedia pages.
package candidate

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrEncoding is returned when a page title cannot be percent-encoded.
	ErrEncoding = errors.New("title cannot be encoded")
	// ErrConfiguration is returned for a platform with no known profile URL.
	ErrConfiguration = errors.New("platform has no profile base URL")
	// ErrUnknownPlatform is returned when decoding a platform name outside the enum.
	ErrUnknownPlatform = errors.New("unknown platform")
)

// Candidate is a votable entity with profile fields and a tally.
type Candidate struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	ShortDescription string   `json:"desc"`
	About            string   `json:"about"`
	SocialHandles    []Handle `json:"social"`
	PictureURL       string   `json:"pict"`
	WikiPage         *Page    `json:"wiki"`
	VoteCount        int      `json:"votes"`
	Rating           int      `json:"rate"`
}

// NewID returns a fresh opaque candidate identifier.
func NewID() string {
	return uuid.NewString()
}

// DisplayHandles returns the social handles followed by a synthesized
// wikipedia handle when the candidate references a page.
func (c Candidate) DisplayHandles() []Handle {
	handles := make([]Handle, 0, len(c.SocialHandles)+1)
	handles = append(handles, c.SocialHandles...)
	if c.WikiPage != nil {
		handles = append(handles, WikiHandle(*c.WikiPage))
	}
	return handles
}

// Clone returns a deep copy so callers cannot alias the handle slice or page.
func (c Candidate) Clone() Candidate {
	out := c
	if c.SocialHandles != nil {
		out.SocialHandles = append([]Handle(nil), c.SocialHandles...)
	}
	if c.WikiPage != nil {
		p := *c.WikiPage
		out.WikiPage = &p
	}
	return out
}
