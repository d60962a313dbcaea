package candidate

import (
	"fmt"
	"net/url"
)

// Platform is an external site a candidate has a presence on.
type Platform string

const (
	Twitter   Platform = "twitter"
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
	Wikipedia Platform = "wikipedia"
)

// Platforms lists every platform in display order.
var Platforms = []Platform{Twitter, Instagram, Facebook, Wikipedia}

var profileBase = map[Platform]string{
	Twitter:   "https://x.com",
	Instagram: "https://instagram.com",
	Facebook:  "https://facebook.com",
}

// ParsePlatform converts a platform name into a Platform.
func ParsePlatform(s string) (Platform, error) {
	for _, p := range Platforms {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
}

// UnmarshalText rejects platform names outside the enum.
func (p *Platform) UnmarshalText(text []byte) error {
	parsed, err := ParsePlatform(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Editable reports whether users may pick the platform for a handle.
// Wikipedia handles are only ever synthesized from a Page.
func (p Platform) Editable() bool {
	_, ok := profileBase[p]
	return ok
}

// Handle references a candidate's profile on a platform.
type Handle struct {
	Platform Platform `json:"platform"`
	Username string   `json:"username"`
}

// WikiHandle synthesizes a wikipedia handle for page.
func WikiHandle(page Page) Handle {
	return Handle{Platform: Wikipedia, Username: page.Title}
}

// ProfileURL returns the canonical profile URL for the handle.
func (h Handle) ProfileURL() (string, error) {
	if h.Platform == Wikipedia {
		return Page{Title: h.Username}.ArticleURL()
	}

	base, ok := profileBase[h.Platform]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrConfiguration, h.Platform)
	}
	u, err := url.JoinPath(base, h.Username)
	if err != nil {
		return "", fmt.Errorf("join profile url: %w", err)
	}
	return u, nil
}

// Display returns the label shown for the handle.
func (h Handle) Display() string {
	switch h.Platform {
	case Twitter, Instagram:
		return "@" + h.Username
	default:
		return h.Username
	}
}
