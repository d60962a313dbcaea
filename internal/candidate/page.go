package candidate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const articleBaseURL = "https://en.wikipedia.org/wiki/"

// Page references an encyclopedia article by title.
type Page struct {
	Title string `json:"title"`
}

// Slug replaces spaces with underscores and percent-encodes everything
// outside the URL path character set.
func (p Page) Slug() (string, error) {
	if !utf8.ValidString(p.Title) {
		return "", fmt.Errorf("%w: %q is not valid UTF-8", ErrEncoding, p.Title)
	}

	title := strings.ReplaceAll(p.Title, " ", "_")
	var b strings.Builder
	b.Grow(len(title))
	for i := 0; i < len(title); i++ {
		c := title[i]
		if pathAllowed(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String(), nil
}

// ArticleURL returns the canonical article URL.
func (p Page) ArticleURL() (string, error) {
	slug, err := p.Slug()
	if err != nil {
		return "", err
	}
	return articleBaseURL + slug, nil
}

// pathAllowed matches the RFC 3986 path character set: unreserved,
// sub-delims, ':', '@' and '/'.
func pathAllowed(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '.', '_', '~', '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', ':', '@', '/':
		return true
	}
	return false
}

// Summary is the descriptive payload fetched for a page. It is never
// persisted; its fields are copied into a draft.
type Summary struct {
	CanonicalTitle   string
	NormalizedTitle  string
	DisplayTitle     string
	PageID           *int
	Extract          string
	ShortDescription *string
	ImageURL         *string
}
