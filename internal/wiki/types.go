package wiki

import (
	"errors"
	"fmt"

	"github.com/aryannaik/pick/internal/candidate"
)

// searchResponse is the raw allpages envelope. Pointers distinguish a
// missing key from an empty value.
type searchResponse struct {
	Query *struct {
		AllPages *[]apiPage `json:"allpages"`
	} `json:"query"`
}

type apiPage struct {
	Title string `json:"title"`
}

// summaryResponse is the raw REST summary payload.
type summaryResponse struct {
	Titles        *apiTitles `json:"titles"`
	PageID        *int       `json:"pageid"`
	Extract       *string    `json:"extract"`
	OriginalImage *apiImage  `json:"originalimage"`
	Description   *string    `json:"description"`
}

type apiTitles struct {
	Canonical  string `json:"canonical"`
	Normalized string `json:"normalized"`
	Display    string `json:"display"`
}

type apiImage struct {
	Source string  `json:"source"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r searchResponse) pages() ([]candidate.Page, error) {
	if r.Query == nil || r.Query.AllPages == nil {
		return nil, errors.New("missing query.allpages")
	}
	raw := *r.Query.AllPages
	pages := make([]candidate.Page, 0, len(raw))
	for _, p := range raw {
		pages = append(pages, candidate.Page{Title: p.Title})
	}
	return pages, nil
}

func (r summaryResponse) summary() (candidate.Summary, error) {
	if r.Titles == nil || r.Titles.Normalized == "" {
		return candidate.Summary{}, errors.New("missing titles.normalized")
	}
	if r.Extract == nil {
		return candidate.Summary{}, errors.New("missing extract")
	}

	s := candidate.Summary{
		CanonicalTitle:   r.Titles.Canonical,
		NormalizedTitle:  r.Titles.Normalized,
		DisplayTitle:     r.Titles.Display,
		PageID:           r.PageID,
		Extract:          *r.Extract,
		ShortDescription: r.Description,
	}
	if r.OriginalImage != nil {
		if !candidate.IsAbsoluteURL(r.OriginalImage.Source) {
			return candidate.Summary{}, fmt.Errorf("originalimage.source %q is not an absolute URL", r.OriginalImage.Source)
		}
		src := r.OriginalImage.Source
		s.ImageURL = &src
	}
	return s, nil
}
