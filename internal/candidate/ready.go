package candidate

import "net/url"

// FieldRule checks that one required field of a Candidate is populated.
type FieldRule struct {
	Field   string
	Present func(c Candidate) bool
}

// RequiredFields is the submit-readiness schema. It must name every text and
// collection field of Candidate that is not listed in ExemptFields; the
// package tests compare both lists against the struct definition.
var RequiredFields = []FieldRule{
	{Field: "Name", Present: func(c Candidate) bool { return c.Name != "" }},
	{Field: "ShortDescription", Present: func(c Candidate) bool { return c.ShortDescription != "" }},
	{Field: "About", Present: func(c Candidate) bool { return c.About != "" }},
	{Field: "SocialHandles", Present: func(c Candidate) bool { return len(UsableHandles(c.SocialHandles)) > 0 }},
	{Field: "PictureURL", Present: func(c Candidate) bool { return IsAbsoluteURL(c.PictureURL) }},
}

// ExemptFields are text or collection fields that readiness ignores.
// ID is assigned on submit.
var ExemptFields = []string{"ID"}

// Missing returns the names of required fields that are not populated, in
// schema order.
func Missing(c Candidate) []string {
	var missing []string
	for _, rule := range RequiredFields {
		if !rule.Present(c) {
			missing = append(missing, rule.Field)
		}
	}
	return missing
}

// Ready reports whether c can be submitted to the directory.
func Ready(c Candidate) bool {
	return len(Missing(c)) == 0
}

// UsableHandles drops handles with an empty username, keeping order.
func UsableHandles(handles []Handle) []Handle {
	out := make([]Handle, 0, len(handles))
	for _, h := range handles {
		if h.Username != "" {
			out = append(out, h)
		}
	}
	return out
}

// IsAbsoluteURL reports whether raw parses as an absolute URL with a host.
func IsAbsoluteURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}
