package instagram

import (
	"regexp"

	"igproxy/pkg/errors"
	"igproxy/pkg/models"
)

// ContentKind is the path segment identifying the kind of content
type ContentKind string

const (
	KindPost ContentKind = "p"
	KindReel ContentKind = "reel"
	KindTV   ContentKind = "tv"
)

// MediaType maps the URL kind to the media type reported to clients
func (k ContentKind) MediaType() models.MediaType {
	switch k {
	case KindReel:
		return models.MediaTypeReel
	case KindTV:
		return models.MediaTypeIGTV
	default:
		return models.MediaTypePost
	}
}

var contentURLPattern = regexp.MustCompile(`^(https?://)?(www\.)?instagram\.com/(p|reel|tv)/([A-Za-z0-9_-]+)/?.*$`)

// ContentURL is a parsed Instagram content URL
type ContentURL struct {
	Kind      ContentKind
	Shortcode string
}

// IsContentURL reports whether s looks like a post, reel or IGTV URL
func IsContentURL(s string) bool {
	return contentURLPattern.MatchString(s)
}

// ParseContentURL extracts the kind and shortcode from s
func ParseContentURL(s string) (*ContentURL, error) {
	m := contentURLPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, errors.New(errors.CodeInvalidInstagramURL, "Invalid Instagram URL")
	}
	return &ContentURL{Kind: ContentKind(m[3]), Shortcode: m[4]}, nil
}

// ValidateURL checks a requested URL. An empty value is URL_REQUIRED and
// anything that is not a content URL is INVALID_INSTAGRAM_URL.
func ValidateURL(s string) error {
	if s == "" {
		return errors.New(errors.CodeURLRequired, "URL is required")
	}
	if !IsContentURL(s) {
		return errors.New(errors.CodeInvalidInstagramURL, "Invalid Instagram URL")
	}
	return nil
}
