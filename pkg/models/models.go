package models

import "igproxy/pkg/errors"

// MediaType is the kind of Instagram content a result describes
type MediaType string

const (
	MediaTypePost      MediaType = "post"
	MediaTypeReel      MediaType = "reel"
	MediaTypeIGTV      MediaType = "igtv"
	MediaTypeStory     MediaType = "story"
	MediaTypeHighlight MediaType = "highlight"
)

// ParseMediaType returns the MediaType for s, falling back to post for
// empty or unrecognised values
func ParseMediaType(s string) MediaType {
	switch t := MediaType(s); t {
	case MediaTypePost, MediaTypeReel, MediaTypeIGTV, MediaTypeStory, MediaTypeHighlight:
		return t
	default:
		return MediaTypePost
	}
}

// DownloadOption is a single downloadable rendition of the media
type DownloadOption struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
	Size    string `json:"size"`
}

// MediaResult is the normalised description of an Instagram post
type MediaResult struct {
	Type            MediaType        `json:"type"`
	OriginalURL     string           `json:"originalUrl"`
	Thumbnail       string           `json:"thumbnail"`
	DownloadOptions []DownloadOption `json:"downloadOptions"`
}

// Envelope is the response body of every gateway request
type Envelope struct {
	Success   bool         `json:"success"`
	Data      *MediaResult `json:"data,omitempty"`
	Error     string       `json:"error,omitempty"`
	ErrorCode errors.Code  `json:"errorCode,omitempty"`
}

// Success wraps a result in a successful envelope
func Success(result *MediaResult) Envelope {
	return Envelope{Success: true, Data: result}
}

// Failure builds a failed envelope. An empty message falls back to the code.
func Failure(code errors.Code, message string) Envelope {
	if message == "" {
		message = string(code)
	}
	return Envelope{Success: false, Error: message, ErrorCode: code}
}

// Valid reports whether exactly one of data or error is populated
func (e Envelope) Valid() bool {
	if e.Success {
		return e.Data != nil && e.Error == "" && e.ErrorCode == ""
	}
	return e.Data == nil && e.Error != "" && e.ErrorCode != ""
}
