package instagram

import (
	"bytes"
	"encoding/json"
	"strconv"

	"igproxy/pkg/errors"
	"igproxy/pkg/models"
)

// Every upstream field is optional and may have the wrong type, so the
// response is decoded into raw messages and interpreted field by field.
type upstreamResponse struct {
	Status json.RawMessage `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type upstreamData struct {
	Type      json.RawMessage `json:"type"`
	Thumbnail json.RawMessage `json:"thumbnail"`
	Medias    json.RawMessage `json:"medias"`
}

type upstreamMedia struct {
	Quality       json.RawMessage `json:"quality"`
	URL           json.RawMessage `json:"url"`
	FormattedSize json.RawMessage `json:"formattedSize"`
}

const (
	defaultQuality = "default"
	defaultSize    = "unknown"
)

// Normalize converts an upstream response body into a MediaResult for
// originalURL. Undecodable bodies are FETCH_FAILED; a falsy status or an
// empty media list is NO_MEDIA_FOUND.
func Normalize(body []byte, originalURL string) (*models.MediaResult, error) {
	var resp upstreamResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(errors.CodeFetchFailed, "Failed to fetch media", err)
	}

	if !truthy(resp.Status) {
		return nil, errors.New(errors.CodeNoMediaFound, "No media found")
	}

	var data upstreamData
	if isObject(resp.Data) {
		_ = json.Unmarshal(resp.Data, &data)
	}

	var medias []json.RawMessage
	if isArray(data.Medias) {
		_ = json.Unmarshal(data.Medias, &medias)
	}
	if len(medias) == 0 {
		return nil, errors.New(errors.CodeNoMediaFound, "No media found")
	}

	options := make([]models.DownloadOption, 0, len(medias))
	for _, raw := range medias {
		var m upstreamMedia
		if isObject(raw) {
			_ = json.Unmarshal(raw, &m)
		}
		options = append(options, models.DownloadOption{
			Quality: stringOr(m.Quality, defaultQuality),
			URL:     stringOr(m.URL, ""),
			Size:    stringOr(m.FormattedSize, defaultSize),
		})
	}

	return &models.MediaResult{
		Type:            models.ParseMediaType(stringOr(data.Type, string(models.MediaTypePost))),
		OriginalURL:     originalURL,
		Thumbnail:       stringOr(data.Thumbnail, ""),
		DownloadOptions: options,
	}, nil
}

// stringOr returns the JSON string in raw, or def when raw is absent, not a
// string, or empty
func stringOr(raw json.RawMessage, def string) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == "" {
		return def
	}
	return s
}

// truthy treats false, 0, "", null, a missing value and the strings
// "false" and "0" as false. Everything else is true.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}

	switch raw[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
		return s != "" && s != "false" && s != "0"
	default:
		n, err := strconv.ParseFloat(string(raw), 64)
		return err == nil && n != 0
	}
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
