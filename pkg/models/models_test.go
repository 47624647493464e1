package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igproxy/pkg/errors"
)

func TestParseMediaType(t *testing.T) {
	assert.Equal(t, MediaTypeReel, ParseMediaType("reel"))
	assert.Equal(t, MediaTypeIGTV, ParseMediaType("igtv"))
	assert.Equal(t, MediaTypeHighlight, ParseMediaType("highlight"))
	assert.Equal(t, MediaTypePost, ParseMediaType(""))
	assert.Equal(t, MediaTypePost, ParseMediaType("carousel"))
}

func TestSuccessEnvelopeJSON(t *testing.T) {
	env := Success(&MediaResult{
		Type:        MediaTypePost,
		OriginalURL: "https://www.instagram.com/p/ABC123/",
		Thumbnail:   "thumb.jpg",
		DownloadOptions: []DownloadOption{
			{Quality: "hd", URL: "x.mp4", Size: "2MB"},
		},
	})
	require.True(t, env.Valid())

	body, err := json.Marshal(env)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &raw))

	assert.Equal(t, true, raw["success"])
	assert.NotContains(t, raw, "error")
	assert.NotContains(t, raw, "errorCode")

	data := raw["data"].(map[string]interface{})
	assert.Equal(t, "post", data["type"])
	assert.Equal(t, "https://www.instagram.com/p/ABC123/", data["originalUrl"])
	options := data["downloadOptions"].([]interface{})
	require.Len(t, options, 1)
	assert.Equal(t, map[string]interface{}{"quality": "hd", "url": "x.mp4", "size": "2MB"}, options[0])
}

func TestFailureEnvelopeJSON(t *testing.T) {
	env := Failure(errors.CodeRateLimited, "Too many requests")
	require.True(t, env.Valid())

	body, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"Too many requests","errorCode":"RATE_LIMITED"}`, string(body))
}

func TestFailureDefaultsMessage(t *testing.T) {
	env := Failure(errors.CodeInternal, "")
	assert.Equal(t, "INTERNAL_ERROR", env.Error)
	assert.True(t, env.Valid())
}

func TestEnvelopeValid(t *testing.T) {
	assert.False(t, Envelope{Success: true}.Valid())
	assert.False(t, Envelope{Success: false}.Valid())
	assert.False(t, Envelope{Success: false, Data: &MediaResult{}, Error: "x", ErrorCode: "X"}.Valid())
}
