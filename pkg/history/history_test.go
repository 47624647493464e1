package history

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igproxy/pkg/logger"
	"igproxy/pkg/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "nested", "history.json"), logger.NewNopLogger())
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return m
}

func result(n int) *models.MediaResult {
	return &models.MediaResult{
		Type:            models.MediaTypePost,
		OriginalURL:     fmt.Sprintf("https://www.instagram.com/p/P%d/", n),
		DownloadOptions: []models.DownloadOption{{Quality: "hd", URL: fmt.Sprintf("%d.mp4", n), Size: "1MB"}},
	}
}

func urls(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Result.OriginalURL
	}
	return out
}

func TestLoadMissingFile(t *testing.T) {
	m := newTestManager(t)
	entries, err := m.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAddMostRecentFirst(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Add(result(1))
	require.NoError(t, err)
	entries, err := m.Add(result(2))
	require.NoError(t, err)

	assert.Equal(t, []string{result(2).OriginalURL, result(1).OriginalURL}, urls(entries))

	loaded, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)
}

func TestAddDeduplicatesByURL(t *testing.T) {
	m := newTestManager(t)

	for _, n := range []int{1, 2, 3} {
		_, err := m.Add(result(n))
		require.NoError(t, err)
	}
	entries, err := m.Add(result(1))
	require.NoError(t, err)

	assert.Equal(t, []string{
		result(1).OriginalURL,
		result(3).OriginalURL,
		result(2).OriginalURL,
	}, urls(entries))
}

func TestAddKeepsAtMostFive(t *testing.T) {
	m := newTestManager(t)

	var entries []Entry
	var err error
	for n := 1; n <= 8; n++ {
		entries, err = m.Add(result(n))
		require.NoError(t, err)
	}

	require.Len(t, entries, DefaultMaxEntries)
	assert.Equal(t, result(8).OriginalURL, entries[0].Result.OriginalURL)
	assert.Equal(t, result(4).OriginalURL, entries[4].Result.OriginalURL)
}

func TestAddRecoversFromCorruptFile(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(m.Path()), 0755))
	require.NoError(t, os.WriteFile(m.Path(), []byte("{not json"), 0644))

	_, err := m.Load()
	assert.Error(t, err)

	entries, err := m.Add(result(1))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestClear(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Add(result(1))
	require.NoError(t, err)

	require.NoError(t, m.Clear())
	require.NoError(t, m.Clear(), "clearing twice is not an error")

	entries, err := m.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = os.Stat(m.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestAddNil(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Add(nil)
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	m, err := NewManager("", nil)
	require.NoError(t, err)
	assert.Equal(t, "history.json", filepath.Base(m.Path()))
}
