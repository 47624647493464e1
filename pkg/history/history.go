package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"igproxy/pkg/logger"
	"igproxy/pkg/models"
)

// DefaultMaxEntries is how many results are kept
const DefaultMaxEntries = 5

const fileVersion = 1

// Entry is one remembered result
type Entry struct {
	Result    models.MediaResult `json:"result"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// file is the on-disk layout
type file struct {
	Version   int       `json:"version"`
	Entries   []Entry   `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manager keeps the most recent distinct results in a JSON file
type Manager struct {
	path       string
	maxEntries int
	logger     logger.Logger
	now        func() time.Time
	mu         sync.Mutex
}

// NewManager creates a manager for path. An empty path uses the default
// location in the user's data directory.
func NewManager(path string, log logger.Logger) (*Manager, error) {
	if path == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		path = filepath.Join(dataDir, "history.json")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Manager{
		path:       path,
		maxEntries: DefaultMaxEntries,
		logger:     log,
		now:        time.Now,
	}, nil
}

// Path returns the history file location
func (m *Manager) Path() string {
	return m.path
}

// Load returns the stored entries, most recent first. A missing file is an
// empty history.
func (m *Manager) Load() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *Manager) load() ([]Entry, error) {
	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	var h file
	if err := json.NewDecoder(f).Decode(&h); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return h.Entries, nil
}

// Add records result as the most recent entry. An older entry for the same
// URL is replaced and the list is trimmed to the maximum size.
func (m *Manager) Add(result *models.MediaResult) ([]Entry, error) {
	if result == nil {
		return nil, fmt.Errorf("result must not be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load()
	if err != nil {
		m.logger.WarnWithFields("discarding unreadable history", map[string]interface{}{
			"path":  m.path,
			"error": err.Error(),
		})
		entries = nil
	}

	updated := make([]Entry, 0, m.maxEntries)
	updated = append(updated, Entry{Result: *result, FetchedAt: m.now()})
	for _, e := range entries {
		if len(updated) == m.maxEntries {
			break
		}
		if e.Result.OriginalURL == result.OriginalURL {
			continue
		}
		updated = append(updated, e)
	}

	if err := m.save(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Clear removes the history file
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	m.logger.Debug("history cleared")
	return nil
}

// save writes the history atomically through a temporary file
func (m *Manager) save(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tempPath := m.path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary history file: %w", err)
	}

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(file{Version: fileVersion, Entries: entries, UpdatedAt: m.now()}); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync history file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close history file: %w", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace history file: %w", err)
	}

	m.logger.DebugWithFields("history saved", map[string]interface{}{
		"path":    m.path,
		"entries": len(entries),
	})
	return nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "igproxy"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "igproxy"), nil
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			return filepath.Join(xdgDataHome, "igproxy"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "igproxy"), nil
	}
}
