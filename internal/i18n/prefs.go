package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// PreferenceKey is the fixed key under which the resolved locale is
	// stored.
	PreferenceKey = "preferred-language"

	prefsFileName = "preferences.json"
	appDirName    = "roomchat"
)

// Preferences persists the user's last resolved locale.
type Preferences interface {
	Load() (string, error)
	Save(locale string) error
}

// PreferenceStore keeps preferences in a small JSON object on disk,
// by default in $XDG_STATE_HOME/roomchat/preferences.json.
type PreferenceStore struct {
	dir string
}

// NewPreferenceStore creates a store in dir. The directory is created on
// the first Save. Pass an empty string to use the default XDG state path.
func NewPreferenceStore(dir string) *PreferenceStore {
	if dir == "" {
		dir = DefaultStateDir()
	}
	return &PreferenceStore{dir: dir}
}

// Path returns the full path to the preferences file.
func (s *PreferenceStore) Path() string {
	return filepath.Join(s.dir, prefsFileName)
}

// Load returns the stored locale, or "" if nothing has been stored yet.
func (s *PreferenceStore) Load() (string, error) {
	values, err := s.read()
	if err != nil {
		return "", err
	}
	return values[PreferenceKey], nil
}

// Save stores locale, keeping any other keys in the file. The write goes
// through a temp file and a rename so a crash never leaves a torn file.
func (s *PreferenceStore) Save(locale string) error {
	values, err := s.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking the preference.
		values = make(map[string]string)
	}
	values[PreferenceKey] = locale

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling preferences: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, ".preferences-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		return fmt.Errorf("renaming preferences file: %w", err)
	}
	committed = true
	return nil
}

func (s *PreferenceStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("reading preferences: %w", err)
	}
	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing preferences: %w", err)
	}
	return values, nil
}

// DefaultStateDir returns $XDG_STATE_HOME/roomchat, falling back to
// ~/.local/state/roomchat.
func DefaultStateDir() string {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".local", "state", appDirName)
}
