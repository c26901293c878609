package kubeconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Settings is the persisted source list and merge-mode flag, stored as a
// small JSON file under the user's app-data directory (§6, "Persisted
// state"). The default source is always present and cannot be removed.
type Settings struct {
	mu        sync.Mutex
	path      string
	Sources   []Source `json:"sources"`
	MergeMode bool     `json:"merge_mode"`
}

// SettingsPath returns the on-disk location of the settings file,
// $XDG_CONFIG_HOME/clustercore/settings.json or the OS equivalent.
func SettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "clustercore", "settings.json"), nil
}

// LoadSettings reads the settings file, creating it with just the default
// source if it doesn't exist yet.
func LoadSettings(path string) (*Settings, error) {
	s := &Settings{path: path}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.Sources = []Source{{Path: DefaultKubeconfigPath(), Kind: SourceFile}}
		s.MergeMode = true
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	s.ensureDefault()
	return s, nil
}

func (s *Settings) ensureDefault() {
	def := DefaultKubeconfigPath()
	if def == "" {
		return
	}
	for _, src := range s.Sources {
		if src.Path == def {
			return
		}
	}
	s.Sources = append([]Source{{Path: def, Kind: SourceFile}}, s.Sources...)
}

func (s *Settings) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o644)
}

// AddSource appends src if it is not already present.
func (s *Settings) AddSource(src Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.Sources {
		if existing.Path == src.Path {
			return nil
		}
	}
	s.Sources = append(s.Sources, src)
	return s.save()
}

// RemoveSource removes the source at path. Removing the default source is
// rejected.
func (s *Settings) RemoveSource(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path == DefaultKubeconfigPath() {
		return fmt.Errorf("cannot remove the default kubeconfig source")
	}
	out := s.Sources[:0:0]
	for _, src := range s.Sources {
		if src.Path != path {
			out = append(out, src)
		}
	}
	s.Sources = out
	return s.save()
}

// ListSources returns a copy of the configured sources.
func (s *Settings) ListSources() []Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Source, len(s.Sources))
	copy(out, s.Sources)
	return out
}

// IsMergeMode reports the current merge-mode flag.
func (s *Settings) IsMergeMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.MergeMode
}

// SetMergeMode updates and persists the merge-mode flag.
func (s *Settings) SetMergeMode(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MergeMode = on
	return s.save()
}
