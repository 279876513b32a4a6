package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var ErrNoConfig = errors.New("no config selected")

// DefaultLabel names the profile created by `config init`. It cannot be
// removed and is the fallback when the active profile is deleted.
const DefaultLabel = "Default"

const profileExt = ".yaml"

// Store keeps named YAML profiles under Root/configs and the active label
// in Root/current_config.
type Store struct {
	Root string
}

// Profile is one stored config.
type Profile struct {
	Label  string
	Path   string
	Active bool
}

// DefaultStore is the per-user store, under %APPDATA% on Windows and the XDG
// config home elsewhere.
func DefaultStore() Store {
	return Store{Root: userRoot()}
}

func userRoot() string {
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, "cbzmaker")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cbzmaker")
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cbzmaker")
}

func (s Store) dir() string {
	return filepath.Join(s.Root, "configs")
}

func (s Store) activeFile() string {
	return filepath.Join(s.Root, "current_config")
}

// PathFor is where the profile label lives, whether or not it exists.
func (s Store) PathFor(label string) string {
	return filepath.Join(s.dir(), label+profileExt)
}

func checkLabel(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return errors.New("label cannot be empty")
	}
	if strings.ContainsAny(label, `/\`) || label == "." || label == ".." {
		return fmt.Errorf("invalid label %q", label)
	}
	return nil
}

// Path returns the path of an existing profile.
func (s Store) Path(label string) (string, error) {
	if err := checkLabel(label); err != nil {
		return "", err
	}

	path := s.PathFor(label)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("config %q does not exist", label)
	}
	return path, nil
}

// ActiveLabel returns ErrNoConfig until a profile has been selected.
func (s Store) ActiveLabel() (string, error) {
	b, err := os.ReadFile(s.activeFile())
	if os.IsNotExist(err) {
		return "", ErrNoConfig
	}
	if err != nil {
		return "", err
	}

	label := strings.TrimSpace(string(b))
	if label == "" {
		return "", ErrNoConfig
	}
	return label, nil
}

// Active returns the label and path of the selected profile.
func (s Store) Active() (label, path string, err error) {
	label, err = s.ActiveLabel()
	if err != nil {
		return "", "", err
	}
	return label, s.PathFor(label), nil
}

// Load parses the profile label.
func (s Store) Load(label string) (*Config, error) {
	path, err := s.Path(label)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

func (s Store) List() ([]Profile, error) {
	entries, err := os.ReadDir(s.dir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	active, _ := s.ActiveLabel()

	var out []Profile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != profileExt {
			continue
		}

		label := strings.TrimSuffix(name, profileExt)
		out = append(out, Profile{
			Label:  label,
			Path:   filepath.Join(s.dir(), name),
			Active: label == active,
		})
	}

	slices.SortFunc(out, func(a, b Profile) int { return strings.Compare(a.Label, b.Label) })
	return out, nil
}

func (s Store) Switch(label string) error {
	if _, err := s.Path(label); err != nil {
		return err
	}
	return s.setActive(label)
}

func (s Store) setActive(label string) error {
	if err := os.MkdirAll(s.Root, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.activeFile(), []byte(label), 0644)
}

// Create stores cfg as a new profile and returns its path.
func (s Store) Create(label string, cfg *Config) (string, error) {
	if err := checkLabel(label); err != nil {
		return "", err
	}
	label = strings.TrimSpace(label)

	path := s.PathFor(label)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config %q already exists", label)
	}
	if err := os.MkdirAll(s.dir(), 0755); err != nil {
		return "", err
	}

	if err := SaveYAML(cfg, path); err != nil {
		return "", err
	}
	return path, nil
}

// Import stores a YAML or TOML file as the YAML profile label.
func (s Store) Import(label, src string) (string, error) {
	cfg, err := LoadFile(src)
	if err != nil {
		return "", err
	}
	return s.Create(label, cfg)
}

// Init creates the Default profile when missing and makes it active. created
// is false when it already existed.
func (s Store) Init() (path string, created bool, err error) {
	path = s.PathFor(DefaultLabel)

	if _, err := os.Stat(path); err != nil {
		if _, err := s.Create(DefaultLabel, DefaultConfig()); err != nil {
			return "", false, err
		}
		created = true
	}

	return path, created, s.setActive(DefaultLabel)
}

// Rename moves a profile, carrying the active mark along.
func (s Store) Rename(oldLabel, newLabel string) error {
	oldPath, err := s.Path(oldLabel)
	if err != nil {
		return err
	}
	if err := checkLabel(newLabel); err != nil {
		return err
	}
	if _, err := s.Path(newLabel); err == nil {
		return fmt.Errorf("config %q already exists", newLabel)
	}

	if err := os.Rename(oldPath, s.PathFor(newLabel)); err != nil {
		return err
	}

	if active, _ := s.ActiveLabel(); active == oldLabel {
		return s.setActive(newLabel)
	}
	return nil
}

// Remove deletes a profile. Removing the active one falls back to Default,
// which is reported by the returned bool.
func (s Store) Remove(label string) (bool, error) {
	if label == DefaultLabel {
		return false, fmt.Errorf("cannot remove the %s config", DefaultLabel)
	}

	path, err := s.Path(label)
	if err != nil {
		return false, err
	}

	switched := false
	if active, _ := s.ActiveLabel(); active == label {
		if err := s.Switch(DefaultLabel); err != nil {
			return false, fmt.Errorf("failed switching to %s: %w", DefaultLabel, err)
		}
		switched = true
	}

	return switched, os.Remove(path)
}
