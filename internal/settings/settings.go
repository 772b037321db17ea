// Package settings holds player preferences: movement key bindings and
// display toggles. Settings are stored as YAML, in a file or in the savegame.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/empires4x/internal/world"
)

// SchemaVersion is bumped whenever a stored field changes meaning.
const SchemaVersion = 1

// Movement key modes.
const (
	KeysDefault = "default" // u i o / j k l
	KeysQWE     = "qwe"     // q w e / a s d
	KeysCustom  = "custom"
)

// MovementKeys binds one letter to each hex direction.
type MovementKeys struct {
	UpLeft    string `yaml:"up_left" json:"upLeft"`
	Up        string `yaml:"up" json:"up"`
	UpRight   string `yaml:"up_right" json:"upRight"`
	DownLeft  string `yaml:"down_left" json:"downLeft"`
	Down      string `yaml:"down" json:"down"`
	DownRight string `yaml:"down_right" json:"downRight"`
}

var (
	defaultKeys = MovementKeys{UpLeft: "U", Up: "I", UpRight: "O", DownLeft: "J", Down: "K", DownRight: "L"}
	qweKeys     = MovementKeys{UpLeft: "Q", Up: "W", UpRight: "E", DownLeft: "A", Down: "S", DownRight: "D"}
)

func (k MovementKeys) byDirection() [6]struct {
	key string
	dir world.Direction
} {
	return [6]struct {
		key string
		dir world.Direction
	}{
		{k.UpLeft, world.DirUpLeft},
		{k.Up, world.DirUp},
		{k.UpRight, world.DirUpRight},
		{k.DownLeft, world.DirDownLeft},
		{k.Down, world.DirDown},
		{k.DownRight, world.DirDownRight},
	}
}

type Settings struct {
	Version              int          `yaml:"version" json:"version"`
	MovementKeys         string       `yaml:"movement_keys" json:"movementKeys"`
	CustomMovementKeys   MovementKeys `yaml:"custom_movement_keys" json:"customMovementKeys"`
	DragThreshold        float64      `yaml:"drag_threshold" json:"dragThreshold"`
	MasterVolume         float64      `yaml:"master_volume" json:"masterVolume"`
	MusicVolume          float64      `yaml:"music_volume" json:"musicVolume"`
	SFXVolume            float64      `yaml:"sfx_volume" json:"sfxVolume"`
	ShowGrid             bool         `yaml:"show_grid" json:"showGrid"`
	ShowTerritoryBorders bool         `yaml:"show_territory_borders" json:"showTerritoryBorders"`
	AnimationSpeed       float64      `yaml:"animation_speed" json:"animationSpeed"`
	HighContrast         bool         `yaml:"high_contrast" json:"highContrast"`
	ReducedMotion        bool         `yaml:"reduced_motion" json:"reducedMotion"`
	ScreenReaderMode     bool         `yaml:"screen_reader_mode" json:"screenReaderMode"`
}

// Default returns a fresh copy of the default settings.
func Default() *Settings {
	return &Settings{
		Version:              SchemaVersion,
		MovementKeys:         KeysDefault,
		CustomMovementKeys:   defaultKeys,
		DragThreshold:        4,
		MasterVolume:         0.7,
		MusicVolume:          0.5,
		SFXVolume:            0.8,
		ShowGrid:             true,
		ShowTerritoryBorders: true,
		AnimationSpeed:       1.0,
	}
}

// Load reads a settings file. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes YAML over the defaults, migrates older schema versions, and validates.
func Parse(raw []byte) (*Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("settings yaml: %w", err)
	}
	if s.Version != SchemaVersion {
		// Older files only lack fields; the defaults already fill them in.
		s.Version = SchemaVersion
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Marshal encodes the settings as YAML.
func (s *Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Save writes the settings to path.
func (s *Settings) Save(path string) error {
	raw, err := s.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// Validate applies the same range checks as Set.
func (s *Settings) Validate() error {
	var errs []error
	switch s.MovementKeys {
	case KeysDefault, KeysQWE, KeysCustom:
	default:
		errs = append(errs, fmt.Errorf("movement_keys: unknown mode %q", s.MovementKeys))
	}
	if s.MovementKeys == KeysCustom {
		if err := validateKeys(s.CustomMovementKeys); err != nil {
			errs = append(errs, err)
		}
	}
	if s.DragThreshold < 1 || s.DragThreshold > 50 {
		errs = append(errs, fmt.Errorf("drag_threshold: %v out of range [1,50]", s.DragThreshold))
	}
	for name, v := range map[string]float64{"master_volume": s.MasterVolume, "music_volume": s.MusicVolume, "sfx_volume": s.SFXVolume} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s: %v out of range [0,1]", name, v))
		}
	}
	if s.AnimationSpeed < 0.1 || s.AnimationSpeed > 3.0 {
		errs = append(errs, fmt.Errorf("animation_speed: %v out of range [0.1,3]", s.AnimationSpeed))
	}
	return errors.Join(errs...)
}

func validateKeys(k MovementKeys) error {
	seen := make(map[string]bool)
	for _, b := range k.byDirection() {
		key := strings.ToUpper(b.key)
		if len(key) != 1 || key[0] < 'A' || key[0] > 'Z' {
			return fmt.Errorf("custom_movement_keys: %q is not a single letter", b.key)
		}
		if seen[key] {
			return fmt.Errorf("custom_movement_keys: %q bound twice", key)
		}
		seen[key] = true
	}
	return nil
}

// ActiveKeys returns the bindings for the selected mode.
func (s *Settings) ActiveKeys() MovementKeys {
	switch s.MovementKeys {
	case KeysQWE:
		return qweKeys
	case KeysCustom:
		return s.CustomMovementKeys
	default:
		return defaultKeys
	}
}

// Direction maps a pressed key to a hex direction, ignoring case.
func (s *Settings) Direction(key string) (world.Direction, bool) {
	key = strings.ToUpper(key)
	for _, b := range s.ActiveKeys().byDirection() {
		if strings.ToUpper(b.key) == key {
			return b.dir, true
		}
	}
	return 0, false
}

// Set assigns one setting by its YAML name, parsing value from text.
// Invalid values leave the settings unchanged.
func (s *Settings) Set(name, value string) error {
	next := *s
	var err error
	switch name {
	case "movement_keys":
		next.MovementKeys = value
	case "drag_threshold":
		next.DragThreshold, err = strconv.ParseFloat(value, 64)
	case "master_volume":
		next.MasterVolume, err = strconv.ParseFloat(value, 64)
	case "music_volume":
		next.MusicVolume, err = strconv.ParseFloat(value, 64)
	case "sfx_volume":
		next.SFXVolume, err = strconv.ParseFloat(value, 64)
	case "animation_speed":
		next.AnimationSpeed, err = strconv.ParseFloat(value, 64)
	case "show_grid":
		next.ShowGrid, err = strconv.ParseBool(value)
	case "show_territory_borders":
		next.ShowTerritoryBorders, err = strconv.ParseBool(value)
	case "high_contrast":
		next.HighContrast, err = strconv.ParseBool(value)
	case "reduced_motion":
		next.ReducedMotion, err = strconv.ParseBool(value)
	case "screen_reader_mode":
		next.ScreenReaderMode, err = strconv.ParseBool(value)
	default:
		if dir, ok := strings.CutPrefix(name, "custom_movement_keys."); ok {
			err = next.CustomMovementKeys.set(dir, value)
		} else {
			return fmt.Errorf("unknown setting %q", name)
		}
	}
	if err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*s = next
	return nil
}

// Reset restores the defaults.
func (s *Settings) Reset() {
	*s = *Default()
}

func (k *MovementKeys) set(dir, value string) error {
	value = strings.ToUpper(value)
	switch dir {
	case "up_left":
		k.UpLeft = value
	case "up":
		k.Up = value
	case "up_right":
		k.UpRight = value
	case "down_left":
		k.DownLeft = value
	case "down":
		k.Down = value
	case "down_right":
		k.DownRight = value
	default:
		return fmt.Errorf("unknown direction %q", dir)
	}
	return nil
}
