package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SettingsVersion is the current shape of Settings. Bump it and extend
// migrateSettings when a field is added.
const SettingsVersion = 1

// Editor themes accepted by UpdateSettings.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

const (
	defaultEditorFontSize = 14
	minEditorFontSize     = 8
	maxEditorFontSize     = 48
)

// Settings are per-project editor preferences.
type Settings struct {
	Version         int    `json:"version"`
	AutoSaveEnabled bool   `json:"autoSaveEnabled"`
	Theme           string `json:"theme"`
	EditorFontSize  int    `json:"editorFontSize"`
}

// DefaultSettings returns the settings a brand new project starts with.
func DefaultSettings() Settings {
	return Settings{
		Version:         SettingsVersion,
		AutoSaveEnabled: true,
		Theme:           ThemeDark,
		EditorFontSize:  defaultEditorFontSize,
	}
}

// SettingsPatch carries a partial settings update; nil fields are left alone.
type SettingsPatch struct {
	AutoSaveEnabled *bool   `json:"autoSaveEnabled,omitempty"`
	Theme           *string `json:"theme,omitempty"`
	EditorFontSize  *int    `json:"editorFontSize,omitempty"`
}

// Apply returns s with the patch applied, or a validation error.
func (s Settings) Apply(p SettingsPatch) (Settings, error) {
	if p.AutoSaveEnabled != nil {
		s.AutoSaveEnabled = *p.AutoSaveEnabled
	}
	if p.Theme != nil {
		theme := strings.ToLower(strings.TrimSpace(*p.Theme))
		if theme != ThemeDark && theme != ThemeLight {
			return s, fmt.Errorf("%w: unknown theme %q", ErrValidation, *p.Theme)
		}
		s.Theme = theme
	}
	if p.EditorFontSize != nil {
		size := *p.EditorFontSize
		if size < minEditorFontSize || size > maxEditorFontSize {
			return s, fmt.Errorf("%w: editor font size %d out of range", ErrValidation, size)
		}
		s.EditorFontSize = size
	}
	s.Version = SettingsVersion
	return s, nil
}

// storedSettings is the on-disk form. Every field is optional because older
// records were written as a free-form map without a version key.
type storedSettings struct {
	Version         *int    `json:"version"`
	AutoSaveEnabled *bool   `json:"autoSaveEnabled"`
	Theme           *string `json:"theme"`
	EditorFontSize  *int    `json:"editorFontSize"`
}

// UnmarshalJSON accepts any historical settings document and upgrades it.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw storedSettings
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode settings: %w", err)
		}
	}
	*s = migrateSettings(raw)
	return nil
}

func migrateSettings(raw storedSettings) Settings {
	// v0 -> v1: untyped map, every key optional. Missing keys take defaults.
	out := DefaultSettings()
	if raw.AutoSaveEnabled != nil {
		out.AutoSaveEnabled = *raw.AutoSaveEnabled
	}
	if raw.Theme != nil && *raw.Theme != "" {
		out.Theme = *raw.Theme
	}
	if raw.EditorFontSize != nil && *raw.EditorFontSize > 0 {
		out.EditorFontSize = *raw.EditorFontSize
	}
	out.Version = SettingsVersion
	return out
}
