package searchindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SettingsFile returns the settings file path for index inside dir: <dir>/<index>-settings.json.
func SettingsFile(dir, index string) string {
	return filepath.Join(dir, index+"-settings.json")
}

// LoadSettings reads <dir>/<index>-settings.json. When dir is empty or the file does not
// exist, DefaultSettings are returned.
func LoadSettings(dir, index string) (Settings, error) {
	if dir == "" {
		return DefaultSettings(), nil
	}
	data, err := os.ReadFile(SettingsFile(dir, index))
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", SettingsFile(dir, index), err)
	}
	return s, nil
}
