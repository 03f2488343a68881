package searchindex

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAlgoliaClient_RequiresCredentials(t *testing.T) {
	_, err := NewAlgoliaClient(AlgoliaConfig{AppID: "APP"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err := NewAlgoliaClient(AlgoliaConfig{AppID: "APP", AdminAPIKey: "key", RequestsPerSecond: 5})
	require.NoError(t, err)
	assert.Equal(t, "algolia", c.Name())
	assert.Equal(t, DefaultRequiredACLs, c.cfg.RequiredACLs)
}

func TestMissingACLs(t *testing.T) {
	missing := MissingACLs([]string{"addObject", "deleteObject", "search"}, DefaultRequiredACLs)
	assert.Equal(t, []string{"listIndexes", "deleteIndex", "settings", "editSettings"}, missing)
	assert.Empty(t, MissingACLs(DefaultRequiredACLs, DefaultRequiredACLs))
}

func TestToAlgoliaSettings(t *testing.T) {
	s, err := toAlgoliaSettings(DefaultSettings())
	require.NoError(t, err)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"attributeForDistinct":"distinctKey"`)
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadSettings(dir, "docs")
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs-settings.json"), []byte(`{"hitsPerPage": 5}`), 0644))
	s, err = LoadSettings(dir, "docs")
	require.NoError(t, err)
	assert.EqualValues(t, 5, s["hitsPerPage"])

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-settings.json"), []byte(`{`), 0644))
	_, err = LoadSettings(dir, "bad")
	assert.Error(t, err)
}
