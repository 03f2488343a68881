package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/docsync/internal/config"
	"github.com/hyperjump/docsync/internal/importer"
	"github.com/hyperjump/docsync/internal/indexer"
	"github.com/hyperjump/docsync/internal/models"
	"github.com/hyperjump/docsync/internal/runlock"
	"github.com/hyperjump/docsync/internal/searchindex"
	"github.com/hyperjump/docsync/internal/storage"
)

type cliEnv struct {
	dir        string
	configPath string
}

func newCLIEnv(t *testing.T, extra string) *cliEnv {
	t.Helper()
	for _, k := range []string{config.EnvAppID, config.EnvAdminAPIKey, config.EnvSearchAPIKey, config.EnvIndexName, config.EnvIndexPrefix} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	content := `
log:
  level: error
storage:
  database_path: ./data/documents.db
  bleve_index_path: ./indices
index:
  provider: local
  name: docs
` + extra
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return &cliEnv{dir: dir, configPath: path}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *cliEnv) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, "export", rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (e *cliEnv) writeExport(t *testing.T) {
	t.Helper()
	e.write(t, "posts/hello.md", "---\nid: 1\ntype: post\ntitle: Hello\n---\n## One\n\nfirst\n\n## Two\n\nsecond\n")
	e.write(t, "posts/bye.md", "---\nid: 2\ntype: post\ntitle: Bye\nauthor: ann\n---\nso long\n")
	e.write(t, "about.html", "---\nid: 3\ntype: page\ntitle: About\n---\n<p>about us</p>\n")
}

// count opens the local index after a command has closed it.
func (e *cliEnv) count(t *testing.T, index, filter string) int {
	t.Helper()
	c, err := searchindex.NewBleveClient(filepath.Join(e.dir, "indices"))
	require.NoError(t, err)
	defer c.Close()
	ids, err := c.ObjectIDs(context.Background(), index, filter)
	require.NoError(t, err)
	return len(ids)
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestVersionCmd(t *testing.T) {
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "docsync version "+version)

	buf.Reset()
	cmd = newVersionCmd()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--short"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, version, strings.TrimSpace(buf.String()))
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		prefix string
	}{
		{"nil", nil, ExitOK, ""},
		{"failure", errors.New("boom"), ExitFailure, "error: boom"},
		{"not connected", fmt.Errorf("%w: %w", indexer.ErrNotConnected, searchindex.ErrNotConfigured), ExitNotConnected, "warning: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			assert.Equal(t, tt.code, reportError(buf, tt.err))
			assert.True(t, strings.HasPrefix(buf.String(), tt.prefix), buf.String())
		})
	}
}

func TestImportStatusAndReindex(t *testing.T) {
	env := newCLIEnv(t, "")
	env.writeExport(t)

	out, err := env.run(t, "import", filepath.Join(env.dir, "export"), "--output", "json")
	require.NoError(t, err)
	sum := decode[importer.Summary](t, out)
	assert.Equal(t, 3, sum.Files)
	assert.Equal(t, 3, sum.Imported)
	assert.Equal(t, 4, env.count(t, "docs", ""))

	out, err = env.run(t, "import", filepath.Join(env.dir, "export"), "--output", "json")
	require.NoError(t, err)
	assert.Equal(t, 3, decode[importer.Summary](t, out).Unchanged)

	out, err = env.run(t, "status", "--check", "--output", "json")
	require.NoError(t, err)
	var status struct {
		Index           string           `json:"index"`
		Documents       int64            `json:"documents"`
		PublishedByType map[string]int64 `json:"published_by_type"`
		Connection      struct {
			Provider  string `json:"provider"`
			Connected bool   `json:"connected"`
		} `json:"connection"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "docs", status.Index)
	assert.Equal(t, int64(3), status.Documents)
	assert.Equal(t, map[string]int64{"post": 2, "page": 1}, status.PublishedByType)
	assert.Equal(t, "local", status.Connection.Provider)
	assert.True(t, status.Connection.Connected)

	out, err = env.run(t, "reindex", "--clear", "--page-size", "2", "--output", "json")
	require.NoError(t, err)
	report := decode[indexer.Report](t, out)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Indexed)
	assert.Equal(t, 4, report.Records)
	assert.Equal(t, 2, report.Pages)
	assert.True(t, report.Cleared)
	assert.Equal(t, 4, env.count(t, "docs", ""))

	out, err = env.run(t, "reindex", "--types", "page", "--index", "pages")
	require.NoError(t, err)
	assert.Contains(t, out, "pages")
	assert.Equal(t, 1, env.count(t, "pages", ""))
}

func TestSyncAndDelete(t *testing.T) {
	env := newCLIEnv(t, "")
	env.writeExport(t)
	_, err := env.run(t, "import", filepath.Join(env.dir, "export"))
	require.NoError(t, err)

	out, err := env.run(t, "sync", "1", "--output", "json")
	require.NoError(t, err)
	outcome := decode[indexer.Outcome](t, out)
	assert.Equal(t, indexer.StateReplaced, outcome.State)
	assert.Equal(t, "post#1", outcome.DistinctKey)
	assert.Equal(t, 2, outcome.Records)

	out, err = env.run(t, "sync", "missing")
	require.NoError(t, err)
	assert.Contains(t, out, "document not found")

	_, err = env.run(t, "delete", "1", "--keep-document")
	require.NoError(t, err)
	assert.Zero(t, env.count(t, "docs", searchindex.CreateFilter(models.AttrDistinctKey, "post#1")))

	_, err = env.run(t, "delete", "2")
	require.NoError(t, err)
	store, err := storage.NewSQLiteStorage(filepath.Join(env.dir, "data", "documents.db"))
	require.NoError(t, err)
	defer store.Close()
	_, err = store.GetDocument(context.Background(), "1")
	assert.NoError(t, err)
	_, err = store.GetDocument(context.Background(), "2")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = env.run(t, "delete", "2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClear(t *testing.T) {
	env := newCLIEnv(t, "")
	env.writeExport(t)
	_, err := env.run(t, "import", filepath.Join(env.dir, "export"))
	require.NoError(t, err)

	out, err := env.run(t, "clear", "--where", "type=page")
	require.NoError(t, err)
	assert.Contains(t, out, `type:"page"`)
	assert.Equal(t, 3, env.count(t, "docs", ""))

	out, err = env.run(t, "clear")
	require.NoError(t, err)
	assert.Equal(t, "cleared docs\n", out)
	assert.Zero(t, env.count(t, "docs", ""))
}

func TestPushConfig(t *testing.T) {
	env := newCLIEnv(t, "")
	out, err := env.run(t, "push-config")
	require.NoError(t, err)
	assert.Equal(t, "pushed settings to docs\n", out)

	settingsDir := filepath.Join(env.dir, "settings")
	require.NoError(t, os.MkdirAll(settingsDir, 0755))
	require.NoError(t, os.WriteFile(searchindex.SettingsFile(settingsDir, "docs"), []byte("{not json"), 0644))
	_, err = env.run(t, "push-config", "--settings-dir", settingsDir)
	assert.Error(t, err)
}

func TestNotConnected(t *testing.T) {
	env := newCLIEnv(t, "")
	data, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(env.configPath, []byte(strings.Replace(string(data), "provider: local", "provider: algolia", 1)), 0600))

	for _, args := range [][]string{
		{"test-connection"},
		{"sync", "1"},
		{"reindex"},
		{"clear"},
	} {
		t.Run(args[0], func(t *testing.T) {
			_, err := env.run(t, args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, indexer.ErrNotConnected)
			assert.Equal(t, ExitNotConnected, reportError(&bytes.Buffer{}, err))
		})
	}
}

func TestReindex_AllSites(t *testing.T) {
	env := newCLIEnv(t, `sites:
  - name: blog
    index: blog
    types: [post]
  - name: pages
    index: pages
    types: [page]
`)
	env.writeExport(t)
	_, err := env.run(t, "import", filepath.Join(env.dir, "export"))
	require.NoError(t, err)

	out, err := env.run(t, "reindex", "--all-sites")
	require.NoError(t, err)
	assert.Contains(t, out, "blog")
	assert.Contains(t, out, "pages")
	assert.Equal(t, 3, env.count(t, "blog", ""))
	assert.Equal(t, 1, env.count(t, "pages", ""))

	out, err = env.run(t, "--site", "pages", "status", "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"index": "pages"`)

	_, err = env.run(t, "--site", "shop", "status")
	assert.ErrorIs(t, err, config.ErrUnknownSite)

	_, err = env.run(t, "--site", "blog", "reindex", "--all-sites")
	assert.Error(t, err)
}

func TestReindex_LockHeld(t *testing.T) {
	env := newCLIEnv(t, "")
	lock := runlock.New(filepath.Join(env.dir, "data"))
	require.NoError(t, lock.TryLock())
	defer lock.Unlock()

	_, err := env.run(t, "reindex")
	assert.ErrorIs(t, err, runlock.ErrHeld)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
