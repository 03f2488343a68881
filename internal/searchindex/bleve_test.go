package searchindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/docsync/internal/models"
)

func newTestBleve(t *testing.T) *BleveClient {
	t.Helper()
	c, err := NewBleveClient(filepath.Join(t.TempDir(), "indices"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func rec(objectID, key, content string) models.Record {
	return models.Record{
		ObjectID:    objectID,
		DistinctKey: key,
		Content:     content,
		Attributes:  map[string]interface{}{"type": "post", "title": "T"},
	}
}

func TestBleveClient_UpsertAndDeleteByFilter(t *testing.T) {
	c := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, "docs", []models.Record{
		rec("post-1-0", "post#1", "alpha"),
		rec("post-1-1", "post#1", "beta"),
		rec("post-2-0", "post#2", "gamma"),
		rec("post-10-0", "post#10", "delta"),
	}))
	n, err := c.Count("docs")
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	require.NoError(t, c.DeleteByFilter(ctx, "docs", CreateFilter(models.AttrDistinctKey, "post#1")))
	ids, err := c.ObjectIDs(ctx, "docs", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"post-10-0", "post-2-0"}, ids)

	filter := ChainFilters(models.AttrDistinctKey, []string{"post#2", "post#10"}, OpOr)
	require.NoError(t, c.DeleteByFilter(ctx, "docs", filter))
	ids, err = c.ObjectIDs(ctx, "docs", "")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestBleveClient_UpsertReplacesSameObjectID(t *testing.T) {
	c := newTestBleve(t)
	ctx := context.Background()
	require.NoError(t, c.Upsert(ctx, "docs", []models.Record{rec("page-1-0", "page#1", "old")}))
	require.NoError(t, c.Upsert(ctx, "docs", []models.Record{rec("page-1-0", "page#1", "new")}))
	n, err := c.Count("docs")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestBleveClient_DeleteWhereAnd(t *testing.T) {
	c := newTestBleve(t)
	ctx := context.Background()
	a := rec("post-1-0", "post#1", "x")
	b := rec("page-2-0", "page#2", "y")
	b.Attributes = map[string]interface{}{"type": "page"}
	require.NoError(t, c.Upsert(ctx, "docs", []models.Record{a, b}))

	require.NoError(t, c.DeleteByFilter(ctx, "docs", MapIntoFilters(map[string]string{"type": "page", "distinctKey": "page#2"}, OpAnd)))
	ids, err := c.ObjectIDs(ctx, "docs", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"post-1-0"}, ids)
}

func TestBleveClient_DeleteByIDsAndClear(t *testing.T) {
	c := newTestBleve(t)
	ctx := context.Background()
	require.NoError(t, c.Upsert(ctx, "docs", []models.Record{
		rec("post-1-0", "post#1", "a"),
		rec("post-1-1", "post#1", "b"),
	}))
	require.NoError(t, c.DeleteByIDs(ctx, "docs", []string{"post-1-1"}))
	ids, err := c.ObjectIDs(ctx, "docs", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"post-1-0"}, ids)

	require.NoError(t, c.Clear(ctx, "docs"))
	n, err := c.Count("docs")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestBleveClient_ReopensExistingIndex(t *testing.T) {
	base := filepath.Join(t.TempDir(), "indices")
	ctx := context.Background()
	c, err := NewBleveClient(base)
	require.NoError(t, err)
	require.NoError(t, c.Upsert(ctx, "docs", []models.Record{rec("post-1-0", "post#1", "a")}))
	require.NoError(t, c.Close())

	c2, err := NewBleveClient(base)
	require.NoError(t, err)
	defer c2.Close()
	n, err := c2.Count("docs")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestBleveClient_InvalidInputs(t *testing.T) {
	c := newTestBleve(t)
	ctx := context.Background()
	assert.ErrorIs(t, c.DeleteByFilter(ctx, "docs", "not a filter"), ErrInvalidFilter)
	assert.ErrorIs(t, c.Upsert(ctx, "../escape", []models.Record{rec("a", "b", "c")}), ErrNotConfigured)
	_, err := NewBleveClient("")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBleveClient_SettingsAndVerify(t *testing.T) {
	c := newTestBleve(t)
	ctx := context.Background()
	require.NoError(t, c.Verify(ctx))
	require.NoError(t, c.SetSettings(ctx, "docs", DefaultSettings()))
	s, ok := c.Settings("docs")
	require.True(t, ok)
	assert.Equal(t, models.AttrDistinctKey, s["attributeForDistinct"])

	require.NoError(t, os.RemoveAll(c.basePath))
	assert.ErrorIs(t, c.Verify(ctx), ErrUnreachable)
}
