package searchindex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/docsync/internal/models"
)

type verifyClient struct {
	err   error
	calls int
}

func (v *verifyClient) Name() string                                          { return "stub" }
func (v *verifyClient) Upsert(context.Context, string, []models.Record) error { return nil }
func (v *verifyClient) DeleteByFilter(context.Context, string, string) error  { return nil }
func (v *verifyClient) DeleteByIDs(context.Context, string, []string) error   { return nil }
func (v *verifyClient) Clear(context.Context, string) error                   { return nil }
func (v *verifyClient) SetSettings(context.Context, string, Settings) error   { return nil }
func (v *verifyClient) Close() error                                          { return nil }
func (v *verifyClient) Verify(context.Context) error {
	v.calls++
	return v.err
}

func TestConnection_NotConfigured(t *testing.T) {
	c := NewConnection(nil, nil)
	assert.ErrorIs(t, c.Ready(context.Background()), ErrNotConfigured)
	assert.False(t, c.Status().Connected)
}

func TestConnection_ReadyChecksOnce(t *testing.T) {
	v := &verifyClient{}
	c := NewConnection(v, nil)
	ctx := context.Background()
	require.NoError(t, c.Ready(ctx))
	require.NoError(t, c.Ready(ctx))
	assert.Equal(t, 1, v.calls)
	st := c.Status()
	assert.True(t, st.Connected)
	assert.Equal(t, "stub", st.Provider)
}

func TestConnection_FailureIsUnreachable(t *testing.T) {
	v := &verifyClient{err: errors.New("dial tcp: timeout")}
	c := NewConnection(v, nil)
	err := c.Check(context.Background())
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.False(t, c.Status().Connected)
	assert.Contains(t, c.Status().Error, "timeout")

	v.err = nil
	require.NoError(t, c.Check(context.Background()))
	assert.True(t, c.Status().Connected)
}

func TestConnection_FailureIsRecheckedAfterRetryInterval(t *testing.T) {
	v := &verifyClient{err: errors.New("dial tcp: timeout")}
	c := NewConnection(v, nil, WithRetryAfter(10*time.Millisecond))
	ctx := context.Background()
	require.ErrorIs(t, c.Ready(ctx), ErrUnreachable)

	v.err = nil
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Ready(ctx))
	assert.Equal(t, 2, v.calls)
	assert.True(t, c.Status().Connected)

	require.NoError(t, c.Ready(ctx))
	assert.Equal(t, 2, v.calls, "a successful check is not repeated")
}

func TestConnection_FailureCachedWithinRetryInterval(t *testing.T) {
	v := &verifyClient{err: errors.New("invalid credentials")}
	c := NewConnection(v, nil, WithRetryAfter(time.Hour))
	ctx := context.Background()
	require.Error(t, c.Ready(ctx))
	v.err = nil
	require.Error(t, c.Ready(ctx))
	assert.Equal(t, 1, v.calls)

	c = NewConnection(v, nil, WithRetryAfter(0))
	v.err, v.calls = errors.New("invalid credentials"), 0
	require.Error(t, c.Ready(ctx))
	time.Sleep(time.Millisecond)
	require.Error(t, c.Ready(ctx))
	assert.Equal(t, 1, v.calls)
}
