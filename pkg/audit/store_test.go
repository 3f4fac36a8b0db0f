package audit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nounverse/verbs/pkg/tool"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "audit.db")

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := newTestStore(t)

	entries := []Entry{
		{InvocationID: "inv-1", Tool: "data.json.parse", Actor: "alice", Class: "human", Status: "completed", DurationMs: 12},
		{InvocationID: "inv-2", Tool: "web.fetch", Actor: "agent-7", Class: "ai", Status: "failed", ErrorCode: "HANDLER_ERROR", DurationMs: 250},
		{InvocationID: "inv-3", Tool: "data.json.parse", Actor: "alice", Class: "human", Status: "completed", DurationMs: 8},
	}
	for _, e := range entries {
		require.NoError(t, store.Record(e))
	}

	got, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Newest first.
	assert.Equal(t, "inv-3", got[0].InvocationID)
	assert.Equal(t, "inv-2", got[1].InvocationID)
	assert.Equal(t, "inv-1", got[2].InvocationID)

	assert.Equal(t, "web.fetch", got[1].Tool)
	assert.Equal(t, "agent-7", got[1].Actor)
	assert.Equal(t, "ai", got[1].Class)
	assert.Equal(t, "failed", got[1].Status)
	assert.Equal(t, "HANDLER_ERROR", got[1].ErrorCode)
	assert.Equal(t, int64(250), got[1].DurationMs)
}

func TestStore_Record_SetsCreatedAt(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Record(Entry{InvocationID: "inv-1", Tool: "web.fetch", Status: "completed"}))

	got, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.WithinDuration(t, time.Now(), got[0].CreatedAt, 5*time.Second)
}

func TestStore_Recent_Limit(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(Entry{InvocationID: "inv", Tool: "web.fetch", Status: "completed"}))
	}

	got, err := store.Recent(2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_ByTool(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Record(Entry{InvocationID: "inv-1", Tool: "web.fetch", Status: "completed"}))
	require.NoError(t, store.Record(Entry{InvocationID: "inv-2", Tool: "data.filter", Status: "completed"}))
	require.NoError(t, store.Record(Entry{InvocationID: "inv-3", Tool: "web.fetch", Status: "failed", ErrorCode: "INVOCATION_TIMEOUT"}))

	got, err := store.ByTool("web.fetch", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "inv-3", got[0].InvocationID)
	assert.Equal(t, "inv-1", got[1].InvocationID)

	got, err = store.ByTool("missing.tool", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_HandleEvent_RecordsTerminalEvents(t *testing.T) {
	store := newTestStore(t)

	store.HandleEvent(tool.Event{
		Type:         tool.EventInvocationStarted,
		InvocationID: "inv-1",
		Tool:         "web.fetch",
		Actor:        "alice",
		Class:        tool.AudienceHuman,
		Timestamp:    time.Now(),
	})
	store.HandleEvent(tool.Event{
		Type:         tool.EventInvocationCompleted,
		InvocationID: "inv-1",
		Tool:         "web.fetch",
		Actor:        "alice",
		Class:        tool.AudienceHuman,
		Timestamp:    time.Now(),
		Data:         map[string]interface{}{"duration_ms": int64(42)},
	})
	store.HandleEvent(tool.Event{
		Type:         tool.EventInvocationFailed,
		InvocationID: "inv-2",
		Tool:         "web.read",
		Actor:        "agent-7",
		Class:        tool.AudienceAI,
		Timestamp:    time.Now(),
		Data: map[string]interface{}{
			"error_code":  "HANDLER_ERROR",
			"stage":       "executing",
			"duration_ms": int64(7),
		},
	})

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count, "started events should not be recorded")

	got, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "failed", got[0].Status)
	assert.Equal(t, "HANDLER_ERROR", got[0].ErrorCode)
	assert.Equal(t, int64(7), got[0].DurationMs)
	assert.Equal(t, "ai", got[0].Class)

	assert.Equal(t, "completed", got[1].Status)
	assert.Empty(t, got[1].ErrorCode)
	assert.Equal(t, int64(42), got[1].DurationMs)
}

func TestStore_RecordsEngineInvocations(t *testing.T) {
	store := newTestStore(t)

	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(tool.Definition{
		ID:       "audit.ok",
		Name:     "OK",
		Audience: tool.AudienceBoth,
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return "done", nil
		},
	}))
	require.NoError(t, reg.Register(tool.Definition{
		ID:       "audit.broken",
		Name:     "Broken",
		Audience: tool.AudienceBoth,
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return nil, errors.New("boom")
		},
	}))

	engine := tool.NewEngine(reg, tool.NewGate(nil))
	engine.Subscribe(store.HandleEvent)

	caller := tool.Caller{Actor: "alice", Class: tool.AudienceHuman}
	ok := engine.Invoke(context.Background(), tool.Request{Tool: "audit.ok", Caller: caller})
	require.True(t, ok.Success)
	failed := engine.Invoke(context.Background(), tool.Request{Tool: "audit.broken", Caller: caller})
	require.False(t, failed.Success)

	got, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, failed.InvocationID, got[0].InvocationID)
	assert.Equal(t, "failed", got[0].Status)
	assert.Equal(t, "HANDLER_ERROR", got[0].ErrorCode)

	assert.Equal(t, ok.InvocationID, got[1].InvocationID)
	assert.Equal(t, "completed", got[1].Status)
	assert.Equal(t, "alice", got[1].Actor)
}

func TestStore_ReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(Entry{InvocationID: "inv-1", Tool: "web.fetch", Status: "completed"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
