package projection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rednote/internal/models"
	"rednote/internal/store"
)

func waitViews(t *testing.T, ch <-chan []models.ConversationView) []models.ConversationView {
	t.Helper()
	select {
	case views := <-ch:
		return views
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for conversation snapshot")
		return nil
	}
}

func TestDirectoryListsViewerConversationsByRecency(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	_, err := m.Add(ctx, models.ChatsCollection, map[string]any{
		"participants":         []string{"u1", "u2"},
		"participantNames":     map[string]string{"u1": "maria", "u2": "ivan"},
		"lastMessage":          "old",
		"lastMessageTimestamp": base,
		"createdAt":            base,
	})
	require.NoError(t, err)
	_, err = m.Add(ctx, models.ChatsCollection, map[string]any{
		"participants":         []string{"u1", "u3"},
		"participantNames":     map[string]string{"u1": "maria"},
		"lastMessage":          "recent",
		"lastMessageTimestamp": base.Add(time.Hour),
		"createdAt":            base,
	})
	require.NoError(t, err)
	_, err = m.Add(ctx, models.ChatsCollection, map[string]any{
		"participants":         []string{"u4", "u5"},
		"participantNames":     map[string]string{},
		"lastMessage":          "unrelated",
		"lastMessageTimestamp": base,
		"createdAt":            base,
	})
	require.NoError(t, err)

	snapshots := make(chan []models.ConversationView, 8)
	dir := NewDirectory(m)
	defer dir.Stop()
	dir.ListFor("u1",
		func(views []models.ConversationView) { snapshots <- views },
		func(err error) { t.Errorf("unexpected error: %v", err) },
	)

	views := waitViews(t, snapshots)
	require.Len(t, views, 2)
	assert.Equal(t, "recent", views[0].LastMessage)
	assert.Equal(t, "u3", views[0].CounterpartID)
	assert.Equal(t, models.UnknownUser, views[0].CounterpartName, "missing name map entry falls back")
	assert.Equal(t, "ivan", views[1].CounterpartName)
}

func TestDirectoryReordersOnSummaryUpdate(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	stale, err := m.Add(ctx, models.ChatsCollection, map[string]any{
		"participants":         []string{"u1", "u2"},
		"participantNames":     map[string]string{"u2": "ivan"},
		"lastMessage":          "a",
		"lastMessageTimestamp": base,
	})
	require.NoError(t, err)
	_, err = m.Add(ctx, models.ChatsCollection, map[string]any{
		"participants":         []string{"u1", "u3"},
		"participantNames":     map[string]string{"u3": "olga"},
		"lastMessage":          "b",
		"lastMessageTimestamp": base.Add(time.Hour),
	})
	require.NoError(t, err)

	snapshots := make(chan []models.ConversationView, 8)
	dir := NewDirectory(m)
	defer dir.Stop()
	dir.ListFor("u1",
		func(views []models.ConversationView) { snapshots <- views },
		func(err error) { t.Errorf("unexpected error: %v", err) },
	)

	views := waitViews(t, snapshots)
	require.Len(t, views, 2)
	require.Equal(t, "olga", views[0].CounterpartName)

	err = m.Update(ctx, models.ChatsCollection, stale.ID, map[string]any{
		"lastMessage":          "newest",
		"lastMessageTimestamp": base.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	views = waitViews(t, snapshots)
	require.Len(t, views, 2)
	assert.Equal(t, "newest", views[0].LastMessage)
	assert.Equal(t, "ivan", views[0].CounterpartName)
}
