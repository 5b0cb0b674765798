package projection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rednote/internal/gateway"
	"rednote/internal/models"
	"rednote/internal/store"
)

// End-to-end paths: mutations go through the gateway, reads come back
// through the projections, nothing is patched locally in between.

func TestFeedReflectsSequentialLikeToggles(t *testing.T) {
	m := store.NewMemory()
	g := gateway.New(m)
	ctx := context.Background()
	maria := models.Identity{ID: "u1", Username: "maria", Job: "welder"}

	post, err := g.CreatePost(ctx, "hello", maria)
	require.NoError(t, err)

	snapshots := make(chan []models.Post, 16)
	agg := NewFeedAggregator(m)
	defer agg.Stop()
	agg.Start(
		func(posts []models.Post) { snapshots <- posts },
		func(err error) { t.Errorf("unexpected error: %v", err) },
	)

	waitFor := func(likes int, likedBy []string) models.Post {
		t.Helper()
		var got models.Post
		require.Eventually(t, func() bool {
			select {
			case posts := <-snapshots:
				if len(posts) != 1 {
					return false
				}
				got = posts[0]
				return got.Likes == likes && len(got.LikedBy) == len(likedBy)
			default:
				return false
			}
		}, 2*time.Second, 10*time.Millisecond)
		return got
	}

	first := waitFor(0, nil)
	require.Equal(t, "hello", first.Content)
	require.Empty(t, first.LikedBy)

	require.NoError(t, g.ToggleLike(ctx, post.ID, "U1", first.LikedBy))
	liked := waitFor(1, []string{"U1"})
	require.Equal(t, []string{"U1"}, liked.LikedBy)

	require.NoError(t, g.ToggleLike(ctx, post.ID, "U1", liked.LikedBy))
	unliked := waitFor(0, nil)
	require.Empty(t, unliked.LikedBy)
}

func TestSendMessageReachesStreamAndDirectory(t *testing.T) {
	m := store.NewMemory()
	g := gateway.New(m)
	ctx := context.Background()
	maria := models.Identity{ID: "u1", Username: "maria"}

	conv, err := g.GetOrCreateConversation(ctx, maria, "u2", "ivan")
	require.NoError(t, err)

	messages := make(chan []models.Message, 16)
	stream := NewStream(m)
	defer stream.Clear()
	stream.Select(conv.ID,
		func(msgs []models.Message) { messages <- msgs },
		func(err error) { t.Errorf("unexpected error: %v", err) },
	)

	views := make(chan []models.ConversationView, 16)
	dir := NewDirectory(m)
	defer dir.Stop()
	dir.ListFor("u2",
		func(v []models.ConversationView) { views <- v },
		func(err error) { t.Errorf("unexpected error: %v", err) },
	)

	_, err = g.SendMessage(ctx, conv.ID, "hi", maria)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case msgs := <-messages:
			return len(msgs) == 1 && msgs[0].Content == "hi" && msgs[0].ConversationID == conv.ID
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	// The denormalized summary is a second write; the directory catches up
	// eventually, not atomically.
	require.Eventually(t, func() bool {
		select {
		case v := <-views:
			return len(v) == 1 && v[0].LastMessage == "hi" && v[0].CounterpartName == "maria"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
