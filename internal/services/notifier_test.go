package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zenstudy-backend/internal/models"
)

func TestNotifier_PublishUpdate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, UpdatesChannel("client-1"))
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewNotifier(rdb, zap.NewNop())
	n.PublishUpdate(ctx, "client-1", models.WSMessage{Type: "completed", Payload: map[string]string{"result_id": "abc"}})

	select {
	case msg := <-sub.Channel():
		require.Equal(t, "client_updates:client-1", msg.Channel)

		var got models.WSMessage
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		require.Equal(t, "completed", got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestNotifier_SkipsAnonymousClients(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	NewNotifier(rdb, zap.NewNop()).PublishUpdate(context.Background(), "", models.WSMessage{Type: "x"})
	require.Empty(t, mr.PubSubChannels(""))

	var nilNotifier *Notifier
	nilNotifier.PublishUpdate(context.Background(), "client-1", models.WSMessage{Type: "x"})
}
