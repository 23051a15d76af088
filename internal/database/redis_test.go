package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClients(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	clients, err := NewRedisClients(ctx, "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer clients.Close()

	require.NoError(t, clients.Ping(ctx))
	require.NotSame(t, clients.Queue, clients.PubSub)

	mr.Close()
	require.Error(t, clients.Ping(ctx))
}

func TestNewRedisClients_BadURL(t *testing.T) {
	_, err := NewRedisClients(context.Background(), "not-a-url")
	require.Error(t, err)
}
