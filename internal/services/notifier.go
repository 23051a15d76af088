package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"zenstudy-backend/internal/models"
)

// UpdatesChannelPrefix is the Redis pub/sub channel prefix the WebSocket hub
// subscribes to; the suffix is the client id.
const UpdatesChannelPrefix = "client_updates:"

type Publisher interface {
	PublishUpdate(ctx context.Context, clientID string, msg models.WSMessage)
}

// Notifier sends WebSocket updates through Redis pub/sub so that any server
// instance holding the client's socket can deliver them.
type Notifier struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewNotifier(rdb *redis.Client, log *zap.Logger) *Notifier {
	return &Notifier{rdb: rdb, log: log.Named("notifier")}
}

func (n *Notifier) PublishUpdate(ctx context.Context, clientID string, msg models.WSMessage) {
	if n == nil || n.rdb == nil || clientID == "" {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		n.log.Error("encode update", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	if err := n.rdb.Publish(ctx, UpdatesChannel(clientID), string(data)).Err(); err != nil {
		n.log.Warn("publish update", zap.String("client_id", clientID), zap.Error(err))
	}
}

func UpdatesChannel(clientID string) string {
	return fmt.Sprintf("%s%s", UpdatesChannelPrefix, clientID)
}
