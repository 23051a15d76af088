package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"zenstudy-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans Redis pub/sub updates out to the sockets of one browser client.
// Clients identify themselves with the client_id query parameter they also
// send as X-Client-ID on API calls.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*websocket.Conn
	redisClient *redis.Client
	cancelFuncs map[string]context.CancelFunc
	log         *zap.Logger
}

func NewHub(redisClient *redis.Client, log *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string][]*websocket.Conn),
		redisClient: redisClient,
		cancelFuncs: make(map[string]context.CancelFunc),
		log:         log.Named("ws"),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" || len(clientID) > 128 {
		http.Error(w, "client_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	h.registerConnection(clientID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(clientID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) registerConnection(clientID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[clientID] = append(h.connections[clientID], conn)

	// First socket for this client opens the subscription
	if len(h.connections[clientID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[clientID] = cancel
		go h.subscribeToPubSub(ctx, clientID)
	}

	h.log.Info("client connected", zap.String("client_id", clientID), zap.Int("sockets", len(h.connections[clientID])))
}

func (h *Hub) unregisterConnection(clientID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[clientID]
	for i, c := range conns {
		if c == conn {
			h.connections[clientID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[clientID]) == 0 {
		delete(h.connections, clientID)
		if cancel, ok := h.cancelFuncs[clientID]; ok {
			cancel()
			delete(h.cancelFuncs, clientID)
		}
	}

	h.log.Info("client disconnected", zap.String("client_id", clientID))
}

func (h *Hub) subscribeToPubSub(ctx context.Context, clientID string) {
	pubsub := h.redisClient.Subscribe(ctx, services.UpdatesChannel(clientID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(clientID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(clientID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[clientID] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("write failed", zap.String("client_id", clientID), zap.Error(err))
		}
	}
}

// SendToClient writes msg to the client's sockets on this instance only.
func (h *Hub) SendToClient(clientID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(clientID, data)
}

// Connected reports how many sockets the client has open here.
func (h *Hub) Connected(clientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[clientID])
}

// Close drops every socket and subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conns := range h.connections {
		for _, c := range conns {
			c.Close()
		}
		if cancel, ok := h.cancelFuncs[id]; ok {
			cancel()
		}
	}
	h.connections = make(map[string][]*websocket.Conn)
	h.cancelFuncs = make(map[string]context.CancelFunc)
}
