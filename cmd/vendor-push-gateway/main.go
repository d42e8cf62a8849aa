// cmd/vendor-push-gateway/main.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"bazaar/internal/pkg/bootstrap"
	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/mq"
	"bazaar/internal/pkg/session"
	"bazaar/internal/service/settlement/domain"
)

const (
	serviceName = "vendor-push-gateway"
	servicePort = 8094

	commissionBookedTopic = "commission-booked"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var (
	nodeID   = "vendor-push-gateway-" + uuid.New().String()[:8]
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool { // 简化处理，允许所有跨域
			return true
		},
	}
)

// Hub 维护所有活跃的连接，按 VendorID 索引
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	sessions   *session.Manager
	lock       sync.RWMutex
}

func newHub(sessions *session.Manager) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		sessions:   sessions,
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client.vendorID] = client
			h.lock.Unlock()
			log.Printf("Vendor %s connected on node %s", client.vendorID, nodeID)
		case client := <-h.unregister:
			h.lock.Lock()
			if _, ok := h.clients[client.vendorID]; ok {
				delete(h.clients, client.vendorID)
				close(client.send)
			}
			h.lock.Unlock()
			h.cleanupSession(client.vendorID)
			log.Printf("Vendor %s disconnected.", client.vendorID)
		}
	}
}

// cleanupSession 断连时清理会话映射。
// 商家可能已经重连到其他节点并覆盖了映射，只清理仍指向本节点的记录。
func (h *Hub) cleanupSession(vendorID string) {
	ctx := context.Background()
	node, err := h.sessions.GetVendorGateway(ctx, vendorID)
	if err != nil {
		log.Printf("Failed to query session for vendor %s: %v", vendorID, err)
		return
	}
	if node != nodeID {
		return
	}
	if err := h.sessions.RemoveVendorGateway(ctx, vendorID); err != nil {
		log.Printf("Failed to remove session for vendor %s: %v", vendorID, err)
	}
}

// send 把消息投递给指定商家的连接，商家不在本节点时返回 false
func (h *Hub) send(vendorID string, message []byte) bool {
	h.lock.RLock()
	client, ok := h.clients[vendorID]
	h.lock.RUnlock()
	if !ok {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		// 发送缓冲已满，视为连接不健康
		return false
	}
}

// Client 是一个WebSocket连接的代表
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	vendorID string
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, sessionMgr *session.Manager, w http.ResponseWriter, r *http.Request) {
	vendorID := r.URL.Query().Get("vendor_id")
	if vendorID == "" {
		http.Error(w, "vendor_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), vendorID: vendorID}
	client.hub.register <- client

	// 在Redis中记录商家落在哪个网关节点，供跨节点路由查询
	if err := sessionMgr.SetVendorGateway(context.Background(), vendorID, nodeID); err != nil {
		log.Printf("Failed to set session for vendor %s: %v", vendorID, err)
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// consumeBookedEvents 订阅佣金入账事件并推送给在线商家
func consumeBookedEvents(ctx context.Context, reader *kafka.Reader, hub *Hub) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Ctx(ctx).Printf("ERROR: could not read message: %v. Retrying...", err)
			time.Sleep(1 * time.Second)
			continue
		}

		var event domain.CommissionBookedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("Dropping malformed commission-booked event")
		} else if hub.send(event.VendorID, msg.Value) {
			logger.Ctx(ctx).Info().
				Str("vendor_id", event.VendorID).
				Str("order_id", event.OrderID).
				Msg("Commission notification pushed")
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("Failed to commit messages")
		}
	}
}

func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	sessionMgr := session.NewManager(cfg.Infra.Redis.Addrs)
	hub := newHub(sessionMgr)
	go hub.run()

	// 每个网关节点用独立的消费组，入账事件广播到所有节点，
	// 由各节点按本地连接表决定是否推送
	reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, commissionBookedTopic, nodeID)
	ctx, cancel := context.WithCancel(context.Background())
	go consumeBookedEvents(ctx, reader, hub)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
				serveWs(hub, sessionMgr, w, r)
			})
		},
		OnShutdown: func(shutdownCtx context.Context) {
			cancel()
			reader.Close()
		},
	})
}
