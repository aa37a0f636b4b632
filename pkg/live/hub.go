package live

import (
	"net/http"
	"sync"
	"time"

	"pipelinehealth/pkg/core/logger"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	// pingPeriod 必须小于 pongWait
	pingPeriod  = (pongWait * 9) / 10
	sendBufSize = 16
	readLimit   = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 跨域由网关统一处理
	CheckOrigin: func(r *http.Request) bool { return true },
}

// 客户端上行消息类型
const (
	msgSubscribeDashboard = "subscribe-dashboard"
	msgSubscribe          = "subscribe"
	msgUnsubscribe        = "unsubscribe"
)

type clientMessage struct {
	Type        string  `json:"type"`
	PipelineIDs []int64 `json:"pipelineIds"`
}

// Hub 维护 websocket 连接及其订阅关系，实现 Publisher
type Hub struct {
	log *logger.Log

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	// 以下字段由 hub.mu 保护
	dashboard bool
	pipelines map[int64]struct{}
}

func NewHub(log *logger.Log) *Hub {
	return &Hub{
		log:     log.WithEntryName("LiveHub"),
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP 升级为 websocket 并阻塞直到连接关闭
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{
		conn:      conn,
		send:      make(chan []byte, sendBufSize),
		pipelines: make(map[int64]struct{}),
	}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	h.readPump(c)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast 投递给看板订阅者以及订阅了该流水线的客户端，每个客户端最多一次
func (h *Hub) Broadcast(event Event) {
	data, err := jsoniter.Marshal(envelope{Event: event.Name, Data: event.Data})
	if err != nil {
		h.log.WithErr(err).WithField("event", event.Name).Warn("事件序列化失败")
		return
	}
	h.deliver(event.PipelineID, data)
}

func (h *Hub) deliver(pipelineID int64, data []byte) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(pipelineID) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !h.trySend(c, data) {
			h.log.Warn("客户端发送缓冲已满，断开连接")
			h.unregister(c)
		}
	}
}

func (c *client) wants(pipelineID int64) bool {
	if c.dashboard {
		return true
	}
	if pipelineID == 0 {
		return false
	}
	_, ok := c.pipelines[pipelineID]
	return ok
}

// trySend 在读锁下写入，避免与 unregister 关闭 channel 竞争
func (h *Hub) trySend(c *client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close 断开所有客户端
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("websocket 客户端已连接")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) handleMessage(c *client, raw []byte) {
	var msg clientMessage
	if err := jsoniter.Unmarshal(raw, &msg); err != nil {
		h.log.WithErr(err).Debug("忽略无法解析的客户端消息")
		return
	}

	h.mu.Lock()
	switch msg.Type {
	case msgSubscribeDashboard:
		c.dashboard = true
	case msgSubscribe:
		for _, id := range msg.PipelineIDs {
			c.pipelines[id] = struct{}{}
		}
	case msgUnsubscribe:
		for _, id := range msg.PipelineIDs {
			delete(c.pipelines, id)
		}
	default:
		h.mu.Unlock()
		h.log.WithField("type", msg.Type).Debug("未知的客户端消息类型")
		return
	}
	h.mu.Unlock()

	// 回执，客户端据此确认订阅已生效
	ack, _ := jsoniter.Marshal(envelope{Event: "subscribed", Data: msg})
	h.trySend(c, ack)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		h.handleMessage(c, raw)
	}
}
