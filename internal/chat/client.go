package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 16 << 10
)

var errClientClosed = errors.New("chat: client closed")

// Client 一条 WebSocket 连接
// 出站统一走带缓冲的 send 通道，由单独的写循环串行写出；
// 缓冲写满说明客户端过慢，直接断开以限制背压
type Client struct {
	id       string
	identity chatmodel.Participant
	ws       *websocket.Conn
	hub      *Hub

	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newClient(hub *Hub, identity chatmodel.Participant, ws *websocket.Conn) *Client {
	return &Client{
		id:       uuid.NewString(),
		identity: identity,
		ws:       ws,
		hub:      hub,
		send:     make(chan []byte, hub.cfg.SendBuffer),
		closed:   make(chan struct{}),
	}
}

// ID 连接标识
func (c *Client) ID() string { return c.id }

// Identity 连接身份
func (c *Client) Identity() chatmodel.Participant { return c.identity }

// SendEvent 入队一条出站事件
func (c *Client) SendEvent(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return errClientClosed
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("chat: send buffer exceeded")
	}
}

// Close 关闭连接并停掉写循环，可安全重复调用
func (c *Client) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		deadline := time.Now().Add(writeWait)
		_ = c.ws.SetWriteDeadline(deadline)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()
	})
}

// readPump 读循环：一条连接一个 goroutine，读到的事件交给 hub 处理
// 连接静默由 pong 超时判定，超时即退出并触发下线清理
func (c *Client) readPump() {
	defer c.hub.disconnect(c)

	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
		c.hub.presence.Touch(c.id)
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		c.hub.handleInbound(c, raw)
	}
}

// writePump 写循环：出站事件与心跳 ping 都从这里写出
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}
