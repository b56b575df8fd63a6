package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kataras/golog"
	radix "github.com/mediocregopher/radix/v3"

	"github.com/khalildhmine/fmbq-sub002/internal/config"
	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

// Hub 聊天子系统的装配点和连接生命周期管理
// 每条连接一个读 goroutine 一个写 goroutine；
// 共享状态（在线表、路由表）都在各自的加锁对象里，hub 本身无自有可变状态
type Hub struct {
	cfg      *config.ChatConfig
	store    chatmodel.SessionRepository
	presence *PresenceRegistry
	router   *RoomRouter
	resolver *SessionResolver
	relay    *MessageRelay
	signals  *SignalChannel
	roster   *PresenceBroadcaster
	logger   *golog.Logger
	upgrader websocket.Upgrader
}

// NewHub 装配聊天子系统。redis 与 notify 可为 nil（不带缓存/通知）
func NewHub(cfg *config.ChatConfig, store chatmodel.SessionRepository, redis radix.Client, notify Notifier, logger *golog.Logger) *Hub {
	presence := NewPresenceRegistry()
	router := NewRoomRouter(store, logger, cfg.RejoinSessionLimit)
	resolver := NewSessionResolver(store, router, notify, logger)
	relay := NewMessageRelay(store, resolver, router, presence, notify, redis, logger, cfg.StoreTimeout)
	signals := NewSignalChannel(store, router, relay, logger, cfg.StoreTimeout)
	roster := NewPresenceBroadcaster(presence, router, cfg.RosterInterval, logger)

	return &Hub{
		cfg:      cfg,
		store:    store,
		presence: presence,
		router:   router,
		resolver: resolver,
		relay:    relay,
		signals:  signals,
		roster:   roster,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// 商城 H5 与后台面板跨域访问，来源校验交给网关
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run 启动周期性的名单广播，ctx 取消即停止
func (h *Hub) Run(ctx context.Context) {
	go h.roster.Run(ctx)
}

// Relay 暴露给 REST 侧复用（后台客服在会话详情页发消息）
func (h *Hub) Relay() *MessageRelay { return h.relay }

// Presence 在线状态登记表
func (h *Hub) Presence() *PresenceRegistry { return h.presence }

// Resolver 会话解析器
func (h *Hub) Resolver() *SessionResolver { return h.resolver }

// Router 房间路由器
func (h *Hub) Router() *RoomRouter { return h.router }

// ServeWS 把 HTTP 请求升级为聊天连接并接入 hub
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, identity chatmodel.Participant) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := newClient(h, identity, ws)
	go c.writePump()
	h.register(c)
	go c.readPump()
	return nil
}

// register 连接接入：登记在线 -> 订阅固定频道 -> 恢复历史会话 -> 下发初始状态
func (h *Hub) register(c *Client) {
	cameOnline := h.presence.MarkOnline(c.identity, c.id)

	h.router.Join(c, PersonalChannel(c.identity.ID))
	if c.identity.IsAgent() {
		h.router.Join(c, ChannelAgents)
	}
	if cameOnline {
		h.router.PublishAllExcept(c.id, Event{
			Event: EventAgentStatus,
			Data:  AgentStatusPayload{Online: true, AgentID: c.identity.ID, Timestamp: time.Now()},
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.StoreTimeout)
	if _, err := h.router.RejoinKnownChannels(ctx, c, c.identity); err != nil {
		h.logger.Warnf("chat hub: rejoin for %s failed: %v", c.identity.ID, err)
	}
	cancel()

	agents := h.presence.ListOnlineAgents()
	if err := c.SendEvent(Event{
		Event: EventConnectionStatus,
		Data: ConnectionStatusPayload{
			Connected:     true,
			ParticipantID: c.identity.ID,
			Role:          c.identity.Role,
			AgentOnline:   len(agents) > 0,
			AgentCount:    len(agents),
		},
	}); err != nil {
		h.logger.Warnf("chat hub: connection_status to %s failed: %v", c.id, err)
	}
	h.roster.SnapshotFor(c)

	GetMonitor().RecordConnect()
	h.logger.Infof("chat hub: %s connected (%s, %s)", c.identity.ID, c.identity.Role, c.id)
}

// disconnect 连接退出：读循环结束（含心跳超时）后统一走这里
func (h *Hub) disconnect(c *Client) {
	c.Close(websocket.CloseNormalClosure, "bye")

	p, wentOffline, ok := h.presence.MarkOffline(c.id)
	h.router.LeaveAll(c.id)
	if !ok {
		return
	}
	GetMonitor().RecordDisconnect()
	if wentOffline {
		h.router.PublishAll(Event{
			Event: EventAgentStatus,
			Data:  AgentStatusPayload{Online: false, AgentID: p.ID, Timestamp: time.Now()},
		})
	}
	h.logger.Infof("chat hub: %s disconnected (%s)", p.ID, c.id)
}

// handleInbound 分发入站事件。未知事件只记日志，连接保持
func (h *Hub) handleInbound(c *Client, raw []byte) {
	var ev InboundEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		h.logger.Warnf("chat hub: bad frame from %s: %v", c.id, err)
		return
	}

	switch ev.Event {
	case EventJoinSupportRoom:
		h.handleJoinSupportRoom(c, ev.Data)
	case EventSendMessage:
		h.handleSendMessage(c, ev.Data)
	case EventTyping:
		var p TypingPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			h.sendError(c, EventTyping, "bad payload")
			return
		}
		h.signals.Typing(c.identity, c.id, p.SessionID, p.IsTyping)
	case EventReadReceipt:
		var p ReadReceiptPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			h.sendError(c, EventReadReceipt, "bad payload")
			return
		}
		h.signals.ReadReceipt(context.Background(), c.identity, c.id, p.SessionID, p.MessageIDs)
	default:
		h.logger.Debugf("chat hub: unknown event %q from %s", ev.Event, c.id)
	}
}

// handleJoinSupportRoom 顾客请求接入客服
// 历史客户端会在 payload 里带上自己记住的访客 ID，访客身份允许沿用它，
// 这样断网重连后还能回到同一个会话
func (h *Hub) handleJoinSupportRoom(c *Client, data json.RawMessage) {
	var p JoinSupportRoomPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			h.sendError(c, EventJoinSupportRoom, "bad payload")
			return
		}
	}

	identity := c.identity
	if identity.Role == chatmodel.RoleGuest {
		if p.ParticipantID != "" {
			identity.ID = p.ParticipantID
		}
		if p.Name != "" {
			identity.DisplayName = p.Name
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.StoreTimeout)
	defer cancel()
	session, _, err := h.resolver.ResolveOrCreate(ctx, identity)
	if err != nil {
		h.sendError(c, EventJoinSupportRoom, "resolve session failed")
		h.logger.Warnf("chat hub: resolve for %s failed: %v", identity.ID, err)
		return
	}

	h.router.Join(c, SessionChannel(session.ID))
	h.router.Join(c, PersonalChannel(identity.ID))

	if err := c.SendEvent(Event{
		Event: EventExistingSession,
		Data: ExistingSessionPayload{
			SessionID: session.ID,
			Messages:  session.Messages,
			Status:    session.Status,
			IsActive:  session.Status == chatmodel.StatusActive,
		},
	}); err != nil {
		h.logger.Warnf("chat hub: existing_session to %s failed: %v", c.id, err)
	}
}

func (h *Hub) handleSendMessage(c *Client, data json.RawMessage) {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, EventSendMessage, "bad payload")
		return
	}

	_, err := h.relay.Send(context.Background(), c.identity, c, p.SessionID, p.Content, p.SuppressEchoToSender)
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, ErrEmptyMessage):
		h.sendError(c, EventSendMessage, "empty message")
	case errors.Is(err, chatmodel.ErrSessionNotFound):
		h.sendError(c, EventSendMessage, "session not found")
	case errors.Is(err, chatmodel.ErrSessionClosed):
		h.sendError(c, EventSendMessage, "session closed")
	default:
		// 持久化失败：只通知发起方，中继进程不中断
		h.sendError(c, EventSendMessage, "message not saved, try again")
		h.logger.Errorf("chat hub: send from %s failed: %v", c.identity.ID, err)
	}
}

// sendError 错误事件只发给操作发起方，后台广播问题不打扰客户端
func (h *Hub) sendError(c *Client, op, msg string) {
	_ = c.SendEvent(Event{Event: EventError, Data: ErrorPayload{Op: op, Message: msg}})
}
