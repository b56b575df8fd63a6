package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kataras/golog"
	radix "github.com/mediocregopher/radix/v3"

	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

// ErrEmptyMessage 空消息直接拒绝，不落库不广播
var ErrEmptyMessage = errors.New("chat: empty message")

// redisUnreadKey 会话未读计数，后台列表页轮询用
const redisUnreadKey = "chat:unread:"

// MessageRelay 消息中继：校验、持久化、再分发
// 持久化先于广播（persist happens-before publish），持久化失败则什么都不发
type MessageRelay struct {
	store    chatmodel.SessionRepository
	resolver *SessionResolver
	router   *RoomRouter
	presence *PresenceRegistry
	notify   Notifier
	redis    radix.Client
	logger   *golog.Logger

	storeTimeout time.Duration
}

// NewMessageRelay 创建消息中继。redis / notify 可为 nil
func NewMessageRelay(
	store chatmodel.SessionRepository,
	resolver *SessionResolver,
	router *RoomRouter,
	presence *PresenceRegistry,
	notify Notifier,
	redis radix.Client,
	logger *golog.Logger,
	storeTimeout time.Duration,
) *MessageRelay {
	if storeTimeout <= 0 {
		storeTimeout = 2 * time.Second
	}
	return &MessageRelay{
		store:        store,
		resolver:     resolver,
		router:       router,
		presence:     presence,
		notify:       notify,
		redis:        redis,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

// Send 发送一条消息
// sessionID 为空时走解析器找到或创建会话（顾客第一条消息的常规路径）。
// conn 是发送方连接，可为 nil（后台 REST 发送）；
// suppressEcho 时发送方只收 message_sent 轻量确认，避免客户端重复渲染
func (r *MessageRelay) Send(
	ctx context.Context,
	sender chatmodel.Participant,
	conn Sender,
	sessionID string,
	content string,
	suppressEcho bool,
) (*chatmodel.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	var session *chatmodel.Session
	var err error
	if sessionID == "" {
		session, _, err = r.resolver.ResolveOrCreate(ctx, sender)
		if err != nil {
			return nil, err
		}
	} else {
		session, err = r.store.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}
	if !session.Open() {
		return nil, chatmodel.ErrSessionClosed
	}

	m := &chatmodel.Message{
		Sender:         sender,
		Content:        content,
		Type:           chatmodel.MessageText,
		Timestamp:      time.Now(),
		DeliveryStatus: chatmodel.DeliverySent,
	}
	storeCtx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	err = r.store.AppendMessage(storeCtx, session.ID, m)
	cancel()
	if err != nil {
		// 持久化失败即整体失败，绝不广播未落库的消息
		GetMonitor().RecordStoreError()
		return nil, err
	}
	GetMonitor().RecordMessage()

	// 发送方连接订阅会话频道（首条消息时还没订过）
	channel := SessionChannel(session.ID)
	if conn != nil {
		r.router.Join(conn, channel)
	}

	payload := MessagePayload{
		SessionID: session.ID,
		MessageID: m.ID,
		Sender:    sender,
		Content:   m.Content,
		Type:      m.Type,
		Timestamp: m.Timestamp,
	}
	if suppressEcho && conn != nil {
		r.router.PublishExcept(channel, conn.ID(), Event{Event: EventMessage, Data: payload})
		if err := conn.SendEvent(Event{
			Event: EventMessageSent,
			Data: MessageSentPayload{
				SessionID: session.ID,
				MessageID: m.ID,
				Timestamp: m.Timestamp,
			},
		}); err != nil && r.logger != nil {
			r.logger.Warnf("chat relay: ack to sender %s failed: %v", sender.ID, err)
		}
	} else {
		r.router.Publish(channel, Event{Event: EventMessage, Data: payload})
	}

	// 顾客消息单独提醒客服频道：即使回显被抑制，客服也不会漏看
	if !sender.IsAgent() {
		preview := m.Content
		if len(preview) > 128 {
			preview = preview[:128]
		}
		r.router.Publish(ChannelAgents, Event{
			Event: EventCustomerMessage,
			Data: CustomerMessagePayload{
				SessionID: session.ID,
				MessageID: m.ID,
				Sender:    sender,
				Preview:   preview,
				Timestamp: m.Timestamp,
			},
		})
		r.bumpUnread(session.ID)

		// 没有客服在线时补一条后台通知，上线后能在通知中心看到
		if r.notify != nil && r.presence != nil && len(r.presence.ListOnlineAgents()) == 0 {
			if err := r.notify.NotifyCustomerMessage(ctx, session.ID, m); err != nil && r.logger != nil {
				r.logger.Warnf("chat relay: offline notify for %s failed: %v", session.ID, err)
			}
		}
	}
	return m, nil
}

func (r *MessageRelay) bumpUnread(sessionID string) {
	if r.redis == nil {
		return
	}
	if err := r.redis.Do(radix.Cmd(nil, "INCR", redisUnreadKey+sessionID)); err != nil && r.logger != nil {
		r.logger.Warnf("chat relay: bump unread %s failed: %v", sessionID, err)
	}
}

// ResetUnread 清零未读计数（已读回执后调用）
func (r *MessageRelay) ResetUnread(sessionID string) {
	if r.redis == nil {
		return
	}
	if err := r.redis.Do(radix.Cmd(nil, "DEL", redisUnreadKey+sessionID)); err != nil && r.logger != nil {
		r.logger.Warnf("chat relay: reset unread %s failed: %v", sessionID, err)
	}
}

// UnreadCount 会话未读数
func (r *MessageRelay) UnreadCount(sessionID string) int64 {
	if r.redis == nil {
		return 0
	}
	var n int64
	if err := r.redis.Do(radix.Cmd(&n, "GET", redisUnreadKey+sessionID)); err != nil {
		return 0
	}
	return n
}
