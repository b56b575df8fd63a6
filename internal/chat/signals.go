package chat

import (
	"context"
	"time"

	"github.com/kataras/golog"

	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

// SignalChannel 瞬时信号：输入状态与已读回执
// 两者都尽力而为。输入状态完全不落库；
// 已读回执先尝试推进投递状态，失败只记日志、广播照发——
// 这里宁可状态陈旧也不能卡住界面信号
type SignalChannel struct {
	store  chatmodel.SessionRepository
	router *RoomRouter
	relay  *MessageRelay
	logger *golog.Logger

	storeTimeout time.Duration
}

// NewSignalChannel 创建信号通道
func NewSignalChannel(store chatmodel.SessionRepository, router *RoomRouter, relay *MessageRelay, logger *golog.Logger, storeTimeout time.Duration) *SignalChannel {
	if storeTimeout <= 0 {
		storeTimeout = 2 * time.Second
	}
	return &SignalChannel{
		store:        store,
		router:       router,
		relay:        relay,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

// Typing 输入状态：广播给会话频道里除发送者之外的订阅者，不持久化
func (s *SignalChannel) Typing(identity chatmodel.Participant, connID, sessionID string, isTyping bool) {
	if sessionID == "" {
		return
	}
	s.router.PublishExcept(SessionChannel(sessionID), connID, Event{
		Event: EventTypingStatus,
		Data: TypingPayload{
			SessionID:     sessionID,
			IsTyping:      isTyping,
			ParticipantID: identity.ID,
			Name:          identity.DisplayName,
		},
	})
}

// ReadReceipt 已读回执：投递状态只向前推进，重复回执是无害的空操作
func (s *SignalChannel) ReadReceipt(ctx context.Context, identity chatmodel.Participant, connID, sessionID string, messageIDs []string) {
	if sessionID == "" || len(messageIDs) == 0 {
		return
	}
	readAt := time.Now()

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	updated, err := s.store.MarkMessagesRead(storeCtx, sessionID, messageIDs, readAt)
	cancel()
	if err != nil && s.logger != nil {
		s.logger.Warnf("chat signals: mark read in %s failed: %v", sessionID, err)
	}
	if updated > 0 && s.relay != nil {
		s.relay.ResetUnread(sessionID)
	}

	s.router.PublishExcept(SessionChannel(sessionID), connID, Event{
		Event: EventReadReceiptAck,
		Data: ReadReceiptBroadcast{
			SessionID:     sessionID,
			MessageIDs:    messageIDs,
			ParticipantID: identity.ID,
			ReadAt:        readAt,
		},
	})
}
