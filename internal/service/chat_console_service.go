package service

import (
	"context"
	"time"

	"github.com/kataras/golog"

	"github.com/khalildhmine/fmbq-sub002/internal/chat"
	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

// ChatConsoleService 后台客服工作台：会话列表、详情、关闭、客服发言
// 实时分发仍由 hub 完成，这里只是把 REST 入口接到中继上
type ChatConsoleService struct {
	store  chatmodel.SessionRepository
	hub    *chat.Hub
	logger *golog.Logger
}

func NewChatConsoleService(store chatmodel.SessionRepository, hub *chat.Hub, logger *golog.Logger) *ChatConsoleService {
	return &ChatConsoleService{store: store, hub: hub, logger: logger}
}

// ListSessions 会话列表（status 为空表示全部），附带未读计数
func (s *ChatConsoleService) ListSessions(ctx context.Context, status string, limit int) ([]*chatmodel.Session, map[string]int64, error) {
	list, err := s.store.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, nil, err
	}
	unread := make(map[string]int64, len(list))
	for _, sess := range list {
		unread[sess.ID] = s.hub.Relay().UnreadCount(sess.ID)
	}
	return list, unread, nil
}

// SessionDetail 会话详情
// 客服首次查看即把会话推进到 active，并通过顾客的个人频道告知对方
func (s *ChatConsoleService) SessionDetail(ctx context.Context, sessionID string, agent chatmodel.Participant) (*chatmodel.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == chatmodel.StatusNew || sess.Status == chatmodel.StatusPending {
		if err := s.store.UpdateStatus(ctx, sessionID, chatmodel.StatusActive); err != nil {
			if s.logger != nil {
				s.logger.Warnf("chat console: activate %s failed: %v", sessionID, err)
			}
		} else {
			sess.Status = chatmodel.StatusActive
		}
	}
	for _, p := range sess.Participants {
		if p.IsAgent() {
			continue
		}
		s.hub.Router().Publish(chat.PersonalChannel(p.ID), chat.Event{
			Event: chat.EventAgentViewing,
			Data: chat.AgentViewingPayload{
				SessionID: sessionID,
				Agent:     agent,
				Timestamp: time.Now(),
			},
		})
	}
	return sess, nil
}

// AgentSend 客服在详情页发消息，复用中继的持久化与分发路径
func (s *ChatConsoleService) AgentSend(ctx context.Context, agent chatmodel.Participant, sessionID, content string) (*chatmodel.Message, error) {
	return s.hub.Relay().Send(ctx, agent, nil, sessionID, content, false)
}

// CloseSession 关闭会话（终态），并通知会话频道
func (s *ChatConsoleService) CloseSession(ctx context.Context, sessionID string) error {
	if err := s.store.UpdateStatus(ctx, sessionID, chatmodel.StatusClosed); err != nil {
		return err
	}
	s.hub.Router().Publish(chat.SessionChannel(sessionID), chat.Event{
		Event: chat.EventSessionClosed,
		Data:  chat.SessionClosedPayload{SessionID: sessionID, Timestamp: time.Now()},
	})
	return nil
}

// CountOpen 未关闭会话数（看板用）
func (s *ChatConsoleService) CountOpen(ctx context.Context) (int64, error) {
	return s.store.CountOpen(ctx)
}
