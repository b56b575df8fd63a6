package chat

import (
	"context"
	"sync"

	"github.com/kataras/golog"

	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

// Sender 能接收事件的连接。抽象出来便于测试，也避免路由层依赖具体传输
type Sender interface {
	ID() string
	SendEvent(e Event) error
}

// RoomRouter 逻辑频道到存活连接的多对多路由
// 订阅关系只存在内存里，连接断开即拆除，重连时重建；
// 与 PresenceRegistry 一样是可随时重建的索引，不是事实源
type RoomRouter struct {
	store       chatmodel.SessionRepository
	logger      *golog.Logger
	rejoinLimit int

	mu       sync.RWMutex
	rooms    map[string]map[string]Sender   // channel -> connID -> 连接
	channels map[string]map[string]struct{} // connID -> 已订阅频道
}

// NewRoomRouter 创建路由器。store 用于重连时找回该参与者的历史会话
func NewRoomRouter(store chatmodel.SessionRepository, logger *golog.Logger, rejoinLimit int) *RoomRouter {
	if rejoinLimit <= 0 {
		rejoinLimit = 5
	}
	return &RoomRouter{
		store:       store,
		logger:      logger,
		rejoinLimit: rejoinLimit,
		rooms:       make(map[string]map[string]Sender),
		channels:    make(map[string]map[string]struct{}),
	}
}

// Join 订阅频道（重复订阅是无害的）
func (r *RoomRouter) Join(conn Sender, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[channel]
	if !ok {
		room = make(map[string]Sender)
		r.rooms[channel] = room
	}
	room[conn.ID()] = conn

	set, ok := r.channels[conn.ID()]
	if !ok {
		set = make(map[string]struct{})
		r.channels[conn.ID()] = set
	}
	set[channel] = struct{}{}
}

// Leave 退订频道
func (r *RoomRouter) Leave(connID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, channel)
}

// LeaveAll 连接断开时拆除它的全部订阅
func (r *RoomRouter) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for channel := range r.channels[connID] {
		r.leaveLocked(connID, channel)
	}
	delete(r.channels, connID)
}

func (r *RoomRouter) leaveLocked(connID, channel string) {
	if room, ok := r.rooms[channel]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(r.rooms, channel)
		}
	}
	if set, ok := r.channels[connID]; ok {
		delete(set, channel)
	}
}

// Publish 向频道的所有订阅者广播
// 单个连接投递失败只记日志，不影响其余订阅者
func (r *RoomRouter) Publish(channel string, e Event) {
	r.PublishExcept(channel, "", e)
}

// PublishExcept 广播但跳过指定连接（回显抑制、输入状态都用它）
func (r *RoomRouter) PublishExcept(channel, exceptConnID string, e Event) {
	r.mu.RLock()
	room := r.rooms[channel]
	targets := make([]Sender, 0, len(room))
	for id, conn := range room {
		if id == exceptConnID {
			continue
		}
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	// 投递放在锁外，慢连接不会阻塞路由表
	for _, conn := range targets {
		if err := conn.SendEvent(e); err != nil {
			GetMonitor().RecordDeliveryError()
			if r.logger != nil {
				r.logger.Warnf("chat router: deliver %s to %s failed: %v", e.Event, conn.ID(), err)
			}
		}
	}
}

// PublishAll 向所有存活连接广播（在线名单、上下线事件）
func (r *RoomRouter) PublishAll(e Event) {
	r.PublishAllExcept("", e)
}

// PublishAllExcept 全量广播但跳过指定连接
func (r *RoomRouter) PublishAllExcept(exceptConnID string, e Event) {
	r.mu.RLock()
	seen := make(map[string]Sender)
	for _, room := range r.rooms {
		for id, conn := range room {
			if id == exceptConnID {
				continue
			}
			seen[id] = conn
		}
	}
	r.mu.RUnlock()

	for _, conn := range seen {
		if err := conn.SendEvent(e); err != nil {
			GetMonitor().RecordDeliveryError()
			if r.logger != nil {
				r.logger.Warnf("chat router: deliver %s to %s failed: %v", e.Event, conn.ID(), err)
			}
		}
	}
}

// Subscribers 频道当前订阅数
func (r *RoomRouter) Subscribers(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[channel])
}

// RejoinKnownChannels 重连恢复：
// 找回该参与者最近的若干个未关闭会话，重新订阅各自的会话频道，
// 并把最近一个会话的完整消息单发给这条连接（不广播），
// 客户端无需再发一次历史拉取请求。返回最近会话（可能为 nil）
func (r *RoomRouter) RejoinKnownChannels(ctx context.Context, conn Sender, identity chatmodel.Participant) (*chatmodel.Session, error) {
	sessions, err := r.store.RecentOpenByParticipant(ctx, identity.ID, r.rejoinLimit)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	for _, s := range sessions {
		r.Join(conn, SessionChannel(s.ID))
	}

	latest := sessions[0]
	err = conn.SendEvent(Event{
		Event: EventExistingSession,
		Data: ExistingSessionPayload{
			SessionID: latest.ID,
			Messages:  latest.Messages,
			Status:    latest.Status,
			IsActive:  latest.Status == chatmodel.StatusActive,
		},
	})
	if err != nil && r.logger != nil {
		r.logger.Warnf("chat router: resume session %s for %s failed: %v", latest.ID, identity.ID, err)
	}
	return latest, nil
}
