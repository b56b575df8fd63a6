package chat

import (
	"context"
	"sync"
	"time"

	"github.com/kataras/golog"

	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

// SessionResolver 把参与者身份解析到唯一的未关闭会话
// 同一参与者的解析串行执行：两条连接同时重连也只会建出一个会话，
// 查找-创建之间的竞态窗口由按参与者粒度的锁关死
type SessionResolver struct {
	store  chatmodel.SessionRepository
	router *RoomRouter
	notify Notifier
	logger *golog.Logger

	mu    sync.Mutex
	locks map[string]*participantLock
}

type participantLock struct {
	sync.Mutex
	refs int
}

// NewSessionResolver 创建解析器。notify 可为 nil（不发后台通知）
func NewSessionResolver(store chatmodel.SessionRepository, router *RoomRouter, notify Notifier, logger *golog.Logger) *SessionResolver {
	return &SessionResolver{
		store:  store,
		router: router,
		notify: notify,
		logger: logger,
		locks:  make(map[string]*participantLock),
	}
}

// ResolveOrCreate 找到该参与者最近活跃的未关闭会话，没有则恰好创建一个
// 返回的 created 表示本次调用是否新建了会话。
// 紧接着的重复调用必然返回同一个会话 ID
func (r *SessionResolver) ResolveOrCreate(ctx context.Context, identity chatmodel.Participant) (*chatmodel.Session, bool, error) {
	lock := r.acquire(identity.ID)
	defer r.release(identity.ID, lock)

	existing, err := r.store.FindOpenByParticipant(ctx, identity.ID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		// 历史数据里可能残留同一参与者的重复会话，
		// 存储层按活跃时间倒序返回，这里始终沿用最近的那个
		if r.logger != nil {
			r.logger.Infof("chat resolver: reuse session %s for %s", existing.ID, identity.ID)
		}
		return existing, false, nil
	}

	s := &chatmodel.Session{
		Status:         chatmodel.StatusNew,
		Participants:   []chatmodel.Participant{identity},
		LastActivityAt: time.Now(),
	}
	if err := r.store.CreateSession(ctx, s); err != nil {
		return nil, false, err
	}
	GetMonitor().RecordSessionOpened()
	if r.logger != nil {
		r.logger.Infof("chat resolver: new session %s for %s (%s)", s.ID, identity.ID, identity.Role)
	}

	// 新会话推给客服频道，离线场景再补一条后台通知
	if r.router != nil {
		r.router.Publish(ChannelAgents, Event{
			Event: EventNewSession,
			Data: NewSessionPayload{
				SessionID: s.ID,
				Customer:  identity,
				Status:    s.Status,
				Timestamp: s.LastActivityAt,
			},
		})
	}
	if r.notify != nil {
		if err := r.notify.NotifyNewSession(ctx, s, identity); err != nil {
			GetMonitor().RecordNotifyError()
			if r.logger != nil {
				r.logger.Warnf("chat resolver: notify new session %s failed: %v", s.ID, err)
			}
		}
	}
	return s, true, nil
}

func (r *SessionResolver) acquire(participantID string) *participantLock {
	r.mu.Lock()
	l, ok := r.locks[participantID]
	if !ok {
		l = &participantLock{}
		r.locks[participantID] = l
	}
	l.refs++
	r.mu.Unlock()
	l.Lock()
	return l
}

func (r *SessionResolver) release(participantID string, l *participantLock) {
	l.Unlock()
	r.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, participantID)
	}
	r.mu.Unlock()
}
