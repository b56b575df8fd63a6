package chat

import (
	"context"
	"time"

	"github.com/kataras/golog"
)

// PresenceBroadcaster 定时把完整的在线客服名单广播给所有连接
// 边沿事件可能因为连接建立瞬间的竞态丢失，周期全量广播兜底，
// 最终一致以它为准
type PresenceBroadcaster struct {
	presence *PresenceRegistry
	router   *RoomRouter
	interval time.Duration
	logger   *golog.Logger
}

// NewPresenceBroadcaster 创建广播器
func NewPresenceBroadcaster(presence *PresenceRegistry, router *RoomRouter, interval time.Duration, logger *golog.Logger) *PresenceBroadcaster {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PresenceBroadcaster{
		presence: presence,
		router:   router,
		interval: interval,
		logger:   logger,
	}
}

// Run 周期广播，ctx 取消即退出。应在独立 goroutine 里调用
func (b *PresenceBroadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.router.PublishAll(Event{Event: EventAgentRoster, Data: b.Roster()})
		}
	}
}

// Roster 构建当前名单
func (b *PresenceBroadcaster) Roster() AgentRosterPayload {
	agents := b.presence.ListOnlineAgents()
	infos := make([]AgentInfo, 0, len(agents))
	for _, a := range agents {
		infos = append(infos, AgentInfo{ID: a.ID, Name: a.DisplayName})
	}
	return AgentRosterPayload{Agents: infos, Count: len(infos)}
}

// SnapshotFor 给单条连接立即下发名单快照，新连接不必等下一个周期
func (b *PresenceBroadcaster) SnapshotFor(conn Sender) {
	if err := conn.SendEvent(Event{Event: EventAgentRoster, Data: b.Roster()}); err != nil && b.logger != nil {
		b.logger.Warnf("chat broadcaster: snapshot to %s failed: %v", conn.ID(), err)
	}
}
