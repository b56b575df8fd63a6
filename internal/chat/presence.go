package chat

import (
	"sync"
	"time"

	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

// PresenceRecord 单条连接的在线记录，生命周期与物理连接一致，不落库
type PresenceRecord struct {
	Participant    chatmodel.Participant
	ConnID         string
	LastActivityAt time.Time
}

// agentEntry 每个客服身份只保留一条名单记录，连接 ID 后写者胜出
type agentEntry struct {
	participant chatmodel.Participant
	connID      string
}

// PresenceRegistry 在线状态登记表
// 进程内缓存，可随时重建：重启后清空，连接重连时自然回填。
// 所有访问都走带锁方法，外部拿不到内部 map
type PresenceRegistry struct {
	mu     sync.RWMutex
	conns  map[string]*PresenceRecord       // connID -> 记录
	byPart map[string]map[string]struct{}   // participantID -> 活跃 connID 集合
	agents map[string]agentEntry            // agentID -> 名单记录
}

// NewPresenceRegistry 创建登记表
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		conns:  make(map[string]*PresenceRecord),
		byPart: make(map[string]map[string]struct{}),
		agents: make(map[string]agentEntry),
	}
}

// MarkOnline 登记一条连接
// 返回值表示该客服身份是否发生了 离线->在线 的边沿跳变：
// 同一身份的多个标签页重复上线只会在第一次返回 true，不会反复触发广播
func (r *PresenceRegistry) MarkOnline(p chatmodel.Participant, connID string) (agentCameOnline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[connID] = &PresenceRecord{
		Participant:    p,
		ConnID:         connID,
		LastActivityAt: time.Now(),
	}
	set, ok := r.byPart[p.ID]
	if !ok {
		set = make(map[string]struct{})
		r.byPart[p.ID] = set
	}
	set[connID] = struct{}{}

	if p.Role != chatmodel.RoleAgent {
		return false
	}
	_, present := r.agents[p.ID]
	r.agents[p.ID] = agentEntry{participant: p, connID: connID}
	return !present
}

// MarkOffline 注销一条连接
// 若注销的是该客服当前记录的连接且没有其它存活连接，触发 在线->离线 边沿
func (r *PresenceRegistry) MarkOffline(connID string) (p chatmodel.Participant, agentWentOffline bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.conns[connID]
	if !ok {
		return chatmodel.Participant{}, false, false
	}
	delete(r.conns, connID)
	p = rec.Participant

	if set, ok := r.byPart[p.ID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.byPart, p.ID)
		}
	}

	if p.Role != chatmodel.RoleAgent {
		return p, false, true
	}
	entry, present := r.agents[p.ID]
	if !present {
		return p, false, true
	}
	survivors := r.byPart[p.ID]
	if len(survivors) > 0 {
		// 还有其它标签页存活：把名单记录指向任意一个存活连接，不触发离线
		if entry.connID == connID {
			for cid := range survivors {
				entry.connID = cid
				break
			}
			r.agents[p.ID] = entry
		}
		return p, false, true
	}
	delete(r.agents, p.ID)
	return p, true, true
}

// Touch 刷新活跃时间（心跳回包时调用）
func (r *PresenceRegistry) Touch(connID string) {
	r.mu.Lock()
	if rec, ok := r.conns[connID]; ok {
		rec.LastActivityAt = time.Now()
	}
	r.mu.Unlock()
}

// ListOnlineAgents 当前在线客服名单
func (r *PresenceRegistry) ListOnlineAgents() []chatmodel.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]chatmodel.Participant, 0, len(r.agents))
	for _, e := range r.agents {
		out = append(out, e.participant)
	}
	return out
}

// IsOnline 参与者是否有存活连接
func (r *PresenceRegistry) IsOnline(participantID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPart[participantID]) > 0
}

// ConnCount 活跃连接总数
func (r *PresenceRegistry) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
