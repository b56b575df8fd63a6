package chat

import (
	"sync"
	"time"
)

// Monitor 中继运行指标，后台看板展示用
type Monitor struct {
	mu sync.RWMutex

	// 错误统计
	StoreErrors    int64
	DeliveryErrors int64
	NotifyErrors   int64

	// 流量统计
	Connections    int64
	Disconnections int64
	MessagesSent   int64
	SessionsOpened int64

	LastStoreError time.Time
	LastMessageAt  time.Time
}

var globalMonitor = &Monitor{}

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

// RecordConnect 记录连接接入
func (m *Monitor) RecordConnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Connections++
}

// RecordDisconnect 记录连接退出
func (m *Monitor) RecordDisconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Disconnections++
}

// RecordMessage 记录成功中继的消息
func (m *Monitor) RecordMessage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSent++
	m.LastMessageAt = time.Now()
}

// RecordSessionOpened 记录新建会话
func (m *Monitor) RecordSessionOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsOpened++
}

// RecordStoreError 记录持久化错误
func (m *Monitor) RecordStoreError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoreErrors++
	m.LastStoreError = time.Now()
}

// RecordDeliveryError 记录单连接投递失败
func (m *Monitor) RecordDeliveryError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliveryErrors++
}

// RecordNotifyError 记录通知发布失败
func (m *Monitor) RecordNotifyError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyErrors++
}

// GetStats 获取统计信息
func (m *Monitor) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]interface{}{
		"errors": map[string]interface{}{
			"store":    m.StoreErrors,
			"delivery": m.DeliveryErrors,
			"notify":   m.NotifyErrors,
		},
		"traffic": map[string]interface{}{
			"connections":     m.Connections,
			"disconnections":  m.Disconnections,
			"messages_sent":   m.MessagesSent,
			"sessions_opened": m.SessionsOpened,
		},
		"last_events": map[string]interface{}{
			"store_error": m.LastStoreError,
			"message_at":  m.LastMessageAt,
		},
	}
}

// Reset 重置统计（测试用）
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoreErrors = 0
	m.DeliveryErrors = 0
	m.NotifyErrors = 0
	m.Connections = 0
	m.Disconnections = 0
	m.MessagesSent = 0
	m.SessionsOpened = 0
}
