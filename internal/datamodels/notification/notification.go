package notification

import (
	"context"
	"time"
)

// 通知类型
const (
	TypeNewChatSession  = "new_chat_session"
	TypeCustomerMessage = "customer_message"
	TypeSystem          = "system"
)

// Notification 后台通知（客服离线时的新会话/新消息提醒等）
type Notification struct {
	ID        int64     `gorm:"primaryKey"`
	Type      string    `gorm:"size:32;index;not null"`
	Title     string    `gorm:"size:128;not null"`
	Body      string    `gorm:"size:512"`
	SessionID string    `gorm:"size:36;index"` // 关联的聊天会话，可为空
	Read      bool      `gorm:"index"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// Repository 通知仓储接口
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListRecent(ctx context.Context, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, ids []int64) error
	MarkAllRead(ctx context.Context) error
}
