package chat

import (
	"context"
	"errors"
	"time"
)

// 参与者角色
const (
	RoleAgent    = "agent"
	RoleCustomer = "customer"
	RoleGuest    = "guest"
)

// 会话状态机：new -> active -> closed（closed 为终态，不可逆）
// pending 与 new 等价，兼容早期数据
const (
	StatusNew     = "new"
	StatusPending = "pending"
	StatusActive  = "active"
	StatusClosed  = "closed"
)

// 消息投递状态，只允许向前推进：sent -> delivered -> read
const (
	DeliverySent      = "sent"
	DeliveryDelivered = "delivered"
	DeliveryRead      = "read"
)

// 消息类型
const (
	MessageText   = "text"
	MessageSystem = "system"
)

var (
	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("chat: session not found")
	// ErrSessionClosed 会话已关闭，禁止继续写入
	ErrSessionClosed = errors.New("chat: session closed")
)

// Participant 会话参与者。身份由连接鉴权层给出，不单独落库
type Participant struct {
	ID          string `json:"id" gorm:"column:id;size:64"`
	DisplayName string `json:"name" gorm:"column:display_name;size:64"`
	Role        string `json:"role" gorm:"column:role;size:16"`
}

// IsAgent 是否客服身份
func (p Participant) IsAgent() bool { return p.Role == RoleAgent }

// Message 聊天消息。创建后内容与发送者不可变，仅投递状态可向前推进
type Message struct {
	ID             string      `json:"id" gorm:"primaryKey;size:36"`
	SessionID      string      `json:"session_id" gorm:"size:36;index;not null"`
	Sender         Participant `json:"sender" gorm:"embedded;embeddedPrefix:sender_"`
	Content        string      `json:"content" gorm:"size:2048;not null"`
	Type           string      `json:"type" gorm:"size:16;not null"` // text / system
	Timestamp      time.Time   `json:"timestamp" gorm:"index"`
	DeliveryStatus string      `json:"delivery_status" gorm:"size:16;index"`
	ReadAt         *time.Time  `json:"read_at,omitempty"`
}

// TableName 消息表
func (Message) TableName() string { return "chat_messages" }

// MessageSummary 会话列表展示用的末条消息摘要（冗余字段）
type MessageSummary struct {
	Content    string    `json:"content" gorm:"column:last_message_content;size:256"`
	SenderRole string    `json:"sender_role" gorm:"column:last_message_role;size:16"`
	Timestamp  time.Time `json:"timestamp" gorm:"column:last_message_at"`
}

// Session 一次逻辑上的客服会话
// 不变量：同一个非匿名参与者最多只有一个非 closed 会话，由 Resolver 独占维护
type Session struct {
	ID             string         `json:"id" gorm:"primaryKey;size:36"`
	Status         string         `json:"status" gorm:"size:16;index;not null"`
	Participants   []Participant  `json:"participants" gorm:"-"`
	Messages       []Message      `json:"messages,omitempty" gorm:"-"`
	LastActivityAt time.Time      `json:"last_activity_at" gorm:"index"`
	LastMessage    MessageSummary `json:"last_message" gorm:"embedded"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName 会话表
func (Session) TableName() string { return "chat_sessions" }

// Open 会话是否仍可写入
func (s *Session) Open() bool { return s.Status != StatusClosed }

// HasParticipant 参与者是否在会话中
func (s *Session) HasParticipant(id string) bool {
	for _, p := range s.Participants {
		if p.ID == id {
			return true
		}
	}
	return false
}

// SessionParticipant 会话成员的持久化记录
// sender_id / user_id / room_key 是历史版本使用过的三种参与者列，
// 读取时统一折算成 participant_id，上层只见规范字段
type SessionParticipant struct {
	RowID         uint64 `gorm:"primaryKey;autoIncrement;column:row_id"`
	SessionID     string `gorm:"size:36;index;not null"`
	ParticipantID string `gorm:"size:64;index"`
	DisplayName   string `gorm:"size:64"`
	Role          string `gorm:"size:16"`
	SenderID      string `gorm:"size:64;index"`
	UserID        string `gorm:"size:64;index"`
	RoomKey       string `gorm:"size:64;index"`
}

// TableName 会话成员表
func (SessionParticipant) TableName() string { return "chat_session_participants" }

// CanonicalID 按历史字段优先级折算出规范参与者 ID
func (sp SessionParticipant) CanonicalID() string {
	switch {
	case sp.ParticipantID != "":
		return sp.ParticipantID
	case sp.SenderID != "":
		return sp.SenderID
	case sp.UserID != "":
		return sp.UserID
	default:
		return sp.RoomKey
	}
}

// SessionRepository 会话存储适配层
// 这是整个聊天子系统唯一的持久化出入口，外部同步点
type SessionRepository interface {
	// CreateSession 创建会话并生成 ID
	CreateSession(ctx context.Context, s *Session) error
	// GetSession 返回会话及其全部消息，未找到返回 ErrSessionNotFound
	GetSession(ctx context.Context, id string) (*Session, error)
	// FindOpenByParticipant 返回该参与者最近活跃的非 closed 会话，无则返回 nil
	FindOpenByParticipant(ctx context.Context, participantID string) (*Session, error)
	// RecentOpenByParticipant 返回该参与者最近的若干个非 closed 会话（按活跃时间倒序）
	RecentOpenByParticipant(ctx context.Context, participantID string, limit int) ([]*Session, error)
	// AppendMessage 追加消息，同一次调用内更新 last_activity_at 与末条摘要
	AppendMessage(ctx context.Context, sessionID string, m *Message) error
	// MarkMessagesRead 将指定消息置为已读（只向前推进），返回实际更新条数
	MarkMessagesRead(ctx context.Context, sessionID string, messageIDs []string, readAt time.Time) (int64, error)
	// UpdateStatus 更新会话状态，closed 为终态
	UpdateStatus(ctx context.Context, sessionID, status string) error
	// ListByStatus 按状态列出会话（status 为空表示全部），按活跃时间倒序
	ListByStatus(ctx context.Context, status string, limit int) ([]*Session, error)
	// CountOpen 统计非 closed 会话数量
	CountOpen(ctx context.Context) (int64, error)
}
