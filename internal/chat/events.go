package chat

import (
	"encoding/json"
	"time"

	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

// 事件协议：每条 WebSocket 消息都是 {event, data} 信封
// 字段名是对外契约，前端（商城 H5 与后台客服面板）都依赖它们，不可随意改名
const (
	// server -> client
	EventConnectionStatus = "connection_status"
	EventAgentRoster      = "agent_roster"
	EventExistingSession  = "existing_session"
	EventMessage          = "message"
	EventMessageSent      = "message_sent"
	EventAgentStatus      = "agent_status"
	EventNewSession       = "new_session"
	EventCustomerMessage  = "customer_message"
	EventTypingStatus     = "typing_status"
	EventReadReceiptAck   = "messages_read"
	EventAgentViewing     = "agent_viewing"
	EventSessionClosed    = "session_closed"
	EventError            = "error"

	// client -> server
	EventJoinSupportRoom = "join_support_room"
	EventSendMessage     = "send_message"
	EventTyping          = "typing"
	EventReadReceipt     = "read_receipt"
)

// Event 事件信封
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// InboundEvent 入站信封，payload 延迟解析
type InboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ConnectionStatusPayload 连接建立后下发一次
type ConnectionStatusPayload struct {
	Connected     bool   `json:"connected"`
	ParticipantID string `json:"participantId"`
	Role          string `json:"role"`
	AgentOnline   bool   `json:"agentOnline"`
	AgentCount    int    `json:"agentCount"`
}

// AgentInfo 在线客服条目
type AgentInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AgentRosterPayload 在线客服名单（定时广播 + 按需快照）
type AgentRosterPayload struct {
	Agents []AgentInfo `json:"agents"`
	Count  int         `json:"count"`
}

// AgentStatusPayload 客服上下线的边沿事件
type AgentStatusPayload struct {
	Online    bool      `json:"online"`
	AgentID   string    `json:"agentId"`
	Timestamp time.Time `json:"timestamp"`
}

// JoinSupportRoomPayload 顾客请求接入客服
type JoinSupportRoomPayload struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	Email         string `json:"email"`
}

// ExistingSessionPayload 重连后恢复会话现场
type ExistingSessionPayload struct {
	SessionID string              `json:"sessionId"`
	Messages  []chatmodel.Message `json:"messages"`
	Status    string              `json:"status"`
	IsActive  bool                `json:"isActive"`
}

// SendMessagePayload 发送消息请求
type SendMessagePayload struct {
	SessionID            string `json:"sessionId"`
	Content              string `json:"content"`
	SuppressEchoToSender bool   `json:"suppressEchoToSender"`
}

// MessagePayload 广播给会话订阅者的消息
type MessagePayload struct {
	SessionID string                `json:"sessionId"`
	MessageID string                `json:"messageId"`
	Sender    chatmodel.Participant `json:"sender"`
	Content   string                `json:"content"`
	Type      string                `json:"type"`
	Timestamp time.Time             `json:"timestamp"`
}

// MessageSentPayload 抑制回显时给发送方的轻量确认
type MessageSentPayload struct {
	SessionID string    `json:"sessionId"`
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSessionPayload 新会话通知（发往客服频道）
type NewSessionPayload struct {
	SessionID string                `json:"sessionId"`
	Customer  chatmodel.Participant `json:"customer"`
	Status    string                `json:"status"`
	Timestamp time.Time             `json:"timestamp"`
}

// CustomerMessagePayload 顾客新消息提醒（发往客服频道，回显抑制也不影响它）
type CustomerMessagePayload struct {
	SessionID string                `json:"sessionId"`
	MessageID string                `json:"messageId"`
	Sender    chatmodel.Participant `json:"sender"`
	Preview   string                `json:"preview"`
	Timestamp time.Time             `json:"timestamp"`
}

// TypingPayload 输入状态信号（入站只有 sessionId/isTyping，广播时补上发送者）
type TypingPayload struct {
	SessionID     string `json:"sessionId"`
	IsTyping      bool   `json:"isTyping"`
	ParticipantID string `json:"participantId,omitempty"`
	Name          string `json:"name,omitempty"`
}

// ReadReceiptPayload 已读回执
type ReadReceiptPayload struct {
	SessionID  string   `json:"sessionId"`
	MessageIDs []string `json:"messageIds"`
}

// ReadReceiptBroadcast 广播给会话其他订阅者的已读事件
type ReadReceiptBroadcast struct {
	SessionID     string    `json:"sessionId"`
	MessageIDs    []string  `json:"messageIds"`
	ParticipantID string    `json:"participantId"`
	ReadAt        time.Time `json:"readAt"`
}

// AgentViewingPayload 客服正在查看会话（发往顾客个人频道）
type AgentViewingPayload struct {
	SessionID string                `json:"sessionId"`
	Agent     chatmodel.Participant `json:"agent"`
	Timestamp time.Time             `json:"timestamp"`
}

// SessionClosedPayload 会话被关闭
type SessionClosedPayload struct {
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorPayload 只发给操作发起方的错误事件
type ErrorPayload struct {
	Op      string `json:"op"`
	Message string `json:"message"`
}

// 逻辑频道：与物理连接解耦的广播组
const ChannelAgents = "agents"

// PersonalChannel 参与者个人频道
func PersonalChannel(participantID string) string { return "user:" + participantID }

// SessionChannel 会话频道
func SessionChannel(sessionID string) string { return "session:" + sessionID }
