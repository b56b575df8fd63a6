package chat

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/notification"
	"github.com/khalildhmine/fmbq-sub002/internal/infra/mq"
)

// Notifier 把聊天侧的事件转成后台通知
// 走 MQ 解耦：通知落库由 notify-worker 消费完成，聊天事件循环不等数据库
type Notifier interface {
	NotifyNewSession(ctx context.Context, s *chatmodel.Session, customer chatmodel.Participant) error
	NotifyCustomerMessage(ctx context.Context, sessionID string, m *chatmodel.Message) error
}

// NotifyEvent chat_notify 队列里的消息体
type NotifyEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

// AMQPNotifier 基于 RabbitMQ 的通知发布器
type AMQPNotifier struct {
	conn  *amqp.Connection
	queue string
}

// NewAMQPNotifier 创建通知发布器
func NewAMQPNotifier(conn *amqp.Connection, queue string) *AMQPNotifier {
	return &AMQPNotifier{conn: conn, queue: queue}
}

func (n *AMQPNotifier) NotifyNewSession(ctx context.Context, s *chatmodel.Session, customer chatmodel.Participant) error {
	return mq.PublishJSON(ctx, n.conn, n.queue, NotifyEvent{
		Type:      notification.TypeNewChatSession,
		SessionID: s.ID,
		Title:     "新的客服会话",
		Body:      fmt.Sprintf("%s（%s）发起了客服会话", customer.DisplayName, customer.Role),
	})
}

func (n *AMQPNotifier) NotifyCustomerMessage(ctx context.Context, sessionID string, m *chatmodel.Message) error {
	preview := m.Content
	if len(preview) > 128 {
		preview = preview[:128]
	}
	return mq.PublishJSON(ctx, n.conn, n.queue, NotifyEvent{
		Type:      notification.TypeCustomerMessage,
		SessionID: sessionID,
		Title:     fmt.Sprintf("%s 发来新消息", m.Sender.DisplayName),
		Body:      preview,
	})
}
