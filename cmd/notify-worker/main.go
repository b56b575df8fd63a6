package main

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/khalildhmine/fmbq-sub002/internal/chat"
	"github.com/khalildhmine/fmbq-sub002/internal/config"
	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/notification"
	"github.com/khalildhmine/fmbq-sub002/internal/infra/mq"
	"github.com/khalildhmine/fmbq-sub002/internal/repository/mysql"
)

// notify-worker 消费 chat_notify 队列，把聊天侧的提醒落成后台通知
// 落库失败的消息重新入队，格式错误的消息直接丢弃
func main() {
	cfg := config.Load()

	db := mysql.Init(&cfg.MySQL)
	mqConn := mq.Init(&cfg.RabbitMQ)
	repo := mysql.NewNotificationRepository(db)

	ch, err := mqConn.Channel()
	if err != nil {
		log.Fatalf("failed to open channel: %v", err)
	}
	defer ch.Close()

	queue := cfg.RabbitMQ.NotifyQueue
	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		log.Fatalf("failed to declare queue: %v", err)
	}

	// 手动确认模式（auto-ack=false）
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	log.Println("notify worker started, waiting for messages...")

	for d := range msgs {
		var ev chat.NotifyEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			log.Printf("invalid message: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		handleEvent(context.Background(), repo, &ev, d)
	}
}

func handleEvent(ctx context.Context, repo notification.Repository, ev *chat.NotifyEvent, d amqp.Delivery) {
	n := &notification.Notification{
		Type:      ev.Type,
		Title:     ev.Title,
		Body:      ev.Body,
		SessionID: ev.SessionID,
	}
	if err := repo.Create(ctx, n); err != nil {
		log.Printf("create notification failed: %v", err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}
