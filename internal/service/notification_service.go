package service

import (
	"context"

	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/notification"
)

type NotificationService struct {
	repo notification.Repository
}

func NewNotificationService(repo notification.Repository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) Create(ctx context.Context, n *notification.Notification) error {
	return s.repo.Create(ctx, n)
}

func (s *NotificationService) ListRecent(ctx context.Context, limit int) ([]*notification.Notification, error) {
	return s.repo.ListRecent(ctx, limit)
}

func (s *NotificationService) CountUnread(ctx context.Context) (int64, error) {
	return s.repo.CountUnread(ctx)
}

func (s *NotificationService) MarkRead(ctx context.Context, ids []int64) error {
	return s.repo.MarkRead(ctx, ids)
}

func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	return s.repo.MarkAllRead(ctx)
}
