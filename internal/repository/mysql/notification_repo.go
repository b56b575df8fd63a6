package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/notification"
)

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *gorm.DB) notification.Repository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) ListRecent(ctx context.Context, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var list []*notification.Notification
	if err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *notificationRepo) CountUnread(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&notification.Notification{}).
		Where("`read` = ?", false).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&notification.Notification{}).
		Where("id IN ?", ids).
		Update("read", true).Error
}

func (r *notificationRepo) MarkAllRead(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&notification.Notification{}).
		Where("`read` = ?", false).
		Update("read", true).Error
}
