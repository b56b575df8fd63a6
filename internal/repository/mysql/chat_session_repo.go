package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

const lastMessageSummaryLen = 256

type chatSessionRepo struct {
	db *gorm.DB
}

// NewChatSessionRepository 创建聊天会话存储适配器
// 历史字段归一（sender_id / user_id / room_key）只发生在这一层，
// 上层业务只见规范的 participant_id
func NewChatSessionRepository(db *gorm.DB) chat.SessionRepository {
	return &chatSessionRepo{db: db}
}

func (r *chatSessionRepo) CreateSession(ctx context.Context, s *chat.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = chat.StatusNew
	}
	if s.LastActivityAt.IsZero() {
		s.LastActivityAt = time.Now()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(s).Error; err != nil {
			return err
		}
		for _, p := range s.Participants {
			row := chat.SessionParticipant{
				SessionID:     s.ID,
				ParticipantID: p.ID,
				DisplayName:   p.DisplayName,
				Role:          p.Role,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *chatSessionRepo) GetSession(ctx context.Context, id string) (*chat.Session, error) {
	var s chat.Session
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, chat.ErrSessionNotFound
		}
		return nil, err
	}
	if err := r.hydrate(ctx, &s, true); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *chatSessionRepo) FindOpenByParticipant(ctx context.Context, participantID string) (*chat.Session, error) {
	list, err := r.RecentOpenByParticipant(ctx, participantID, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (r *chatSessionRepo) RecentOpenByParticipant(ctx context.Context, participantID string, limit int) ([]*chat.Session, error) {
	if limit <= 0 {
		limit = 5
	}
	// 参与者可能记录在任意一个历史列下
	sub := r.db.WithContext(ctx).
		Model(&chat.SessionParticipant{}).
		Select("session_id").
		Where("participant_id = ? OR sender_id = ? OR user_id = ? OR room_key = ?",
			participantID, participantID, participantID, participantID)

	var sessions []*chat.Session
	if err := r.db.WithContext(ctx).
		Where("id IN (?) AND status <> ?", sub, chat.StatusClosed).
		Order("last_activity_at DESC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	for _, s := range sessions {
		if err := r.hydrate(ctx, s, true); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

func (r *chatSessionRepo) AppendMessage(ctx context.Context, sessionID string, m *chat.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s chat.Session
		if err := tx.First(&s, "id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return chat.ErrSessionNotFound
			}
			return err
		}
		if s.Status == chat.StatusClosed {
			return chat.ErrSessionClosed
		}

		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.Type == "" {
			m.Type = chat.MessageText
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now()
		}
		if m.DeliveryStatus == "" {
			m.DeliveryStatus = chat.DeliverySent
		}
		m.SessionID = sessionID
		if err := tx.Create(m).Error; err != nil {
			return err
		}

		// 同一事务里维护活跃时间和末条摘要，列表页不用再扫消息表
		summary := m.Content
		if len(summary) > lastMessageSummaryLen {
			summary = summary[:lastMessageSummaryLen]
		}
		updates := map[string]interface{}{
			"last_activity_at":     m.Timestamp,
			"last_message_content": summary,
			"last_message_role":    m.Sender.Role,
			"last_message_at":      m.Timestamp,
		}
		// 客服首次回复即把会话推进到 active
		if m.Sender.Role == chat.RoleAgent && (s.Status == chat.StatusNew || s.Status == chat.StatusPending) {
			updates["status"] = chat.StatusActive
		}
		if err := tx.Model(&chat.Session{}).Where("id = ?", sessionID).Updates(updates).Error; err != nil {
			return err
		}

		// 发送方不在成员表里则补一条规范记录（客服加入会话的场景）
		var n int64
		if err := tx.Model(&chat.SessionParticipant{}).
			Where("session_id = ? AND (participant_id = ? OR sender_id = ? OR user_id = ? OR room_key = ?)",
				sessionID, m.Sender.ID, m.Sender.ID, m.Sender.ID, m.Sender.ID).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 && m.Sender.ID != "" {
			row := chat.SessionParticipant{
				SessionID:     sessionID,
				ParticipantID: m.Sender.ID,
				DisplayName:   m.Sender.DisplayName,
				Role:          m.Sender.Role,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkMessagesRead 只向前推进：已读的消息不会被改写，重复调用是无害的
func (r *chatSessionRepo) MarkMessagesRead(ctx context.Context, sessionID string, messageIDs []string, readAt time.Time) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&chat.Message{}).
		Where("session_id = ? AND id IN ? AND delivery_status <> ?", sessionID, messageIDs, chat.DeliveryRead).
		Updates(map[string]interface{}{
			"delivery_status": chat.DeliveryRead,
			"read_at":         readAt,
		})
	return res.RowsAffected, res.Error
}

func (r *chatSessionRepo) UpdateStatus(ctx context.Context, sessionID, status string) error {
	var s chat.Session
	if err := r.db.WithContext(ctx).First(&s, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.ErrSessionNotFound
		}
		return err
	}
	if s.Status == chat.StatusClosed {
		if status == chat.StatusClosed {
			return nil
		}
		return chat.ErrSessionClosed
	}
	return r.db.WithContext(ctx).
		Model(&chat.Session{}).
		Where("id = ? AND status <> ?", sessionID, chat.StatusClosed).
		Update("status", status).Error
}

func (r *chatSessionRepo) ListByStatus(ctx context.Context, status string, limit int) ([]*chat.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	q := r.db.WithContext(ctx).Model(&chat.Session{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var sessions []*chat.Session
	if err := q.Order("last_activity_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, err
	}
	// 列表页靠摘要字段展示，不带消息体
	for _, s := range sessions {
		if err := r.hydrate(ctx, s, false); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

func (r *chatSessionRepo) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&chat.Session{}).
		Where("status <> ?", chat.StatusClosed).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// hydrate 装配参与者（历史列折算成规范 ID），withMessages 时附带全部消息
func (r *chatSessionRepo) hydrate(ctx context.Context, s *chat.Session, withMessages bool) error {
	var rows []chat.SessionParticipant
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", s.ID).
		Order("row_id ASC").
		Find(&rows).Error; err != nil {
		return err
	}
	s.Participants = s.Participants[:0]
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		id := row.CanonicalID()
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		role := row.Role
		if role == "" {
			role = chat.RoleCustomer
		}
		s.Participants = append(s.Participants, chat.Participant{
			ID:          id,
			DisplayName: row.DisplayName,
			Role:        role,
		})
	}

	if !withMessages {
		return nil
	}
	var msgs []chat.Message
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", s.ID).
		Order("timestamp ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return err
	}
	s.Messages = msgs
	return nil
}
