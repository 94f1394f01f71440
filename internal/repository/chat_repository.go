package repository

import (
	"context"
	"learner_dashboard/internal/model"
	"time"

	"gorm.io/gorm"
)

type ChatRepository struct {
	DB *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{DB: db}
}

func (r *ChatRepository) Create(ctx context.Context, msg *model.ChatMessage) error {
	return r.DB.WithContext(ctx).Create(msg).Error
}

// History 返回最近 limit 条消息，按时间正序
func (r *ChatRepository) History(ctx context.Context, userID uint, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// UserTextsSince 用户发送的消息文本，用于关键词统计
func (r *ChatRepository) UserTextsSince(ctx context.Context, since time.Time) ([]string, error) {
	var texts []string
	err := r.DB.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("type = ? AND created_at >= ?", model.ChatFromUser, since).
		Pluck("text", &texts).Error
	return texts, err
}

func (r *ChatRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("created_at < ?", before).Delete(&model.ChatMessage{})
	return res.RowsAffected, res.Error
}
