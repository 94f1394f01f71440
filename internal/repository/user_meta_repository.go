package repository

import (
	"context"
	"encoding/json"
	"errors"
	"learner_dashboard/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserMetaRepository 用户级键值存储，后写覆盖先写
type UserMetaRepository struct {
	DB *gorm.DB
}

func NewUserMetaRepository(db *gorm.DB) *UserMetaRepository {
	return &UserMetaRepository{DB: db}
}

// Get 读取并反序列化到 dest；键不存在时 found 为 false
func (r *UserMetaRepository) Get(ctx context.Context, userID uint, key string, dest interface{}) (bool, error) {
	var meta model.UserMeta
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND meta_key = ?", userID, key).
		First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(meta.MetaValue) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(meta.MetaValue, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *UserMetaRepository) Set(ctx context.Context, userID uint, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	meta := model.UserMeta{
		UserID:    userID,
		MetaKey:   key,
		MetaValue: raw,
		UpdatedAt: time.Now(),
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "meta_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"meta_value", "updated_at"}),
	}).Create(&meta).Error
}

func (r *UserMetaRepository) Delete(ctx context.Context, userID uint, key string) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ? AND meta_key = ?", userID, key).
		Delete(&model.UserMeta{}).Error
}
