package repository

import (
	"context"
	"learner_dashboard/internal/model"
	"time"

	"gorm.io/gorm"
)

// EventRepository 事件日志，只追加写入
type EventRepository struct {
	DB *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{DB: db}
}

func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.DB.WithContext(ctx).Create(event).Error
}

func (r *EventRepository) window(ctx context.Context, userID uint, types []model.EventType, since, until time.Time) *gorm.DB {
	q := r.DB.WithContext(ctx).Model(&model.Event{}).
		Where("user_id = ? AND occurred_at >= ? AND occurred_at <= ?", userID, since, until)
	if len(types) > 0 {
		q = q.Where("event_type IN ?", model.EventTypeStrings(types))
	}
	return q
}

// Query 按插入顺序返回窗口内的事件
func (r *EventRepository) Query(ctx context.Context, userID uint, types []model.EventType, since, until time.Time) ([]model.Event, error) {
	var events []model.Event
	err := r.window(ctx, userID, types, since, until).Order("id ASC").Find(&events).Error
	return events, err
}

func (r *EventRepository) Count(ctx context.Context, userID uint, types []model.EventType, since, until time.Time) (int, error) {
	var count int64
	err := r.window(ctx, userID, types, since, until).Count(&count).Error
	return int(count), err
}

// LastOccurrence 返回最近一次事件时间，没有事件时返回零值
func (r *EventRepository) LastOccurrence(ctx context.Context, userID uint, types []model.EventType) (time.Time, error) {
	var event model.Event
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if len(types) > 0 {
		q = q.Where("event_type IN ?", model.EventTypeStrings(types))
	}
	err := q.Order("occurred_at DESC").Limit(1).Find(&event).Error
	if err != nil {
		return time.Time{}, err
	}
	return event.OccurredAt, nil
}

type userCount struct {
	UserID uint
	Total  int
}

// CountByUser 对所有用户按类型计数（用于批量排名）
func (r *EventRepository) CountByUser(ctx context.Context, types []model.EventType, since time.Time) (map[uint]int, error) {
	var rows []userCount
	q := r.DB.WithContext(ctx).Model(&model.Event{}).
		Select("user_id, COUNT(*) AS total").
		Where("occurred_at >= ?", since)
	if len(types) > 0 {
		q = q.Where("event_type IN ?", model.EventTypeStrings(types))
	}
	if err := q.Group("user_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]int, len(rows))
	for _, row := range rows {
		out[row.UserID] = row.Total
	}
	return out, nil
}

// DeleteBefore 删除指定类型中早于 before 的事件；types 为空时删除所有类型
func (r *EventRepository) DeleteBefore(ctx context.Context, types []model.EventType, before time.Time) (int64, error) {
	q := r.DB.WithContext(ctx).Where("occurred_at < ?", before)
	if len(types) > 0 {
		q = q.Where("event_type IN ?", model.EventTypeStrings(types))
	}
	res := q.Delete(&model.Event{})
	return res.RowsAffected, res.Error
}
