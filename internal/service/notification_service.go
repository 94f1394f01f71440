package service

import (
	"context"
	"learner_dashboard/internal/model"
	"learner_dashboard/pkg/logger"
	"time"

	"go.uber.org/zap"
)

// NotificationService 用户通知列表，最新在前，最多保留 50 条
type NotificationService struct {
	Meta MetaStore
	Now  func() time.Time
}

func NewNotificationService(meta MetaStore) *NotificationService {
	return &NotificationService{Meta: meta, Now: time.Now}
}

func (s *NotificationService) List(ctx context.Context, userID uint) ([]model.Notification, error) {
	var list []model.Notification
	if _, err := s.Meta.Get(ctx, userID, model.MetaNotifications, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Notification{}
	}
	return list, nil
}

// Add 追加一条通知，超出上限时丢弃最旧的
func (s *NotificationService) Add(ctx context.Context, userID uint, typ model.NotificationType, message string) error {
	list, err := s.List(ctx, userID)
	if err != nil {
		return err
	}
	n := model.Notification{Type: typ, Message: message, Date: s.Now(), Read: false}
	list = append([]model.Notification{n}, list...)
	if len(list) > model.MaxNotifications {
		list = list[:model.MaxNotifications]
	}
	return s.Meta.Set(ctx, userID, model.MetaNotifications, list)
}

// Notify 与 Add 相同，但失败只记录日志
func (s *NotificationService) Notify(ctx context.Context, userID uint, typ model.NotificationType, message string) {
	if err := s.Add(ctx, userID, typ, message); err != nil {
		logger.Log.Warn("通知写入失败", zap.Uint("userID", userID), zap.String("type", string(typ)), zap.Error(err))
	}
}

// MarkRead 标记指定下标的通知为已读；indexes 为空时全部标记
func (s *NotificationService) MarkRead(ctx context.Context, userID uint, indexes []int) (int, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	changed := 0
	mark := func(i int) {
		if i >= 0 && i < len(list) && !list[i].Read {
			list[i].Read = true
			changed++
		}
	}
	if len(indexes) == 0 {
		for i := range list {
			mark(i)
		}
	} else {
		for _, i := range indexes {
			mark(i)
		}
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, s.Meta.Set(ctx, userID, model.MetaNotifications, list)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n, nil
}
