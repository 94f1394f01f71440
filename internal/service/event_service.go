package service

import (
	"context"
	"fmt"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"learner_dashboard/pkg/logger"
	"learner_dashboard/pkg/monitoring"
	"time"

	"go.uber.org/zap"
)

// EventService 事件日志的写入与查询
type EventService struct {
	Repo EventStore
	Now  func() time.Time
}

func NewEventService(repo EventStore) *EventService {
	return &EventService{Repo: repo, Now: time.Now}
}

// RecordEvent 写入一条事件，不去重
func (s *EventService) RecordEvent(ctx context.Context, userID uint, eventType model.EventType, payload map[string]interface{}) error {
	if !eventType.Valid() {
		return fmt.Errorf("%w: %s", util.ErrUnknownEventType, eventType)
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	event := &model.Event{
		UserID:     userID,
		EventType:  eventType,
		Payload:    payload,
		OccurredAt: s.Now(),
	}
	if err := s.Repo.Create(ctx, event); err != nil {
		return fmt.Errorf("record %s event: %w", eventType, err)
	}
	return nil
}

// Track 尽力写入：失败只记录日志，不影响调用方的主流程
func (s *EventService) Track(ctx context.Context, userID uint, eventType model.EventType, payload map[string]interface{}) {
	if err := s.RecordEvent(ctx, userID, eventType, payload); err != nil {
		monitoring.EventWriteFailures.WithLabelValues(string(eventType)).Inc()
		logger.Log.Warn("事件记录失败",
			zap.Uint("userID", userID),
			zap.String("eventType", string(eventType)),
			zap.Error(err))
	}
}

// QueryEvents 按插入顺序返回 [since, until] 内的事件；typeFilter 为空表示全部类型
func (s *EventService) QueryEvents(ctx context.Context, userID uint, typeFilter []string, since, until time.Time) ([]model.Event, error) {
	types := make([]model.EventType, 0, len(typeFilter))
	for _, t := range typeFilter {
		et := model.EventType(t)
		if !et.Valid() {
			return nil, fmt.Errorf("%w: %s", util.ErrUnknownEventType, t)
		}
		types = append(types, et)
	}
	if until.IsZero() {
		until = s.Now()
	}
	return s.Repo.Query(ctx, userID, types, since, until)
}

func (s *EventService) CountEvents(ctx context.Context, userID uint, types []model.EventType, since, until time.Time) (int, error) {
	return s.Repo.Count(ctx, userID, types, since, until)
}

// PruneEvents 删除早于 olderThan 的事件
func (s *EventService) PruneEvents(ctx context.Context, types []model.EventType, olderThan time.Duration) (int64, error) {
	return s.Repo.DeleteBefore(ctx, types, s.Now().Add(-olderThan))
}
