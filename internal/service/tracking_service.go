package service

import (
	"context"
	"fmt"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"learner_dashboard/pkg/logger"
	"strings"

	"go.uber.org/zap"
)

// hookEventTypes LMS 回调可以上报的事件
var hookEventTypes = map[model.EventType]bool{
	model.EventCourseStarted:   true,
	model.EventLessonCompleted: true,
	model.EventCourseCompleted: true,
	model.EventQuizCompleted:   true,
	model.EventForumPost:       true,
	model.EventHelpfulVote:     true,
}

// TrackResult 上报后重新计算的结果
type TrackResult struct {
	EventType   model.EventType    `json:"event_type"`
	StreakDays  int                `json:"streak_days"`
	TotalPoints int                `json:"total_points"`
	Badge       *model.BadgeStatus `json:"badge,omitempty"`
}

// TrackingService LMS 回调：记录事件后同步更新连续天数、积分与徽章
type TrackingService struct {
	Events *EventService
	Badges *BadgeService
}

func NewTrackingService(events *EventService, badges *BadgeService) *TrackingService {
	return &TrackingService{Events: events, Badges: badges}
}

func (s *TrackingService) Handle(ctx context.Context, userID uint, eventType string, payload map[string]interface{}) (*TrackResult, error) {
	et := model.EventType(strings.ReplaceAll(eventType, "-", "_"))
	if !hookEventTypes[et] {
		return nil, fmt.Errorf("%w: %s", util.ErrUnknownEventType, eventType)
	}
	if err := s.Events.RecordEvent(ctx, userID, et, payload); err != nil {
		return nil, err
	}

	result := &TrackResult{EventType: et}
	var err error
	if result.StreakDays, err = s.Badges.RefreshStreak(ctx, userID); err != nil {
		logger.Log.Warn("连续天数更新失败", zap.Uint("userID", userID), zap.Error(err))
	}
	if result.TotalPoints, err = s.Badges.AwardPoints(ctx, userID, et, payload); err != nil {
		logger.Log.Warn("积分更新失败", zap.Uint("userID", userID), zap.Error(err))
	}
	if result.Badge, err = s.Badges.Recompute(ctx, userID); err != nil {
		logger.Log.Warn("徽章重算失败", zap.Uint("userID", userID), zap.Error(err))
	}
	return result, nil
}
