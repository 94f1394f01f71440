package service

import (
	"context"
	"learner_dashboard/internal/config"
	"learner_dashboard/internal/model"
	"learner_dashboard/pkg/logger"
	"learner_dashboard/pkg/monitoring"
	"learner_dashboard/pkg/tracing"
	"time"

	"go.uber.org/zap"
)

const (
	JobCleanup     = "cleanup"
	JobTopLearners = "top_learners"
	JobWeekly      = "weekly_report"

	weeklyWindowDays = 7
)

// prunedEventTypes 分析事件可按保留期清理；安全相关事件永久保留
var prunedEventTypes = []model.EventType{
	model.EventLogin,
	model.EventChatMessage,
	model.EventWeekChecked,
	model.EventWeekUnchecked,
}

// ReportService 定时任务：每日清理、排行榜刷新与每周报告
type ReportService struct {
	Cfg           *config.AnalyticsConfig
	Users         UserStore
	Meta          MetaStore
	Events        *EventService
	Analytics     *AnalyticsService
	Badges        *BadgeService
	Chatbot       *ChatbotService
	Notifications *NotificationService
	Mail          *MailService
	Loc           *time.Location
	Now           func() time.Time
}

func NewReportService(
	cfg *config.AnalyticsConfig,
	users UserStore,
	meta MetaStore,
	events *EventService,
	analytics *AnalyticsService,
	badges *BadgeService,
	chatbot *ChatbotService,
	notifications *NotificationService,
	mail *MailService,
) *ReportService {
	return &ReportService{
		Cfg:           cfg,
		Users:         users,
		Meta:          meta,
		Events:        events,
		Analytics:     analytics,
		Badges:        badges,
		Chatbot:       chatbot,
		Notifications: notifications,
		Mail:          mail,
		Loc:           cfg.Location(),
		Now:           time.Now,
	}
}

// ApplyConfig 热加载后替换配置，时区随之更新
func (s *ReportService) ApplyConfig(cfg *config.AnalyticsConfig) {
	s.Cfg = cfg
	s.Loc = cfg.Location()
}

// startJob 记录任务 span 与执行结果计数
func startJob(ctx context.Context, job string) (context.Context, func(error)) {
	ctx, end := tracing.StartJob(ctx, job)
	return ctx, func(err error) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		monitoring.JobRuns.WithLabelValues(job, result).Inc()
		end(err)
	}
}

// Cleanup 删除超过保留期的聊天记录与分析事件
func (s *ReportService) Cleanup(ctx context.Context) (err error) {
	ctx, done := startJob(ctx, JobCleanup)
	defer func() { done(err) }()

	chats, err := s.Chatbot.Prune(ctx, s.Cfg.ChatRetentionDays)
	if err != nil {
		return err
	}
	var events int64
	if s.Cfg.EventRetentionDays > 0 {
		retention := time.Duration(s.Cfg.EventRetentionDays) * 24 * time.Hour
		if events, err = s.Events.PruneEvents(ctx, prunedEventTypes, retention); err != nil {
			return err
		}
	}
	logger.Log.Info("清理完成", zap.Int64("chatMessages", chats), zap.Int64("events", events))
	return nil
}

func (s *ReportService) RefreshTopLearners(ctx context.Context) (int, error) {
	ctx, done := startJob(ctx, JobTopLearners)
	n, err := s.Badges.RefreshTopLearners(ctx)
	done(err)
	return n, err
}

// RunDaily 每日任务，单项失败不影响其余各项
func (s *ReportService) RunDaily(ctx context.Context) {
	if err := s.Cleanup(ctx); err != nil {
		logger.Log.Error("清理任务失败", zap.Error(err))
	}
	if n, err := s.RefreshTopLearners(ctx); err != nil {
		logger.Log.Error("排行榜刷新失败", zap.Error(err))
	} else {
		logger.Log.Info("排行榜已刷新", zap.Int("users", n))
	}
	if s.Cfg.WeeklyReports && int(s.Now().In(s.Loc).Weekday()) == s.Cfg.ReportWeekday {
		if _, err := s.SendWeeklyReports(ctx); err != nil {
			logger.Log.Error("周报发送失败", zap.Error(err))
		}
	}
}

// BuildWeeklyReport 汇总最近 7 天的数据
func (s *ReportService) BuildWeeklyReport(ctx context.Context, userID uint) (WeeklyReportData, error) {
	now := s.Now()
	since := now.AddDate(0, 0, -weeklyWindowDays)
	var data WeeklyReportData
	var err error

	if data.Events, err = s.Events.CountEvents(ctx, userID, nil, since, now); err != nil {
		return data, err
	}
	if data.LessonsDone, err = s.Events.CountEvents(ctx, userID, []model.EventType{model.EventLessonCompleted}, since, now); err != nil {
		return data, err
	}
	if data.StreakDays, err = s.Badges.RefreshStreak(ctx, userID); err != nil {
		return data, err
	}
	status, err := s.Badges.GetStatus(ctx, userID)
	if err != nil {
		return data, err
	}
	data.Badge = status.Tier
	data.TotalPoints = status.TotalPoints

	report, err := s.Analytics.GetUserAnalytics(ctx, userID, string(model.CategoryEngagement), weeklyWindowDays)
	if err != nil {
		return data, err
	}
	if engagement, ok := report.Data.(*model.EngagementReport); ok {
		data.EngagementScore = engagement.EngagementScore
	}
	return data, nil
}

// SendWeeklyReports 给活跃用户发送周报；6 天内已发送过的跳过
func (s *ReportService) SendWeeklyReports(ctx context.Context) (sent int, err error) {
	ctx, done := startJob(ctx, JobWeekly)
	defer func() { done(err) }()

	users, err := s.Users.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	now := s.Now()
	for i := range users {
		user := &users[i]

		var last time.Time
		found, err := s.Meta.Get(ctx, user.ID, model.MetaLastReportSent, &last)
		if err != nil {
			logger.Log.Warn("读取周报记录失败", zap.Uint("userID", user.ID), zap.Error(err))
			continue
		}
		if found && now.Sub(last) < 6*24*time.Hour {
			continue
		}

		data, err := s.BuildWeeklyReport(ctx, user.ID)
		if err != nil {
			logger.Log.Warn("周报生成失败", zap.Uint("userID", user.ID), zap.Error(err))
			continue
		}
		s.Mail.WeeklyReport(ctx, user, data)
		s.Notifications.Notify(ctx, user.ID, model.NotifyReport, "Votre rapport hebdomadaire est disponible.")
		if err := s.Meta.Set(ctx, user.ID, model.MetaLastReportSent, now); err != nil {
			logger.Log.Warn("周报记录失败", zap.Uint("userID", user.ID), zap.Error(err))
		}
		sent++
	}
	logger.Log.Info("周报发送完成", zap.Int("sent", sent), zap.Int("users", len(users)))
	return sent, nil
}
