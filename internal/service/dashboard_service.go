package service

import (
	"context"
	"errors"
	"fmt"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
)

// DashboardSummary 仪表盘首页所需的全部数据
type DashboardSummary struct {
	Overview        *model.OverviewReport    `json:"overview"`
	Badge           *model.BadgeStatus       `json:"badge"`
	Notifications   []model.Notification     `json:"notifications"`
	UnreadCount     int                      `json:"unread_count"`
	Recommendations []Recommendation         `json:"recommendations"`
	Parcours        []model.ParcoursProgress `json:"parcours"`
	DegradedSources []string                 `json:"degraded_sources,omitempty"`
}

// DashboardService 组合各服务；同时为聊天机器人提供用户数据
type DashboardService struct {
	Analytics     *AnalyticsService
	Badges        *BadgeService
	Progress      *ProgressService
	Parcours      *ParcoursService
	Certificates  *CertificateService
	Notifications *NotificationService
}

var _ LearnerData = (*DashboardService)(nil)

func NewDashboardService(
	analytics *AnalyticsService,
	badges *BadgeService,
	progress *ProgressService,
	parcours *ParcoursService,
	certificates *CertificateService,
	notifications *NotificationService,
) *DashboardService {
	return &DashboardService{
		Analytics:     analytics,
		Badges:        badges,
		Progress:      progress,
		Parcours:      parcours,
		Certificates:  certificates,
		Notifications: notifications,
	}
}

func (s *DashboardService) overviewReport(ctx context.Context, userID uint) (*model.OverviewReport, []string, error) {
	report, err := s.Analytics.GetUserAnalytics(ctx, userID, string(model.CategoryOverview), util.DefaultWindowDays)
	if err != nil {
		return nil, nil, err
	}
	overview, ok := report.Data.(*model.OverviewReport)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected overview payload %T", report.Data)
	}
	return overview, report.DegradedSources, nil
}

func (s *DashboardService) Overview(ctx context.Context, userID uint) (*model.OverviewReport, error) {
	overview, _, err := s.overviewReport(ctx, userID)
	return overview, err
}

func (s *DashboardService) BadgeStatus(ctx context.Context, userID uint) (*model.BadgeStatus, error) {
	return s.Badges.GetStatus(ctx, userID)
}

func (s *DashboardService) Recommendations(ctx context.Context, userID uint, limit int) ([]Recommendation, error) {
	return s.Progress.RecommendCourses(ctx, userID, limit)
}

func (s *DashboardService) ParcoursList(ctx context.Context, userID uint) ([]model.ParcoursProgress, error) {
	return s.Parcours.List(ctx, userID)
}

func (s *DashboardService) CertificateList(ctx context.Context, userID uint) ([]model.Certificate, error) {
	return s.Certificates.List(ctx, userID)
}

// Summary 仪表盘首页数据
func (s *DashboardService) Summary(ctx context.Context, userID uint) (*DashboardSummary, error) {
	overview, degraded, err := s.overviewReport(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := &DashboardSummary{Overview: overview, DegradedSources: degraded}

	if summary.Badge, err = s.Badges.GetStatus(ctx, userID); err != nil {
		return nil, err
	}
	if summary.Notifications, err = s.Notifications.List(ctx, userID); err != nil {
		return nil, err
	}
	for _, n := range summary.Notifications {
		if !n.Read {
			summary.UnreadCount++
		}
	}
	summary.Recommendations, err = s.Progress.RecommendCourses(ctx, userID, 5)
	if err != nil && !errors.Is(err, util.ErrSourceUnavailable) {
		return nil, err
	}
	if summary.Parcours, err = s.Parcours.List(ctx, userID); err != nil {
		return nil, err
	}
	return summary, nil
}
