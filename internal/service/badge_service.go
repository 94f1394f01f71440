package service

import (
	"context"
	"errors"
	"fmt"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"learner_dashboard/pkg/logger"
	"learner_dashboard/pkg/monitoring"
	"math"
	"time"

	"go.uber.org/zap"
)

const (
	recentActivityWindow = 30 * 24 * time.Hour
	recentScoreWindow    = 7 * 24 * time.Hour
	topLearnerPercentile = 10.0
	speedrunnerRatio     = 0.5
)

// SourceLMS 报表中 LMS 活动表不可用时的标记
const SourceLMS = "lms_activity"

// BadgeService 徽章等级、特殊徽章、积分与排行榜
type BadgeService struct {
	Events        EventStore
	Activity      ActivitySource
	Certs         CertificateStore
	Meta          MetaStore
	Users         UserStore
	Board         Leaderboard
	Tracker       *EventService
	Notifications *NotificationService
	Mail          *MailService
	Catalog       []model.Parcours
	Loc           *time.Location
	Now           func() time.Time
}

func NewBadgeService(
	events EventStore,
	activity ActivitySource,
	certs CertificateStore,
	meta MetaStore,
	users UserStore,
	board Leaderboard,
	tracker *EventService,
	notifications *NotificationService,
	mail *MailService,
	catalog []model.Parcours,
	loc *time.Location,
) *BadgeService {
	if loc == nil {
		loc = time.Local
	}
	return &BadgeService{
		Events:        events,
		Activity:      activity,
		Certs:         certs,
		Meta:          meta,
		Users:         users,
		Board:         board,
		Tracker:       tracker,
		Notifications: notifications,
		Mail:          mail,
		Catalog:       catalog,
		Loc:           loc,
		Now:           time.Now,
	}
}

func (s *BadgeService) daysBetween(from, to time.Time) int {
	d := startOfDay(to, s.Loc).Sub(startOfDay(from, s.Loc)).Hours() / 24
	return int(math.Round(d))
}

// ComputeMetrics 计算徽章判定所需的指标。LMS 表不可用时相关指标按 0 处理并在 degraded 中标出
func (s *BadgeService) ComputeMetrics(ctx context.Context, userID uint) (*model.BadgeMetrics, []string, error) {
	now := s.Now()
	m := &model.BadgeMetrics{}
	var degraded []string

	lastEvent, err := s.Events.LastOccurrence(ctx, userID, model.LearningEventTypes)
	if err != nil {
		return nil, nil, fmt.Errorf("last activity: %w", err)
	}
	lastActivity := lastEvent

	records, err := s.Activity.ListForUser(ctx, userID, "", time.Time{})
	switch {
	case errors.Is(err, util.ErrSourceUnavailable):
		degraded = append(degraded, SourceLMS)
	case err != nil:
		return nil, nil, fmt.Errorf("lms activity: %w", err)
	}

	var fastest time.Duration
	for _, rec := range records {
		for _, t := range []*time.Time{rec.StartTime, rec.EndTime} {
			if t != nil && t.After(lastActivity) {
				lastActivity = *t
			}
		}
		switch rec.ItemType {
		case model.ItemCourse:
			if rec.Done() {
				m.CompletedCourses++
				if d, ok := rec.Duration(); ok && d > 0 && (fastest == 0 || d < fastest) {
					fastest = d
				}
			}
		case model.ItemQuiz:
			if rec.Score != nil && *rec.Score >= 100 {
				m.PerfectQuizzes++
			}
		}
	}

	if lastActivity.IsZero() {
		m.DaysInactive = streakLookbackDays
	} else {
		m.DaysInactive = s.daysBetween(lastActivity, now)
	}

	if fastest > 0 {
		durations, err := s.Activity.CompletedCourseDurations(ctx)
		if err != nil && !errors.Is(err, util.ErrSourceUnavailable) {
			return nil, nil, fmt.Errorf("course durations: %w", err)
		}
		if avg := averageDuration(durations); avg > 0 {
			m.FastestCompletion = float64(fastest) < speedrunnerRatio*float64(avg)
		}
	}

	if m.RecentActivityCount, err = s.Events.Count(ctx, userID, model.LearningEventTypes, now.Add(-recentActivityWindow), now); err != nil {
		return nil, nil, fmt.Errorf("recent activity: %w", err)
	}
	if m.RecentActivityScore, err = s.Events.Count(ctx, userID, model.LearningEventTypes, now.Add(-recentScoreWindow), now); err != nil {
		return nil, nil, fmt.Errorf("recent activity score: %w", err)
	}
	if m.StreakDays, err = s.computeStreak(ctx, userID); err != nil {
		return nil, nil, err
	}
	if m.Certificates, err = s.Certs.CountByUser(ctx, userID); err != nil {
		return nil, nil, fmt.Errorf("certificates: %w", err)
	}
	if m.ForumPosts, err = s.Events.Count(ctx, userID, []model.EventType{model.EventForumPost}, time.Time{}, now); err != nil {
		return nil, nil, fmt.Errorf("forum posts: %w", err)
	}
	if m.HelpfulVotes, err = s.Events.Count(ctx, userID, []model.EventType{model.EventHelpfulVote}, time.Time{}, now); err != nil {
		return nil, nil, fmt.Errorf("helpful votes: %w", err)
	}
	if m.ParcoursComplete, err = s.anyParcoursCompleted(ctx, userID); err != nil {
		return nil, nil, err
	}

	return m, degraded, nil
}

func (s *BadgeService) computeStreak(ctx context.Context, userID uint) (int, error) {
	now := s.Now()
	events, err := s.Events.Query(ctx, userID, model.LearningEventTypes, now.AddDate(0, 0, -streakLookbackDays), now)
	if err != nil {
		return 0, fmt.Errorf("streak events: %w", err)
	}
	return LearningStreak(eventTimes(events), now, s.Loc), nil
}

// RefreshStreak 重新计算连续学习天数并缓存
func (s *BadgeService) RefreshStreak(ctx context.Context, userID uint) (int, error) {
	days, err := s.computeStreak(ctx, userID)
	if err != nil {
		return 0, err
	}
	cache := model.StreakCache{Days: days, Date: dayKey(s.Now(), s.Loc)}
	if err := s.Meta.Set(ctx, userID, model.MetaLearningStreak, cache); err != nil {
		return days, err
	}
	return days, nil
}

// cachedStreak 只有当天计算的缓存有效；否则今天没有活动，连续天数为 0
func (s *BadgeService) cachedStreak(ctx context.Context, userID uint) int {
	var cache model.StreakCache
	found, err := s.Meta.Get(ctx, userID, model.MetaLearningStreak, &cache)
	if err != nil || !found || cache.Date != dayKey(s.Now(), s.Loc) {
		return 0
	}
	return cache.Days
}

func (s *BadgeService) anyParcoursCompleted(ctx context.Context, userID uint) (bool, error) {
	for _, p := range s.Catalog {
		var at time.Time
		found, err := s.Meta.Get(ctx, userID, model.MetaParcoursDone+p.ID, &at)
		if err != nil {
			return false, fmt.Errorf("parcours completion: %w", err)
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// DetermineUserBadge 计算失败时记录日志并返回 curieux
func (s *BadgeService) DetermineUserBadge(ctx context.Context, userID uint) model.BadgeTier {
	m, _, err := s.ComputeMetrics(ctx, userID)
	if err != nil {
		logger.Log.Error("徽章指标计算失败", zap.Uint("userID", userID), zap.Error(err))
		return model.TierCurieux
	}
	return DetermineBadge(*m)
}

// Recompute 重新判定等级与特殊徽章，并持久化状态
func (s *BadgeService) Recompute(ctx context.Context, userID uint) (*model.BadgeStatus, error) {
	now := s.Now()
	status := &model.BadgeStatus{UpdatedAt: now}

	m, _, err := s.ComputeMetrics(ctx, userID)
	if err != nil {
		logger.Log.Error("徽章指标计算失败", zap.Uint("userID", userID), zap.Error(err))
		status.Tier = model.TierCurieux
	} else {
		if top, err := s.IsTopLearner(ctx, userID); err != nil {
			logger.Log.Warn("排行榜读取失败", zap.Uint("userID", userID), zap.Error(err))
		} else {
			m.TopLearner = top
		}
		var rule string
		status.Tier, rule = matchTier(*m)
		status.Metrics = m
		logger.Log.Debug("徽章判定",
			zap.Uint("userID", userID),
			zap.String("tier", string(status.Tier)),
			zap.String("rule", rule))
	}

	earned, err := s.EarnedBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m != nil {
		var added []model.SpecialBadge
		earned, added = MergeEarned(earned, QualifyingSpecialBadges(*m), now)
		if len(added) > 0 {
			if err := s.Meta.Set(ctx, userID, model.MetaEarnedBadges, earned); err != nil {
				return nil, err
			}
			s.announceSpecial(ctx, userID, added)
		}
	}
	status.Special = earned

	var previous model.BadgeStatus
	hadPrevious, err := s.Meta.Get(ctx, userID, model.MetaBadgeStatus, &previous)
	if err != nil {
		return nil, err
	}
	if status.TotalPoints, err = s.TotalPoints(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.Meta.Set(ctx, userID, model.MetaBadgeStatus, status); err != nil {
		return nil, err
	}
	monitoring.BadgeAssignments.WithLabelValues(string(status.Tier)).Inc()

	if !hadPrevious || previous.Tier != status.Tier {
		s.Tracker.Track(ctx, userID, model.EventBadgeChanged, map[string]interface{}{
			"from": string(previous.Tier),
			"to":   string(status.Tier),
		})
		if hadPrevious && status.Tier.Rank() > previous.Tier.Rank() {
			s.Notifications.Notify(ctx, userID, model.NotifyBadge, fmt.Sprintf("Nouveau badge : %s", status.Tier))
			s.mailBadge(ctx, userID, string(status.Tier))
		}
	}
	return status, nil
}

func (s *BadgeService) announceSpecial(ctx context.Context, userID uint, added []model.SpecialBadge) {
	for _, b := range added {
		monitoring.SpecialBadgesEarned.WithLabelValues(string(b)).Inc()
		s.Tracker.Track(ctx, userID, model.EventBadgeEarned, map[string]interface{}{"badge": string(b)})
		s.Notifications.Notify(ctx, userID, model.NotifyBadge, fmt.Sprintf("Badge spécial débloqué : %s", b))
		s.mailBadge(ctx, userID, string(b))
	}
}

func (s *BadgeService) mailBadge(ctx context.Context, userID uint, badge string) {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Log.Warn("用户读取失败，跳过徽章邮件", zap.Uint("userID", userID), zap.Error(err))
		return
	}
	s.Mail.BadgeEarned(ctx, user, badge)
}

// GetStatus 返回缓存的状态，没有缓存时重新计算
func (s *BadgeService) GetStatus(ctx context.Context, userID uint) (*model.BadgeStatus, error) {
	var status model.BadgeStatus
	found, err := s.Meta.Get(ctx, userID, model.MetaBadgeStatus, &status)
	if err != nil {
		return nil, err
	}
	if !found {
		return s.Recompute(ctx, userID)
	}
	return &status, nil
}

func (s *BadgeService) EarnedBadges(ctx context.Context, userID uint) ([]model.EarnedBadge, error) {
	var earned []model.EarnedBadge
	if _, err := s.Meta.Get(ctx, userID, model.MetaEarnedBadges, &earned); err != nil {
		return nil, err
	}
	if earned == nil {
		earned = []model.EarnedBadge{}
	}
	return earned, nil
}

func (s *BadgeService) TotalPoints(ctx context.Context, userID uint) (int, error) {
	var points int
	if _, err := s.Meta.Get(ctx, userID, model.MetaTotalPoints, &points); err != nil {
		return 0, err
	}
	return points, nil
}

// AwardPoints 按积分规则累加，返回新的总分
func (s *BadgeService) AwardPoints(ctx context.Context, userID uint, eventType model.EventType, payload map[string]interface{}) (int, error) {
	total, err := s.TotalPoints(ctx, userID)
	if err != nil {
		return 0, err
	}
	gain := PointsFor(eventType, payload)
	if gain == 0 {
		return total, nil
	}
	total += gain
	if err := s.Meta.Set(ctx, userID, model.MetaTotalPoints, total); err != nil {
		return 0, err
	}
	return total, nil
}

// IsTopLearner 用户综合分是否位于前 10%。排名为分数严格更高的人数，同分用户排名相同
func (s *BadgeService) IsTopLearner(ctx context.Context, userID uint) (bool, error) {
	rank, ok, err := s.Board.Position(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	return TopPercentile(rank.Position, rank.Total) <= topLearnerPercentile, nil
}

// RefreshTopLearners 批量计算所有活跃用户的综合分并替换排行榜
func (s *BadgeService) RefreshTopLearners(ctx context.Context) (int, error) {
	now := s.Now()
	users, err := s.Users.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	completed, err := s.Activity.CountDoneByUser(ctx, model.ItemCourse)
	if err != nil && !errors.Is(err, util.ErrSourceUnavailable) {
		return 0, err
	}
	perfect, err := s.Activity.PerfectQuizzesByUser(ctx)
	if err != nil && !errors.Is(err, util.ErrSourceUnavailable) {
		return 0, err
	}
	recent, err := s.Events.CountByUser(ctx, model.LearningEventTypes, now.Add(-recentScoreWindow))
	if err != nil {
		return 0, err
	}
	posts, err := s.Events.CountByUser(ctx, []model.EventType{model.EventForumPost}, time.Time{})
	if err != nil {
		return 0, err
	}
	votes, err := s.Events.CountByUser(ctx, []model.EventType{model.EventHelpfulVote}, time.Time{})
	if err != nil {
		return 0, err
	}
	certs, err := s.Certs.CountByUsers(ctx)
	if err != nil {
		return 0, err
	}

	scores := make(map[uint]float64, len(users))
	for _, u := range users {
		scores[u.ID] = CompositeScore(ScoreInputs{
			CompletedCourses: completed[u.ID],
			RecentActivity:   recent[u.ID],
			StreakDays:       s.cachedStreak(ctx, u.ID),
			PerfectQuizzes:   perfect[u.ID],
			Certificates:     certs[u.ID],
			ForumPosts:       posts[u.ID],
			HelpfulVotes:     votes[u.ID],
		})
	}

	if err := s.Board.ReplaceScores(ctx, scores); err != nil {
		return 0, err
	}
	monitoring.LeaderboardSize.Set(float64(len(scores)))
	return len(scores), nil
}
