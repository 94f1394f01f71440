package service

import (
	"context"
	"errors"
	"fmt"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"sort"
	"time"
)

// AnalyticsService 按类别生成用户分析报表。每个类别独立查询数据源，不共享中间结果
type AnalyticsService struct {
	Events   EventStore
	Activity ActivitySource
	Courses  CourseStore
	Loc      *time.Location
	Now      func() time.Time
}

func NewAnalyticsService(events EventStore, activity ActivitySource, courses CourseStore, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.Local
	}
	return &AnalyticsService{
		Events:   events,
		Activity: activity,
		Courses:  courses,
		Loc:      loc,
		Now:      time.Now,
	}
}

// window 一次报表请求的时间范围
type window struct {
	days  int
	since time.Time
	until time.Time
}

func (w window) previous() (time.Time, time.Time) {
	span := w.until.Sub(w.since)
	return w.since.Add(-span), w.since
}

// GetUserAnalytics 按类别分发；windowDays 限制在 1..365
func (s *AnalyticsService) GetUserAnalytics(ctx context.Context, userID uint, category string, windowDays int) (*model.AnalyticsReport, error) {
	now := s.Now()
	days := util.ClampWindow(windowDays)
	w := window{days: days, since: now.AddDate(0, 0, -days), until: now}

	var (
		data     interface{}
		degraded []string
		err      error
	)
	switch model.AnalyticsCategory(category) {
	case model.CategoryOverview:
		data, degraded, err = s.overview(ctx, userID, w)
	case model.CategoryCourses:
		data, degraded, err = s.courses(ctx, userID, w)
	case model.CategoryActivity:
		data, err = s.activity(ctx, userID, w)
	case model.CategoryPerformance:
		data, degraded, err = s.performance(ctx, userID, w)
	case model.CategoryEngagement:
		data, err = s.engagement(ctx, userID, w)
	default:
		return nil, fmt.Errorf("%w: %q", util.ErrInvalidCategory, category)
	}
	if err != nil {
		return nil, fmt.Errorf("%s analytics: %w", category, err)
	}

	return &model.AnalyticsReport{
		UserID:          userID,
		Category:        model.AnalyticsCategory(category),
		WindowDays:      days,
		GeneratedAt:     now.In(s.Loc).Format(time.RFC3339),
		Data:            data,
		DegradedSources: degraded,
	}, nil
}

// lmsRecords 读取 LMS 条目；数据源不可用时返回空结果与降级标记
func (s *AnalyticsService) lmsRecords(ctx context.Context, userID uint, itemType model.ItemType, since time.Time) ([]model.ActivityRecord, []string, error) {
	records, err := s.Activity.ListForUser(ctx, userID, itemType, since)
	if errors.Is(err, util.ErrSourceUnavailable) {
		return nil, []string{SourceLMS}, nil
	}
	return records, nil, err
}

func (s *AnalyticsService) overview(ctx context.Context, userID uint, w window) (*model.OverviewReport, []string, error) {
	events, err := s.Events.Query(ctx, userID, nil, w.since, w.until)
	if err != nil {
		return nil, nil, err
	}
	records, degraded, err := s.lmsRecords(ctx, userID, "", w.since)
	if err != nil {
		return nil, nil, err
	}

	report := &model.OverviewReport{}
	m := &report.UserMetric
	m.TotalEvents = len(events)

	sessions, avgMinutes := EstimateSessions(eventTimes(events))
	m.TotalTimeMinutes = int(float64(sessions) * avgMinutes)

	var scoreSum float64
	for _, rec := range records {
		switch rec.ItemType {
		case model.ItemCourse:
			m.CoursesStarted++
			if rec.Done() {
				m.CoursesCompleted++
			}
		case model.ItemQuiz:
			if rec.Score != nil && rec.Status != model.StatusStarted {
				m.QuizzesCompleted++
				scoreSum += *rec.Score
			}
		}
	}
	if m.QuizzesCompleted > 0 {
		m.AverageQuizScore = round2(scoreSum / float64(m.QuizzesCompleted))
	}
	if m.CoursesStarted > 0 {
		m.CompletionRate = round2(float64(m.CoursesCompleted) / float64(m.CoursesStarted) * 100)
	}

	streakEvents, err := s.Events.Query(ctx, userID, model.LearningEventTypes, w.until.AddDate(0, 0, -streakLookbackDays), w.until)
	if err != nil {
		return nil, nil, err
	}
	m.LearningStreakDays = LearningStreak(eventTimes(streakEvents), w.until, s.Loc)
	m.EngagementScore = s.engagementFrom(events, w).EngagementScore

	prevSince, prevUntil := w.previous()
	previous, err := s.Events.Count(ctx, userID, nil, prevSince, prevUntil)
	if err != nil {
		return nil, nil, err
	}
	report.Trend = ComputeTrend(m.TotalEvents, previous)

	return report, degraded, nil
}

func (s *AnalyticsService) courses(ctx context.Context, userID uint, w window) (*model.CoursesReport, []string, error) {
	records, degraded, err := s.lmsRecords(ctx, userID, model.ItemCourse, w.since)
	if err != nil {
		return nil, nil, err
	}
	report := &model.CoursesReport{Courses: []model.CourseProgress{}, CompletionSpeed: "normal"}
	if len(records) == 0 {
		return report, degraded, nil
	}

	ids := make([]uint, 0, len(records))
	var durations []time.Duration
	for _, rec := range records {
		ids = append(ids, rec.ItemID)
		report.Enrolled++
		switch {
		case rec.Done():
			report.Completed++
			if d, ok := rec.Duration(); ok && d >= 0 {
				durations = append(durations, d)
			}
		case rec.Status == model.StatusStarted:
			report.InProgress++
		}
	}
	report.CompletionRate = round2(float64(report.Completed) / float64(report.Enrolled) * 100)

	userAvg := averageDuration(durations)
	report.AverageCompletionDays = round2(userAvg.Hours() / 24)
	if userAvg > 0 {
		global, err := s.Activity.CompletedCourseDurations(ctx)
		if err != nil {
			return nil, nil, err
		}
		report.CompletionSpeed = CompletionSpeed(userAvg, averageDuration(global))
	}

	courses, err := s.Courses.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	titles := make(map[uint]string, len(courses))
	for _, c := range courses {
		titles[c.ID] = c.Title
	}
	for _, rec := range records {
		total, err := s.Courses.CountItems(ctx, rec.ItemID)
		if err != nil {
			return nil, nil, err
		}
		done, err := s.Activity.CountDoneInCourse(ctx, userID, rec.ItemID)
		if err != nil {
			return nil, nil, err
		}
		progress := ProgressOf(rec.ItemID, total, done)
		progress.Title = titles[rec.ItemID]
		progress.Status = string(rec.Status)
		report.Courses = append(report.Courses, progress)
	}
	return report, degraded, nil
}

func (s *AnalyticsService) activity(ctx context.Context, userID uint, w window) (*model.ActivityReport, error) {
	events, err := s.Events.Query(ctx, userID, model.LearningEventTypes, w.since, w.until)
	if err != nil {
		return nil, err
	}
	times := eventTimes(events)

	report := &model.ActivityReport{
		Daily:          DailyBuckets(times, w.days, w.until, s.Loc),
		ByType:         make(map[string]int),
		ActiveDays:     ActiveDays(times, s.Loc),
		MostActiveHour: MostActiveHour(times, s.Loc),
	}
	for _, e := range events {
		report.ByType[string(e.EventType)]++
	}
	report.ConsistencyScore = ConsistencyScore(report.ActiveDays, w.days)

	streakEvents, err := s.Events.Query(ctx, userID, model.LearningEventTypes, w.until.AddDate(0, 0, -streakLookbackDays), w.until)
	if err != nil {
		return nil, err
	}
	report.LearningStreak = LearningStreak(eventTimes(streakEvents), w.until, s.Loc)

	prevSince, prevUntil := w.previous()
	previous, err := s.Events.Count(ctx, userID, model.LearningEventTypes, prevSince, prevUntil)
	if err != nil {
		return nil, err
	}
	report.Trend = ComputeTrend(len(events), previous)
	return report, nil
}

func (s *AnalyticsService) performance(ctx context.Context, userID uint, w window) (*model.PerformanceReport, []string, error) {
	records, degraded, err := s.lmsRecords(ctx, userID, model.ItemQuiz, w.since)
	if err != nil {
		return nil, nil, err
	}
	report := &model.PerformanceReport{ScoreHistory: []model.ScorePoint{}}
	if degraded != nil {
		return report, degraded, nil
	}

	var sum float64
	for _, rec := range records {
		if rec.Score == nil || rec.Status == model.StatusStarted {
			continue
		}
		score := *rec.Score
		report.QuizzesCompleted++
		sum += score
		if score > report.BestScore {
			report.BestScore = score
		}
		if score >= 100 {
			report.PerfectScores++
		}
		if rec.Status == model.StatusFailed {
			report.Failed++
		} else {
			report.Passed++
		}
		at := rec.EndTime
		if at == nil {
			at = rec.StartTime
		}
		if at != nil {
			report.ScoreHistory = append(report.ScoreHistory, model.ScorePoint{Date: dayKey(*at, s.Loc), Score: score})
		}
	}
	sort.SliceStable(report.ScoreHistory, func(i, j int) bool {
		return report.ScoreHistory[i].Date < report.ScoreHistory[j].Date
	})
	if report.QuizzesCompleted > 0 {
		report.AverageScore = round2(sum / float64(report.QuizzesCompleted))
		report.PassRate = round2(float64(report.Passed) / float64(report.QuizzesCompleted) * 100)
	}

	averages, err := s.Activity.AverageQuizScores(ctx)
	if err != nil {
		return nil, nil, err
	}
	report.PercentileRank = PercentileRank(userID, averages)
	return report, nil, nil
}

func (s *AnalyticsService) engagement(ctx context.Context, userID uint, w window) (*model.EngagementReport, error) {
	events, err := s.Events.Query(ctx, userID, nil, w.since, w.until)
	if err != nil {
		return nil, err
	}
	return s.engagementFrom(events, w), nil
}

// engagementFrom 由窗口内事件计算参与度的四项指标与评分
func (s *AnalyticsService) engagementFrom(events []model.Event, w window) *model.EngagementReport {
	var logins, completions int
	for _, e := range events {
		switch e.EventType {
		case model.EventLogin:
			logins++
		case model.EventLessonCompleted, model.EventCourseCompleted, model.EventQuizCompleted:
			completions++
		}
	}
	times := eventTimes(events)
	sessions, avgMinutes := EstimateSessions(times)

	var interaction float64
	if active := ActiveDays(times, s.Loc); active > 0 {
		interaction = round2(float64(len(events)) / float64(active))
	}

	in := EngagementInputs{
		LoginFrequency:     round2(perWeek(logins, w.days)),
		SessionMinutes:     avgMinutes,
		InteractionRate:    interaction,
		CompletionVelocity: round2(perWeek(completions, w.days)),
	}
	score := EngagementScore(in)
	return &model.EngagementReport{
		LoginFrequency:        in.LoginFrequency,
		AverageSessionMinutes: in.SessionMinutes,
		SessionCount:          sessions,
		InteractionRate:       in.InteractionRate,
		CompletionVelocity:    in.CompletionVelocity,
		EngagementScore:       score,
		RetentionRisk:         RetentionRisk(score),
	}
}
