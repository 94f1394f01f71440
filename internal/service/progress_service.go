package service

import (
	"context"
	"errors"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"math"
	"sort"
	"time"
)

// ProgressOf 完成百分比四舍五入；total 为 0 时百分比为 0
func ProgressOf(courseID uint, total, completed int) model.CourseProgress {
	p := model.CourseProgress{CourseID: courseID, TotalItems: total, CompletedItems: completed}
	if total > 0 {
		p.Percentage = int(math.Round(100 * float64(completed) / float64(total)))
	}
	return p
}

// 推荐评分常量
const (
	tagMatchScore      = 10.0
	categoryMatchScore = 15.0
	popularityCap      = 20.0
	ratingWeight       = 5.0
	freshWeekScore     = 20.0
	freshMonthScore    = 10.0
)

// CalculateRecommendationScore 推荐评分：偏好标签、偏好分类、热度、评分与新鲜度之和
func CalculateRecommendationScore(course model.Course, prefs model.Preferences, now time.Time) float64 {
	score := 0.0

	tags := make(map[string]bool, len(course.Tags))
	for _, t := range course.Tags {
		tags[t] = true
	}
	for _, t := range prefs.Tags {
		if tags[t] {
			score += tagMatchScore
		}
	}
	for _, c := range prefs.Categories {
		if c == course.Category {
			score += categoryMatchScore
		}
	}

	score += math.Min(float64(course.Students)/10, popularityCap)
	score += ratingWeight * course.Rating

	if !course.PublishedAt.IsZero() {
		age := now.Sub(course.PublishedAt)
		switch {
		case age <= 7*24*time.Hour:
			score += freshWeekScore
		case age <= 30*24*time.Hour:
			score += freshMonthScore
		}
	}
	return score
}

// Recommendation 推荐结果
type Recommendation struct {
	Course model.Course `json:"course"`
	Score  float64      `json:"score"`
}

// ProgressService 课程进度与推荐
type ProgressService struct {
	Courses  CourseStore
	Activity ActivitySource
	Meta     MetaStore
	Now      func() time.Time
}

func NewProgressService(courses CourseStore, activity ActivitySource, meta MetaStore) *ProgressService {
	return &ProgressService{Courses: courses, Activity: activity, Meta: meta, Now: time.Now}
}

// CalculateCourseProgress 用户在课程中的完成进度
func (s *ProgressService) CalculateCourseProgress(ctx context.Context, userID, courseID uint) (*model.CourseProgress, error) {
	course, err := s.Courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	total, err := s.Courses.CountItems(ctx, courseID)
	if err != nil {
		return nil, err
	}
	done := 0
	if total > 0 {
		done, err = s.Activity.CountDoneInCourse(ctx, userID, courseID)
		if err != nil {
			return nil, err
		}
	}
	p := ProgressOf(courseID, total, done)
	p.Title = course.Title
	return &p, nil
}

func (s *ProgressService) Preferences(ctx context.Context, userID uint) (model.Preferences, error) {
	var prefs model.Preferences
	_, err := s.Meta.Get(ctx, userID, model.MetaPreferences, &prefs)
	return prefs, err
}

func (s *ProgressService) SavePreferences(ctx context.Context, userID uint, prefs model.Preferences) error {
	return s.Meta.Set(ctx, userID, model.MetaPreferences, prefs)
}

// RecommendCourses 按评分降序推荐尚未报名的已发布课程；同分按发布时间较新优先
func (s *ProgressService) RecommendCourses(ctx context.Context, userID uint, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = 5
	}
	prefs, err := s.Preferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	courses, err := s.Courses.ListPublished(ctx)
	if err != nil {
		return nil, err
	}

	enrolled := make(map[uint]bool)
	records, err := s.Activity.ListForUser(ctx, userID, model.ItemCourse, time.Time{})
	if err != nil && !errors.Is(err, util.ErrSourceUnavailable) {
		return nil, err
	}
	for _, rec := range records {
		enrolled[rec.ItemID] = true
	}

	now := s.Now()
	out := make([]Recommendation, 0, len(courses))
	for _, c := range courses {
		if enrolled[c.ID] {
			continue
		}
		out = append(out, Recommendation{Course: c, Score: CalculateRecommendationScore(c, prefs, now)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Course.PublishedAt.After(out[j].Course.PublishedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
