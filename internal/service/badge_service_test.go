package service

import (
	"context"
	"learner_dashboard/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedCourse(userID, courseID uint, endedDaysAgo int, took time.Duration) model.ActivityRecord {
	end := daysAgo(endedDaysAgo)
	return courseRecord(userID, courseID, model.StatusCompleted, end.Add(-took), end)
}

func TestBadgeServiceRecompute(t *testing.T) {
	ctx := context.Background()

	t.Run("no activity is absent", func(t *testing.T) {
		e := newTestEnv(t)

		status, err := e.badges.Recompute(ctx, testUserID)
		require.NoError(t, err)
		assert.Equal(t, model.TierAbsent, status.Tier)
		assert.Equal(t, 365, status.Metrics.DaysInactive)
		assert.Empty(t, status.Special)
		assert.Len(t, e.events.ofType(model.EventBadgeChanged), 1)

		notifications, err := e.notifications.List(ctx, testUserID)
		require.NoError(t, err)
		assert.Empty(t, notifications)
	})

	t.Run("three completed courses", func(t *testing.T) {
		e := newTestEnv(t)
		e.events.add(testUserID, model.EventLogin, fixedNow)
		for id := uint(1); id <= 3; id++ {
			e.activity.records = append(e.activity.records, completedCourse(testUserID, id, 10, 48*time.Hour))
		}

		status, err := e.badges.Recompute(ctx, testUserID)
		require.NoError(t, err)
		assert.Equal(t, model.TierAchiever, status.Tier)
		assert.Equal(t, 3, status.Metrics.CompletedCourses)
		assert.Equal(t, 0, status.Metrics.DaysInactive)
		assert.False(t, status.Metrics.FastestCompletion)
	})

	t.Run("long inactivity wins over courses", func(t *testing.T) {
		e := newTestEnv(t)
		e.events.add(testUserID, model.EventLessonCompleted, daysAgo(20))
		for id := uint(1); id <= 3; id++ {
			e.activity.records = append(e.activity.records, completedCourse(testUserID, id, 25, time.Hour))
		}

		status, err := e.badges.Recompute(ctx, testUserID)
		require.NoError(t, err)
		assert.Equal(t, 20, status.Metrics.DaysInactive)
		assert.Equal(t, model.TierAbsent, status.Tier)
	})

	t.Run("upgrade notifies and mails", func(t *testing.T) {
		e := newTestEnv(t)
		e.events.add(testUserID, model.EventLogin, fixedNow)

		first, err := e.badges.Recompute(ctx, testUserID)
		require.NoError(t, err)
		assert.Equal(t, model.TierCurieux, first.Tier)
		assert.Empty(t, e.mailer.subjects())

		e.activity.records = append(e.activity.records, completedCourse(testUserID, 7, 1, 3*time.Hour))
		second, err := e.badges.Recompute(ctx, testUserID)
		require.NoError(t, err)
		assert.Equal(t, model.TierExplorateur, second.Tier)

		notifications, err := e.notifications.List(ctx, testUserID)
		require.NoError(t, err)
		require.Len(t, notifications, 1)
		assert.Equal(t, model.NotifyBadge, notifications[0].Type)
		assert.Contains(t, notifications[0].Message, "explorateur")
		assert.Equal(t, []string{"Nouveau badge débloqué"}, e.mailer.subjects())
		assert.Len(t, e.events.ofType(model.EventBadgeChanged), 2)
	})

	t.Run("unchanged tier records nothing new", func(t *testing.T) {
		e := newTestEnv(t)
		e.events.add(testUserID, model.EventLogin, fixedNow)

		_, err := e.badges.Recompute(ctx, testUserID)
		require.NoError(t, err)
		_, err = e.badges.Recompute(ctx, testUserID)
		require.NoError(t, err)
		assert.Len(t, e.events.ofType(model.EventBadgeChanged), 1)
	})

	t.Run("metrics failure falls back to curieux", func(t *testing.T) {
		e := newTestEnv(t)
		e.events.failQuery = true

		status, err := e.badges.Recompute(ctx, testUserID)
		require.NoError(t, err)
		assert.Equal(t, model.TierCurieux, status.Tier)
		assert.Nil(t, status.Metrics)
		assert.Equal(t, model.TierCurieux, e.badges.DetermineUserBadge(ctx, testUserID))
	})
}

func TestBadgeServiceSpecialBadges(t *testing.T) {
	ctx := context.Background()

	t.Run("perfectionniste is announced once", func(t *testing.T) {
		e := newTestEnv(t)
		for i := 0; i < 5; i++ {
			e.activity.records = append(e.activity.records, quizRecord(testUserID, uint(i+1), 100, model.StatusPassed, daysAgo(i)))
		}

		status, err := e.badges.Recompute(ctx, testUserID)
		require.NoError(t, err)
		require.Len(t, status.Special, 1)
		assert.Equal(t, model.BadgePerfectionniste, status.Special[0].Badge)
		assert.Equal(t, fixedNow, status.Special[0].EarnedAt)
		assert.Len(t, e.events.ofType(model.EventBadgeEarned), 1)
		assert.Equal(t, []string{"Nouveau badge débloqué"}, e.mailer.subjects())

		_, err = e.badges.Recompute(ctx, testUserID)
		require.NoError(t, err)
		assert.Len(t, e.events.ofType(model.EventBadgeEarned), 1)

		earned, err := e.badges.EarnedBadges(ctx, testUserID)
		require.NoError(t, err)
		assert.Len(t, earned, 1)
	})

	t.Run("earned badges survive losing the condition", func(t *testing.T) {
		e := newTestEnv(t)
		for i := 0; i < 5; i++ {
			e.activity.records = append(e.activity.records, quizRecord(testUserID, uint(i+1), 100, model.StatusPassed, daysAgo(i)))
		}
		_, err := e.badges.Recompute(ctx, testUserID)
		require.NoError(t, err)

		e.activity.records = nil
		status, err := e.badges.Recompute(ctx, testUserID)
		require.NoError(t, err)
		require.Len(t, status.Special, 1)
		assert.Equal(t, model.BadgePerfectionniste, status.Special[0].Badge)
	})

	t.Run("speedrunner against the global average", func(t *testing.T) {
		e := newTestEnv(t)
		e.activity.records = []model.ActivityRecord{
			completedCourse(testUserID, 1, 2, time.Hour),
			completedCourse(2, 1, 3, 10*time.Hour),
			completedCourse(3, 1, 4, 10*time.Hour),
		}

		m, degraded, err := e.badges.ComputeMetrics(ctx, testUserID)
		require.NoError(t, err)
		assert.Empty(t, degraded)
		assert.True(t, m.FastestCompletion)
	})

	t.Run("speedrunner uses the fastest single course", func(t *testing.T) {
		e := newTestEnv(t)
		// 全局平均 10.25 小时；个人平均 10.5 小时，但最快一门只用了 1 小时
		e.activity.records = []model.ActivityRecord{
			completedCourse(testUserID, 1, 2, time.Hour),
			completedCourse(testUserID, 2, 5, 20*time.Hour),
			completedCourse(2, 1, 3, 10*time.Hour),
			completedCourse(3, 1, 4, 10*time.Hour),
		}

		m, _, err := e.badges.ComputeMetrics(ctx, testUserID)
		require.NoError(t, err)
		assert.True(t, m.FastestCompletion)
	})

	t.Run("innovateur from helpful votes", func(t *testing.T) {
		e := newTestEnv(t)
		for i := 0; i < 10; i++ {
			e.events.add(testUserID, model.EventHelpfulVote, daysAgo(40+i))
		}

		status, err := e.badges.Recompute(ctx, testUserID)
		require.NoError(t, err)
		require.Len(t, status.Special, 1)
		assert.Equal(t, model.BadgeInnovateur, status.Special[0].Badge)
		assert.Equal(t, 10, status.Metrics.HelpfulVotes)
	})
}

func TestBadgeServiceDegradedLMS(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.activity.unavailable = true
	e.events.add(testUserID, model.EventLogin, fixedNow)

	m, degraded, err := e.badges.ComputeMetrics(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, []string{SourceLMS}, degraded)
	assert.Equal(t, 1, m.RecentActivityCount)
	assert.Equal(t, 0, m.CompletedCourses)

	status, err := e.badges.Recompute(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, model.TierCurieux, status.Tier)
}

func TestBadgeServiceStreakCache(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	for i := 0; i < 3; i++ {
		e.events.add(testUserID, model.EventLessonCompleted, daysAgo(i))
	}

	days, err := e.badges.RefreshStreak(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 3, days)
	assert.Equal(t, 3, e.badges.cachedStreak(ctx, testUserID))

	e.badges.Now = func() time.Time { return fixedNow.AddDate(0, 0, 1) }
	assert.Equal(t, 0, e.badges.cachedStreak(ctx, testUserID))
}

func TestBadgeServiceAwardPoints(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	total, err := e.badges.AwardPoints(ctx, testUserID, model.EventLogin, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	total, err = e.badges.AwardPoints(ctx, testUserID, model.EventQuizCompleted, map[string]interface{}{"score": 100.0})
	require.NoError(t, err)
	assert.Equal(t, 31, total)

	total, err = e.badges.AwardPoints(ctx, testUserID, model.EventChatMessage, nil)
	require.NoError(t, err)
	assert.Equal(t, 31, total)

	stored, err := e.badges.TotalPoints(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 31, stored)
}

func TestBadgeServiceTopLearners(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	for id := uint(2); id <= 10; id++ {
		e.users.add(model.User{BaseModel: model.BaseModel{ID: id}, Name: "learner", Email: "learner@example.com"})
	}
	for c := uint(1); c <= 3; c++ {
		e.activity.records = append(e.activity.records, completedCourse(testUserID, c, 5, 5*time.Hour))
	}
	e.activity.records = append(e.activity.records, completedCourse(2, 1, 5, 5*time.Hour))

	n, err := e.badges.RefreshTopLearners(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	top, err := e.badges.IsTopLearner(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, top)

	// 前面只有一人：1/10 = 10%，仍在前 10%
	top, err = e.badges.IsTopLearner(ctx, 2)
	require.NoError(t, err)
	assert.True(t, top)

	top, err = e.badges.IsTopLearner(ctx, 3)
	require.NoError(t, err)
	assert.False(t, top)

	top, err = e.badges.IsTopLearner(ctx, 99)
	require.NoError(t, err)
	assert.False(t, top)

	status, err := e.badges.Recompute(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, status.Metrics.TopLearner)
	badges := make([]model.SpecialBadge, 0, len(status.Special))
	for _, b := range status.Special {
		badges = append(badges, b.Badge)
	}
	assert.Contains(t, badges, model.BadgeChampion)
}

func TestBadgeServiceGetStatusUsesCache(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	first, err := e.badges.GetStatus(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, model.TierAbsent, first.Tier)

	// 新活动不会改变缓存，直到重新计算
	e.events.add(testUserID, model.EventLogin, fixedNow)
	cached, err := e.badges.GetStatus(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, model.TierAbsent, cached.Tier)

	fresh, err := e.badges.Recompute(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, model.TierCurieux, fresh.Tier)
}
