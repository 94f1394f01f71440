package repository

import (
	"context"
	"encoding/json"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"learner_dashboard/pkg/database"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var now = time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return now.AddDate(0, 0, -n) }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "dashboard.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(openTestDB(t))

	for _, e := range []model.Event{
		{UserID: 1, EventType: model.EventLogin, OccurredAt: daysAgo(40)},
		{UserID: 1, EventType: model.EventLessonCompleted, OccurredAt: daysAgo(5), Payload: map[string]interface{}{"lesson_id": 3}},
		{UserID: 1, EventType: model.EventLogin, OccurredAt: daysAgo(1)},
		{UserID: 2, EventType: model.EventLogin, OccurredAt: daysAgo(1)},
	} {
		e := e
		require.NoError(t, repo.Create(ctx, &e))
	}

	events, err := repo.Query(ctx, 1, nil, daysAgo(30), now)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventLessonCompleted, events[0].EventType)
	// 读回的数字是 json.Number
	assert.Equal(t, json.Number("3"), events[0].Payload["lesson_id"])
	assert.Less(t, events[0].ID, events[1].ID)

	n, err := repo.Count(ctx, 1, []model.EventType{model.EventLogin}, daysAgo(30), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	last, err := repo.LastOccurrence(ctx, 1, []model.EventType{model.EventLessonCompleted})
	require.NoError(t, err)
	assert.True(t, last.Equal(daysAgo(5)), last)

	last, err = repo.LastOccurrence(ctx, 3, nil)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	byUser, err := repo.CountByUser(ctx, []model.EventType{model.EventLogin}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{1: 2, 2: 1}, byUser)

	deleted, err := repo.DeleteBefore(ctx, []model.EventType{model.EventLogin}, daysAgo(30))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestUserMetaRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserMetaRepository(openTestDB(t))

	var streak model.StreakCache
	found, err := repo.Get(ctx, 1, model.MetaLearningStreak, &streak)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set(ctx, 1, model.MetaLearningStreak, model.StreakCache{Days: 2, Date: "2024-03-12"}))
	require.NoError(t, repo.Set(ctx, 1, model.MetaLearningStreak, model.StreakCache{Days: 3, Date: "2024-03-13"}))

	found, err = repo.Get(ctx, 1, model.MetaLearningStreak, &streak)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, model.StreakCache{Days: 3, Date: "2024-03-13"}, streak)

	// 其他用户的同名键互不影响
	found, err = repo.Get(ctx, 2, model.MetaLearningStreak, &streak)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Delete(ctx, 1, model.MetaLearningStreak))
	found, err = repo.Get(ctx, 1, model.MetaLearningStreak, &streak)
	require.NoError(t, err)
	assert.False(t, found)
}

func quiz(userID, itemID uint, score float64, status model.ItemStatus) model.ActivityRecord {
	start := daysAgo(3)
	end := start.Add(10 * time.Minute)
	return model.ActivityRecord{UserID: userID, ItemID: itemID, ItemType: model.ItemQuiz, RefID: 10,
		Status: status, StartTime: &start, EndTime: &end, Score: &score}
}

func TestActivityRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	missing := NewActivityRepository(db, "")
	assert.False(t, missing.Available(ctx))
	_, err := missing.ListForUser(ctx, 1, "", time.Time{})
	assert.ErrorIs(t, err, util.ErrSourceUnavailable)

	require.NoError(t, db.AutoMigrate(&model.ActivityRecord{}))
	repo := NewActivityRepository(db, "")
	assert.True(t, repo.Available(ctx))

	courseStart, courseEnd := daysAgo(6), daysAgo(2)
	lessonEnd := daysAgo(2)
	records := []model.ActivityRecord{
		{UserID: 1, ItemID: 10, ItemType: model.ItemCourse, Status: model.StatusCompleted, StartTime: &courseStart, EndTime: &courseEnd},
		{UserID: 1, ItemID: 11, ItemType: model.ItemLesson, RefID: 10, Status: model.StatusCompleted, EndTime: &lessonEnd},
		{UserID: 1, ItemID: 12, ItemType: model.ItemLesson, RefID: 10, Status: model.StatusStarted},
		quiz(1, 13, 100, model.StatusPassed),
		quiz(1, 14, 40, model.StatusFailed),
		quiz(2, 13, 60, model.StatusPassed),
		quiz(2, 14, 80, model.StatusStarted),
	}
	require.NoError(t, db.Create(&records).Error)

	list, err := repo.ListForUser(ctx, 1, model.ItemLesson, time.Time{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	done, err := repo.CountDoneInCourse(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, done, "completed lesson and passed quiz")

	averages, err := repo.AverageQuizScores(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, averages[1], 0.001)
	assert.InDelta(t, 60.0, averages[2], 0.001)

	perfect, err := repo.PerfectQuizzesByUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{1: 1}, perfect)

	courses, err := repo.CountDoneByUser(ctx, model.ItemCourse)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{1: 1}, courses)

	durations, err := repo.CompletedCourseDurations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{4 * 24 * time.Hour}, durations)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	users := []model.User{
		{Name: "Amina", Email: "amina@example.com", Password: "x"},
		{Name: "Bruno", Email: "bruno@example.com", Password: "x", Disabled: true},
	}
	require.NoError(t, repo.DB.Create(&users).Error)

	found, err := repo.FindByEmail(ctx, "amina@example.com")
	require.NoError(t, err)
	assert.Equal(t, users[0].ID, found.ID)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	taken, err := repo.EmailTaken(ctx, "bruno@example.com", users[0].ID)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.EmailTaken(ctx, "amina@example.com", users[0].ID)
	require.NoError(t, err)
	assert.False(t, taken, "own address is not taken")

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Amina", active[0].Name)

	require.NoError(t, repo.UpdateLastLogin(ctx, users[0].ID, now))
	found, err = repo.FindByID(ctx, users[0].ID)
	require.NoError(t, err)
	assert.True(t, found.LastLogin.Equal(now))
}

func TestMembershipRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMembershipRepository(openTestDB(t))

	expired := daysAgo(10)
	require.NoError(t, repo.DB.Create(&[]model.Membership{
		{UserID: 1, LevelID: 1, StartDate: daysAgo(100), EndDate: &expired, Status: "active"},
		{UserID: 1, LevelID: 2, StartDate: daysAgo(9), Status: "active"},
		{UserID: 2, LevelID: 3, StartDate: daysAgo(9), Status: "cancelled"},
	}).Error)

	m, err := repo.FindActive(ctx, 1, now)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.EqualValues(t, 2, m.LevelID)

	m, err = repo.FindActive(ctx, 2, now)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestChatRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepository(openTestDB(t))

	for i, text := range []string{"bonjour", "mes badges", "merci"} {
		msg := &model.ChatMessage{
			UUIDBase: model.UUIDBase{CreatedAt: daysAgo(40 - 20*i)},
			UserID:   1,
			Type:     model.ChatFromUser,
			Text:     text,
		}
		require.NoError(t, repo.Create(ctx, msg))
		assert.NotEmpty(t, msg.ID)
	}

	history, err := repo.History(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "mes badges", history[0].Text)
	assert.Equal(t, "merci", history[1].Text)

	texts, err := repo.UserTextsSince(ctx, daysAgo(30))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mes badges", "merci"}, texts)

	deleted, err := repo.DeleteBefore(ctx, daysAgo(30))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestCertificateAndCourseRepositories(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	certs := NewCertificateRepository(db)
	courses := NewCourseRepository(db)

	require.NoError(t, certs.Create(ctx, &model.Certificate{UserID: 1, ParcoursID: "data", Number: "LD-1", IssuedAt: daysAgo(2)}))
	require.NoError(t, certs.Create(ctx, &model.Certificate{UserID: 1, ParcoursID: "expert", Number: "LD-2", IssuedAt: daysAgo(1)}))
	assert.Error(t, certs.Create(ctx, &model.Certificate{UserID: 2, Number: "LD-2"}), "numbers are unique")

	list, err := certs.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "LD-2", list[0].Number)

	counts, err := certs.CountByUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{1: 2}, counts)

	course := model.Course{Title: "SQL", Category: "data", Tags: []string{"sql"}, Published: true, PublishedAt: daysAgo(3)}
	require.NoError(t, db.Create(&course).Error)
	require.NoError(t, db.Create(&[]model.CourseItem{{CourseID: course.ID, ItemID: 1}, {CourseID: course.ID, ItemID: 2}}).Error)

	got, err := courses.FindByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"sql"}, []string(got.Tags))

	_, err = courses.FindByID(ctx, 999)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	items, err := courses.CountItems(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, items)
}
