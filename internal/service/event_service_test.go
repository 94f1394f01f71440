package service

import (
	"context"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventServiceRecordEvent(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	require.NoError(t, e.tracker.RecordEvent(ctx, testUserID, model.EventLessonCompleted, map[string]interface{}{"course_id": 3}))
	require.NoError(t, e.tracker.RecordEvent(ctx, testUserID, model.EventLessonCompleted, nil))

	events := e.events.ofType(model.EventLessonCompleted)
	require.Len(t, events, 2)
	assert.Equal(t, fixedNow, events[0].OccurredAt)
	assert.NotNil(t, events[1].Payload)

	err := e.tracker.RecordEvent(ctx, testUserID, model.EventType("teleported"), nil)
	assert.ErrorIs(t, err, util.ErrUnknownEventType)

	e.events.failCreate = true
	err = e.tracker.RecordEvent(ctx, testUserID, model.EventLogin, nil)
	assert.ErrorIs(t, err, errStore)
}

func TestEventServiceTrackIsBestEffort(t *testing.T) {
	e := newTestEnv(t)
	e.events.failCreate = true

	assert.NotPanics(t, func() {
		e.tracker.Track(context.Background(), testUserID, model.EventLogin, nil)
	})
	assert.Empty(t, e.events.events)
}

func TestEventServiceQueryEvents(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.events.add(testUserID, model.EventLogin, daysAgo(10))
	e.events.add(testUserID, model.EventLessonCompleted, daysAgo(3))
	e.events.add(testUserID, model.EventLogin, daysAgo(1))
	e.events.add(2, model.EventLogin, daysAgo(1))

	all, err := e.tracker.QueryEvents(ctx, testUserID, nil, daysAgo(7), time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.EventLessonCompleted, all[0].EventType)

	logins, err := e.tracker.QueryEvents(ctx, testUserID, []string{"login"}, time.Time{}, fixedNow)
	require.NoError(t, err)
	assert.Len(t, logins, 2)

	// 边界包含在窗口内
	edge, err := e.tracker.QueryEvents(ctx, testUserID, nil, daysAgo(3), daysAgo(3))
	require.NoError(t, err)
	assert.Len(t, edge, 1)

	_, err = e.tracker.QueryEvents(ctx, testUserID, []string{"login", "nope"}, time.Time{}, fixedNow)
	assert.ErrorIs(t, err, util.ErrUnknownEventType)

	n, err := e.tracker.CountEvents(ctx, testUserID, []model.EventType{model.EventLogin}, daysAgo(30), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEventServicePruneEvents(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.events.add(testUserID, model.EventLogin, daysAgo(100))
	e.events.add(testUserID, model.EventCourseCompleted, daysAgo(100))
	e.events.add(testUserID, model.EventLogin, daysAgo(5))

	removed, err := e.tracker.PruneEvents(ctx, []model.EventType{model.EventLogin}, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Len(t, e.events.events, 2)
	assert.Len(t, e.events.ofType(model.EventCourseCompleted), 1)
}
