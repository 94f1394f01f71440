package service

import (
	"context"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingServiceHandle(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	result, err := e.tracking.Handle(ctx, testUserID, "quiz-completed", map[string]interface{}{"score": 100.0})
	require.NoError(t, err)
	assert.Equal(t, model.EventQuizCompleted, result.EventType)
	assert.Equal(t, 1, result.StreakDays)
	assert.Equal(t, 30, result.TotalPoints)
	require.NotNil(t, result.Badge)
	assert.Equal(t, model.TierCurieux, result.Badge.Tier)

	result, err = e.tracking.Handle(ctx, testUserID, "lesson_completed", nil)
	require.NoError(t, err)
	assert.Equal(t, 40, result.TotalPoints)
	assert.Len(t, e.events.ofType(model.EventLessonCompleted), 1)
}

func TestTrackingServiceRejectsInternalEvents(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	for _, typ := range []string{"login", "badge_earned", "parcours-completed", "teleported"} {
		_, err := e.tracking.Handle(ctx, testUserID, typ, nil)
		assert.ErrorIs(t, err, util.ErrUnknownEventType, typ)
	}
	assert.Empty(t, e.events.events)
}

func TestTrackingServiceStoreFailure(t *testing.T) {
	e := newTestEnv(t)
	e.events.failCreate = true

	_, err := e.tracking.Handle(context.Background(), testUserID, "forum_post", nil)
	assert.ErrorIs(t, err, errStore)
}
