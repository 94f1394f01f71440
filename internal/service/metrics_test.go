package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLearningStreak(t *testing.T) {
	loc := time.UTC

	t.Run("consecutive days ending today", func(t *testing.T) {
		times := []time.Time{fixedNow, daysAgo(1), daysAgo(1).Add(-time.Hour), daysAgo(2)}
		assert.Equal(t, 3, LearningStreak(times, fixedNow, loc))
	})

	t.Run("gap breaks the streak", func(t *testing.T) {
		times := []time.Time{fixedNow, daysAgo(2), daysAgo(3)}
		assert.Equal(t, 1, LearningStreak(times, fixedNow, loc))
	})

	t.Run("no activity today", func(t *testing.T) {
		times := []time.Time{daysAgo(1), daysAgo(2)}
		assert.Equal(t, 0, LearningStreak(times, fixedNow, loc))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0, LearningStreak(nil, fixedNow, loc))
	})

	t.Run("days follow the configured zone", func(t *testing.T) {
		paris := time.FixedZone("CET", 3600)
		// 23:30 UTC 的前一天在 UTC+1 已是今天
		late := time.Date(2024, 3, 12, 23, 30, 0, 0, time.UTC)
		assert.Equal(t, 0, LearningStreak([]time.Time{late}, fixedNow, loc))
		assert.Equal(t, 1, LearningStreak([]time.Time{late}, fixedNow, paris))
	})
}

func TestComputeTrend(t *testing.T) {
	tests := []struct {
		name      string
		current   int
		previous  int
		change    float64
		direction string
	}{
		{"previous empty", 5, 0, 100, "up"},
		{"both empty", 0, 0, 100, "up"},
		{"unchanged", 4, 4, 0, "stable"},
		{"halved", 2, 4, -50, "down"},
		{"one third up", 4, 3, 33.33, "up"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trend := ComputeTrend(tt.current, tt.previous)
			assert.Equal(t, tt.change, trend.ChangePercent)
			assert.Equal(t, tt.direction, trend.Direction)
			assert.Equal(t, tt.current, trend.Current)
			assert.Equal(t, tt.previous, trend.Previous)
		})
	}
}

func TestEngagementScore(t *testing.T) {
	assert.Equal(t, 0.0, EngagementScore(EngagementInputs{}))

	capped := EngagementScore(EngagementInputs{
		LoginFrequency:     100,
		SessionMinutes:     1000,
		InteractionRate:    500,
		CompletionVelocity: 40,
	})
	assert.Equal(t, 100.0, capped)

	// 单项超限不会挤占其他项
	oneHeavy := EngagementScore(EngagementInputs{LoginFrequency: 1000})
	assert.Equal(t, 25.0, oneHeavy)

	mixed := EngagementScore(EngagementInputs{
		LoginFrequency:     1.5, // 15
		SessionMinutes:     20,  // 10
		InteractionRate:    3,   // 6
		CompletionVelocity: 1,   // 5
	})
	assert.Equal(t, 36.0, mixed)

	assert.Equal(t, 0.0, EngagementScore(EngagementInputs{LoginFrequency: -3}))
}

func TestRetentionRisk(t *testing.T) {
	assert.Equal(t, "low", RetentionRisk(80))
	assert.Equal(t, "medium", RetentionRisk(79.99))
	assert.Equal(t, "medium", RetentionRisk(60))
	assert.Equal(t, "high", RetentionRisk(40))
	assert.Equal(t, "critical", RetentionRisk(39.5))
	assert.Equal(t, "critical", RetentionRisk(0))
}

func TestConsistencyScore(t *testing.T) {
	assert.Equal(t, 50.0, ConsistencyScore(15, 30))
	assert.Equal(t, 100.0, ConsistencyScore(40, 30))
	assert.Equal(t, 0.0, ConsistencyScore(3, 0))
}

func TestEstimateSessions(t *testing.T) {
	base := fixedNow.Add(-5 * time.Hour)
	times := []time.Time{
		base.Add(20 * time.Minute), // 乱序输入
		base,
		base.Add(40 * time.Minute),
		base.Add(3 * time.Hour),
	}
	sessions, avg := EstimateSessions(times)
	assert.Equal(t, 2, sessions)
	assert.Equal(t, 20.0, avg)

	sessions, avg = EstimateSessions(nil)
	assert.Equal(t, 0, sessions)
	assert.Equal(t, 0.0, avg)
}

func TestPercentileRank(t *testing.T) {
	averages := map[uint]float64{1: 90, 2: 70, 3: 90, 4: 50}

	assert.Equal(t, 50.0, PercentileRank(1, averages))
	assert.Equal(t, 25.0, PercentileRank(2, averages))
	assert.Equal(t, 0.0, PercentileRank(4, averages))
	assert.Equal(t, 0.0, PercentileRank(9, averages))
	assert.Equal(t, 0.0, PercentileRank(1, map[uint]float64{1: 80}))
}

func TestCompletionSpeed(t *testing.T) {
	global := 10 * time.Hour
	assert.Equal(t, "fast", CompletionSpeed(4*time.Hour, global))
	assert.Equal(t, "normal", CompletionSpeed(5*time.Hour, global))
	assert.Equal(t, "slow", CompletionSpeed(15*time.Hour, global))
	assert.Equal(t, "normal", CompletionSpeed(0, global))
	assert.Equal(t, "normal", CompletionSpeed(time.Hour, 0))
}

func TestDailyBuckets(t *testing.T) {
	times := []time.Time{fixedNow, fixedNow.Add(-time.Hour), daysAgo(2), daysAgo(10)}
	buckets := DailyBuckets(times, 3, fixedNow, time.UTC)

	if assert.Len(t, buckets, 3) {
		assert.Equal(t, "2024-03-11", buckets[0].Date)
		assert.Equal(t, 1, buckets[0].Count)
		assert.Equal(t, 0, buckets[1].Count)
		assert.Equal(t, "2024-03-13", buckets[2].Date)
		assert.Equal(t, 2, buckets[2].Count)
	}
}

func TestMostActiveHour(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 3, 10, h, 15, 0, 0, time.UTC) }

	assert.Equal(t, -1, MostActiveHour(nil, time.UTC))
	assert.Equal(t, 9, MostActiveHour([]time.Time{at(9), at(9), at(14)}, time.UTC))
	assert.Equal(t, 8, MostActiveHour([]time.Time{at(14), at(8)}, time.UTC))
}

func TestPerWeek(t *testing.T) {
	assert.Equal(t, 3.0, perWeek(3, 7))
	assert.Equal(t, 1.0, perWeek(2, 14))
	assert.Equal(t, 0.0, perWeek(5, 0))
}
