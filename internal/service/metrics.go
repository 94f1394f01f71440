package service

import (
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"math"
	"sort"
	"time"
)

const (
	// SessionGap 两次事件间隔超过该值视为新会话
	SessionGap = 30 * time.Minute

	streakLookbackDays = 365
	engagementTermCap  = 25.0
)

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(util.DateFormat)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LearningStreak 从今天往回数连续有活动的自然日，今天没有活动时为 0
func LearningStreak(times []time.Time, now time.Time, loc *time.Location) int {
	if len(times) == 0 {
		return 0
	}
	days := make(map[string]bool, len(times))
	for _, t := range times {
		days[dayKey(t, loc)] = true
	}

	today := startOfDay(now, loc)
	streak := 0
	for i := 0; i < streakLookbackDays; i++ {
		if !days[today.AddDate(0, 0, -i).Format(util.DateFormat)] {
			break
		}
		streak++
	}
	return streak
}

// ActiveDays 不同的活跃自然日数
func ActiveDays(times []time.Time, loc *time.Location) int {
	days := make(map[string]struct{}, len(times))
	for _, t := range times {
		days[dayKey(t, loc)] = struct{}{}
	}
	return len(days)
}

// ConsistencyScore = 活跃天数 / 窗口天数 × 100
func ConsistencyScore(activeDays, windowDays int) float64 {
	if windowDays <= 0 {
		return 0
	}
	score := float64(activeDays) / float64(windowDays) * 100
	return round2(math.Min(score, 100))
}

// EngagementInputs 参与度评分的四项原始指标
type EngagementInputs struct {
	LoginFrequency     float64 // 每周登录次数
	SessionMinutes     float64 // 平均会话分钟数
	InteractionRate    float64 // 每个活跃日的事件数
	CompletionVelocity float64 // 每周完成数
}

func capTerm(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return math.Min(v, engagementTermCap)
}

// EngagementScore 每项先单独封顶 25 再求和，结果在 [0, 100]
func EngagementScore(in EngagementInputs) float64 {
	score := capTerm(in.LoginFrequency*10) +
		capTerm(in.SessionMinutes/2) +
		capTerm(in.InteractionRate*2) +
		capTerm(in.CompletionVelocity*5)
	return round2(score)
}

// RetentionRisk 按参与度评分分档
func RetentionRisk(score float64) string {
	switch {
	case score >= 80:
		return "low"
	case score >= 60:
		return "medium"
	case score >= 40:
		return "high"
	default:
		return "critical"
	}
}

// EstimateSessions 按 30 分钟间隔切分会话，返回会话数与平均时长（分钟）
func EstimateSessions(times []time.Time) (int, float64) {
	if len(times) == 0 {
		return 0, 0
	}
	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	sessions := 1
	var total time.Duration
	start, last := sorted[0], sorted[0]
	for _, t := range sorted[1:] {
		if t.Sub(last) > SessionGap {
			total += last.Sub(start)
			sessions++
			start = t
		}
		last = t
	}
	total += last.Sub(start)

	return sessions, round2(total.Minutes() / float64(sessions))
}

// PercentileRank 平均分严格低于该用户的其他用户数 / 有测验成绩的用户总数 × 100
func PercentileRank(userID uint, averages map[uint]float64) float64 {
	mine, ok := averages[userID]
	if !ok || len(averages) == 0 {
		return 0
	}
	lower := 0
	for id, avg := range averages {
		if id != userID && avg < mine {
			lower++
		}
	}
	return round2(float64(lower) / float64(len(averages)) * 100)
}

// ComputeTrend 与前一个等长窗口比较；前一窗口为 0 时变化固定为 +100%
func ComputeTrend(current, previous int) model.Trend {
	trend := model.Trend{Current: current, Previous: previous}
	if previous == 0 {
		trend.ChangePercent = 100
	} else {
		trend.ChangePercent = round2(float64(current-previous) / float64(previous) * 100)
	}
	switch {
	case trend.ChangePercent > 0:
		trend.Direction = "up"
	case trend.ChangePercent < 0:
		trend.Direction = "down"
	default:
		trend.Direction = "stable"
	}
	return trend
}

// CompletionSpeed 用户平均完成时长与全局平均的比值：< 0.5 为 fast，>= 1.5 为 slow
func CompletionSpeed(userAvg, globalAvg time.Duration) string {
	if userAvg <= 0 || globalAvg <= 0 {
		return "normal"
	}
	ratio := float64(userAvg) / float64(globalAvg)
	switch {
	case ratio < 0.5:
		return "fast"
	case ratio >= 1.5:
		return "slow"
	default:
		return "normal"
	}
}

func averageDuration(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds))
}

// DailyBuckets 窗口内每天的事件数，从最早一天到今天
func DailyBuckets(times []time.Time, windowDays int, now time.Time, loc *time.Location) []model.DailyCount {
	counts := make(map[string]int, windowDays)
	for _, t := range times {
		counts[dayKey(t, loc)]++
	}
	today := startOfDay(now, loc)
	out := make([]model.DailyCount, 0, windowDays)
	for i := windowDays - 1; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format(util.DateFormat)
		out = append(out, model.DailyCount{Date: key, Count: counts[key]})
	}
	return out
}

// MostActiveHour 事件最多的小时，无事件时为 -1；并列时取较早的小时
func MostActiveHour(times []time.Time, loc *time.Location) int {
	if len(times) == 0 {
		return -1
	}
	var hours [24]int
	for _, t := range times {
		hours[t.In(loc).Hour()]++
	}
	best := 0
	for h := 1; h < 24; h++ {
		if hours[h] > hours[best] {
			best = h
		}
	}
	return best
}

func eventTimes(events []model.Event) []time.Time {
	out := make([]time.Time, len(events))
	for i, e := range events {
		out[i] = e.OccurredAt
	}
	return out
}

func perWeek(count, windowDays int) float64 {
	if windowDays <= 0 {
		return 0
	}
	return float64(count) / (float64(windowDays) / 7)
}
