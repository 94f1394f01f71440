package service

import (
	"encoding/json"
	"learner_dashboard/internal/model"
	"math"
	"time"
)

// BadgeRule 有序规则表中的一项：按顺序求值，第一条命中即返回
type BadgeRule struct {
	Name      string
	Predicate func(m model.BadgeMetrics) bool
	Tier      model.BadgeTier
}

// TierRules 等级判定规则。顺序有意义：长期不活跃优先于任何成就
var TierRules = []BadgeRule{
	{"inactive", func(m model.BadgeMetrics) bool { return m.DaysInactive > 14 }, model.TierAbsent},
	{"parcours_complete", func(m model.BadgeMetrics) bool { return m.ParcoursComplete }, model.TierMentor},
	{"three_courses", func(m model.BadgeMetrics) bool { return m.CompletedCourses >= 3 }, model.TierAchiever},
	{"regular", func(m model.BadgeMetrics) bool { return m.RecentActivityCount >= 10 && m.StreakDays >= 7 }, model.TierAssidu},
	{"first_course", func(m model.BadgeMetrics) bool { return m.CompletedCourses >= 1 }, model.TierExplorateur},
	{"some_activity", func(m model.BadgeMetrics) bool { return m.RecentActivityCount >= 1 }, model.TierCurieux},
}

// DetermineBadge 返回第一条命中规则的等级，都不命中时为 absent
func DetermineBadge(m model.BadgeMetrics) model.BadgeTier {
	tier, _ := matchTier(m)
	return tier
}

func matchTier(m model.BadgeMetrics) (model.BadgeTier, string) {
	for _, rule := range TierRules {
		if rule.Predicate(m) {
			return rule.Tier, rule.Name
		}
	}
	return model.TierAbsent, "default"
}

type SpecialRule struct {
	Badge     model.SpecialBadge
	Predicate func(m model.BadgeMetrics) bool
}

const (
	perfectQuizThreshold  = 5
	innovateurForumPosts  = 20
	innovateurHelpfulVote = 10
)

// SpecialRules 特殊徽章各自独立判定
var SpecialRules = []SpecialRule{
	{model.BadgeChampion, func(m model.BadgeMetrics) bool { return m.TopLearner }},
	{model.BadgeInnovateur, func(m model.BadgeMetrics) bool {
		return m.ForumPosts >= innovateurForumPosts || m.HelpfulVotes >= innovateurHelpfulVote
	}},
	{model.BadgePerfectionniste, func(m model.BadgeMetrics) bool { return m.PerfectQuizzes >= perfectQuizThreshold }},
	{model.BadgeSpeedrunner, func(m model.BadgeMetrics) bool { return m.FastestCompletion }},
}

// QualifyingSpecialBadges 当前指标满足条件的特殊徽章
func QualifyingSpecialBadges(m model.BadgeMetrics) []model.SpecialBadge {
	var out []model.SpecialBadge
	for _, rule := range SpecialRules {
		if rule.Predicate(m) {
			out = append(out, rule.Badge)
		}
	}
	return out
}

// MergeEarned 把新满足的徽章并入已获得集合，已有的保持不变，永不移除
func MergeEarned(earned []model.EarnedBadge, qualifying []model.SpecialBadge, now time.Time) ([]model.EarnedBadge, []model.SpecialBadge) {
	have := make(map[model.SpecialBadge]bool, len(earned))
	for _, e := range earned {
		have[e.Badge] = true
	}
	merged := append([]model.EarnedBadge(nil), earned...)
	var added []model.SpecialBadge
	for _, b := range qualifying {
		if have[b] {
			continue
		}
		have[b] = true
		merged = append(merged, model.EarnedBadge{Badge: b, EarnedAt: now})
		added = append(added, b)
	}
	return merged, added
}

// ScoreInputs 排行榜综合分所需的指标
type ScoreInputs struct {
	CompletedCourses int
	RecentActivity   int // 7 天窗口
	StreakDays       int
	PerfectQuizzes   int
	Certificates     int
	ForumPosts       int
	HelpfulVotes     int
}

// CompositeScore 排行榜综合分
func CompositeScore(in ScoreInputs) float64 {
	return float64(100*in.CompletedCourses +
		10*in.RecentActivity +
		20*in.StreakDays +
		50*in.PerfectQuizzes +
		200*in.Certificates +
		5*minInt(in.ForumPosts, 50) +
		10*minInt(in.HelpfulVotes, 20))
}

// TopPercentile 排名百分位（越小越靠前），position 为分数严格更高的人数
func TopPercentile(position, total int) float64 {
	if total <= 0 {
		return 100
	}
	return math.Round(float64(position)/float64(total)*10000) / 100
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// 积分规则
var pointsTable = map[model.EventType]int{
	model.EventLogin:             1,
	model.EventLessonCompleted:   10,
	model.EventQuizCompleted:     20,
	model.EventCourseCompleted:   100,
	model.EventCertificateIssued: 200,
	model.EventParcoursCompleted: 500,
}

const perfectQuizBonus = 10

// PointsFor 事件对应的积分；满分测验额外加分
func PointsFor(eventType model.EventType, payload map[string]interface{}) int {
	points := pointsTable[eventType]
	if eventType == model.EventQuizCompleted && payloadFloat(payload, "score") >= 100 {
		points += perfectQuizBonus
	}
	return points
}

// payloadFloat 读取数值字段；从数据库读回的 JSON 数字是 json.Number
func payloadFloat(payload map[string]interface{}, key string) float64 {
	switch v := payload[key].(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	}
	return 0
}
