package model

import "time"

type BadgeTier string

const (
	TierAbsent      BadgeTier = "absent"
	TierCurieux     BadgeTier = "curieux"
	TierExplorateur BadgeTier = "explorateur"
	TierAssidu      BadgeTier = "assidu"
	TierAchiever    BadgeTier = "achiever"
	TierMentor      BadgeTier = "mentor"
)

// AllTiers 按等级由低到高排列
var AllTiers = []BadgeTier{TierAbsent, TierCurieux, TierExplorateur, TierAssidu, TierAchiever, TierMentor}

// Rank 返回等级序号，未知等级为 -1
func (t BadgeTier) Rank() int {
	for i, tier := range AllTiers {
		if tier == t {
			return i
		}
	}
	return -1
}

type SpecialBadge string

const (
	BadgeChampion        SpecialBadge = "champion"
	BadgeInnovateur      SpecialBadge = "innovateur"
	BadgePerfectionniste SpecialBadge = "perfectionniste"
	BadgeSpeedrunner     SpecialBadge = "speedrunner"
)

// BadgeMetrics 徽章判定所用的指标快照
type BadgeMetrics struct {
	DaysInactive        int  `json:"days_inactive"`
	ParcoursComplete    bool `json:"parcours_complete"`
	CompletedCourses    int  `json:"completed_courses"`
	RecentActivityCount int  `json:"recent_activity_count"` // 30 天窗口
	RecentActivityScore int  `json:"recent_activity_score"` // 7 天窗口
	StreakDays          int  `json:"streak_days"`
	PerfectQuizzes      int  `json:"perfect_quizzes"`
	Certificates        int  `json:"certificates"`
	ForumPosts          int  `json:"forum_posts"`
	HelpfulVotes        int  `json:"helpful_votes"`
	FastestCompletion   bool `json:"fastest_completion"`
	TopLearner          bool `json:"top_learner"`
}

// EarnedBadge 已获得的特殊徽章，只增不减
type EarnedBadge struct {
	Badge    SpecialBadge `json:"badge"`
	EarnedAt time.Time    `json:"earned_at"`
}

// BadgeStatus 用户当前的徽章状态
type BadgeStatus struct {
	Tier        BadgeTier     `json:"tier"`
	Special     []EarnedBadge `json:"special"`
	TotalPoints int           `json:"total_points"`
	Metrics     *BadgeMetrics `json:"metrics,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
