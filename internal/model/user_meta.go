package model

import (
	"time"

	"gorm.io/datatypes"
)

// 用户属性键
const (
	MetaBadgeStatus    = "badge_status"
	MetaEarnedBadges   = "earned_badges"
	MetaTotalPoints    = "total_points"
	MetaLearningStreak = "learning_streak"
	MetaPreferences    = "preferences"
	MetaNotifications  = "notifications"
	MetaParcoursPrefix = "parcours_progress_"
	MetaParcoursDone   = "parcours_completed_"
	MetaLastReportSent = "last_weekly_report"
)

// UserMeta 用户级键值存储，值为 JSON
type UserMeta struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	UserID    uint           `gorm:"uniqueIndex:idx_user_meta_key;not null" json:"user_id"`
	MetaKey   string         `gorm:"uniqueIndex:idx_user_meta_key;size:191;not null" json:"meta_key"`
	MetaValue datatypes.JSON `json:"meta_value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (UserMeta) TableName() string {
	return "user_meta"
}

// Preferences 推荐使用的偏好
type Preferences struct {
	Tags       []string `json:"tags"`
	Categories []string `json:"categories"`
}

// StreakCache 缓存的连续学习天数，Date 为计算当天
type StreakCache struct {
	Days int    `json:"days"`
	Date string `json:"date"`
}
