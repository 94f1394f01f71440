package model

import "time"

type ItemType string

const (
	ItemCourse ItemType = "lp_course"
	ItemLesson ItemType = "lp_lesson"
	ItemQuiz   ItemType = "lp_quiz"
)

type ItemStatus string

const (
	StatusEnrolled  ItemStatus = "enrolled"
	StatusStarted   ItemStatus = "started"
	StatusCompleted ItemStatus = "completed"
	StatusPassed    ItemStatus = "passed"
	StatusFailed    ItemStatus = "failed"
)

// DoneStatuses 视为“已完成”的条目状态
var DoneStatuses = []ItemStatus{StatusCompleted, StatusPassed}

// ActivityRecord LMS 的用户条目表（外部拥有，只读）
type ActivityRecord struct {
	UserItemID uint       `gorm:"column:user_item_id;primaryKey" json:"user_item_id"`
	UserID     uint       `gorm:"column:user_id;index" json:"user_id"`
	ItemID     uint       `gorm:"column:item_id" json:"item_id"`
	ItemType   ItemType   `gorm:"column:item_type;size:45" json:"item_type"`
	RefID      uint       `gorm:"column:ref_id" json:"ref_id"`
	Status     ItemStatus `gorm:"column:status;size:45" json:"status"`
	StartTime  *time.Time `gorm:"column:start_time" json:"start_time"`
	EndTime    *time.Time `gorm:"column:end_time" json:"end_time"`
	Score      *float64   `gorm:"column:graduation_score" json:"score"`
}

func (ActivityRecord) TableName() string {
	return "learnpress_user_items"
}

func (r ActivityRecord) Done() bool {
	return r.Status == StatusCompleted || r.Status == StatusPassed
}

// Duration 返回起止时间差，缺少任一时间时 ok 为 false
func (r ActivityRecord) Duration() (time.Duration, bool) {
	if r.StartTime == nil || r.EndTime == nil {
		return 0, false
	}
	return r.EndTime.Sub(*r.StartTime), true
}
