package model

import (
	"time"

	"gorm.io/datatypes"
)

type EventType string

const (
	EventLogin             EventType = "login"
	EventCourseStarted     EventType = "course_started"
	EventCourseCompleted   EventType = "course_completed"
	EventLessonCompleted   EventType = "lesson_completed"
	EventQuizCompleted     EventType = "quiz_completed"
	EventBadgeChanged      EventType = "badge_changed"
	EventBadgeEarned       EventType = "badge_earned"
	EventPasswordChanged   EventType = "password_changed"
	EventProfileUpdated    EventType = "profile_updated"
	EventWeekChecked       EventType = "parcours_week_checked"
	EventWeekUnchecked     EventType = "parcours_week_unchecked"
	EventParcoursCompleted EventType = "parcours_completed"
	EventCertificateIssued EventType = "certificate_issued"
	EventForumPost         EventType = "forum_post"
	EventHelpfulVote       EventType = "helpful_vote"
	EventChatMessage       EventType = "chat_message"
)

// LearningEventTypes 计入学习活跃度（连续学习天数、活跃天数）的事件
var LearningEventTypes = []EventType{
	EventLogin,
	EventCourseStarted,
	EventCourseCompleted,
	EventLessonCompleted,
	EventQuizCompleted,
	EventWeekChecked,
	EventForumPost,
}

var knownEventTypes = map[EventType]bool{
	EventLogin: true, EventCourseStarted: true, EventCourseCompleted: true, EventLessonCompleted: true,
	EventQuizCompleted: true, EventBadgeChanged: true, EventBadgeEarned: true, EventPasswordChanged: true,
	EventProfileUpdated: true, EventWeekChecked: true, EventWeekUnchecked: true, EventParcoursCompleted: true,
	EventCertificateIssued: true, EventForumPost: true, EventHelpfulVote: true, EventChatMessage: true,
}

func (t EventType) Valid() bool {
	return knownEventTypes[t]
}

func EventTypeStrings(types []EventType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// Event 追加写入的用户事件，写入后不再修改
type Event struct {
	ID         uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint              `gorm:"index:idx_event_user_time,priority:1;not null" json:"user_id"`
	EventType  EventType         `gorm:"size:50;index;not null" json:"event_type"`
	Payload    datatypes.JSONMap `json:"payload"`
	OccurredAt time.Time         `gorm:"index:idx_event_user_time,priority:2;not null" json:"occurred_at"`
}

func (Event) TableName() string {
	return "dashboard_events"
}
