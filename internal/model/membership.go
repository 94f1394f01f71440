package model

import "time"

// Membership 会员等级（由订阅服务维护，只读）
type Membership struct {
	ID        uint       `gorm:"primaryKey" json:"-"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	LevelID   uint       `gorm:"not null" json:"level_id"`
	LevelName string     `gorm:"size:100" json:"level_name"`
	Status    string     `gorm:"size:20;default:'active'" json:"-"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

func (Membership) TableName() string {
	return "memberships"
}

func (m Membership) ActiveAt(t time.Time) bool {
	if m.Status != "" && m.Status != "active" {
		return false
	}
	if t.Before(m.StartDate) {
		return false
	}
	return m.EndDate == nil || t.Before(*m.EndDate)
}
