package model

import "time"

type Certificate struct {
	BaseModel
	UserID     uint      `gorm:"index;not null" json:"userId"`
	ParcoursID string    `gorm:"size:64;index" json:"parcoursId"`
	Number     string    `gorm:"size:36;uniqueIndex" json:"number"`
	URL        string    `gorm:"size:512" json:"url"`
	IssuedAt   time.Time `json:"issuedAt"`
}

func (Certificate) TableName() string {
	return "certificates"
}
