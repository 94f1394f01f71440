package model

import (
	"time"

	"gorm.io/datatypes"
)

type Course struct {
	BaseModel
	Title       string                      `gorm:"size:255;not null" json:"title"`
	Category    string                      `gorm:"size:100;index" json:"category"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Students    int                         `gorm:"default:0" json:"students"`
	Rating      float64                     `gorm:"default:0" json:"rating"`
	Published   bool                        `gorm:"default:true" json:"published"`
	PublishedAt time.Time                   `json:"publishedAt"`
}

func (Course) TableName() string {
	return "courses"
}

// CourseItem 课程下的课时/测验
type CourseItem struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	CourseID uint     `gorm:"index;not null" json:"courseId"`
	ItemID   uint     `gorm:"not null" json:"itemId"`
	ItemType ItemType `gorm:"size:45" json:"itemType"`
	Position int      `gorm:"default:0" json:"position"`
}

func (CourseItem) TableName() string {
	return "course_items"
}
