package model

import "time"

// WeeksPerMonth 每个月固定 4 周
const WeeksPerMonth = 4

// Parcours 静态学习路径模板
type Parcours struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	RequiredLevels []uint          `json:"required_levels"`
	Months         []ParcoursMonth `json:"months"`
}

type ParcoursMonth struct {
	Number  int            `json:"number"`
	Title   string         `json:"title"`
	Weeks   []ParcoursWeek `json:"weeks"`
	Courses []CourseRef    `json:"courses"`
}

type ParcoursWeek struct {
	Number     int      `json:"number"`
	Title      string   `json:"title"`
	Milestones []string `json:"milestones"`
}

type CourseRef struct {
	CourseID uint `json:"course_id"`
	Required bool `json:"required"`
}

// TotalWeeks 路径中的总周数
func (p Parcours) TotalWeeks() int {
	n := 0
	for _, m := range p.Months {
		n += len(m.Weeks)
	}
	return n
}

func (p Parcours) Month(number int) (ParcoursMonth, bool) {
	for _, m := range p.Months {
		if m.Number == number {
			return m, true
		}
	}
	return ParcoursMonth{}, false
}

// CheckedWeeks 每月已勾选的周序号（键为月份序号）
type CheckedWeeks map[int][]int

// ParcoursProgress 用户在某条路径上的进度
type ParcoursProgress struct {
	ParcoursID   string       `json:"parcours_id"`
	Name         string       `json:"name"`
	Checked      CheckedWeeks `json:"checked"`
	CheckedCount int          `json:"checked_count"`
	TotalWeeks   int          `json:"total_weeks"`
	Percentage   int          `json:"percentage"`
	Completed    bool         `json:"completed"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	Unlocked     bool         `json:"unlocked"`
}
