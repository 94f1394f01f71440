package model

// AnalyticsCategory 分析报表类别
type AnalyticsCategory string

const (
	CategoryOverview    AnalyticsCategory = "overview"
	CategoryCourses     AnalyticsCategory = "courses"
	CategoryActivity    AnalyticsCategory = "activity"
	CategoryPerformance AnalyticsCategory = "performance"
	CategoryEngagement  AnalyticsCategory = "engagement"
)

// AnalyticsReport 单个类别的报表，Data 为对应类别的结构
type AnalyticsReport struct {
	UserID          uint              `json:"user_id"`
	Category        AnalyticsCategory `json:"category"`
	WindowDays      int               `json:"window_days"`
	GeneratedAt     string            `json:"generated_at"`
	Data            interface{}       `json:"data"`
	DegradedSources []string          `json:"degraded_sources,omitempty"`
}

// UserMetric 按需计算的用户指标
type UserMetric struct {
	TotalEvents        int     `json:"total_events"`
	TotalTimeMinutes   int     `json:"total_time_minutes"`
	CoursesStarted     int     `json:"courses_started"`
	CoursesCompleted   int     `json:"courses_completed"`
	QuizzesCompleted   int     `json:"quizzes_completed"`
	AverageQuizScore   float64 `json:"average_quiz_score"`
	LearningStreakDays int     `json:"learning_streak_days"`
	EngagementScore    float64 `json:"engagement_score"`
	CompletionRate     float64 `json:"completion_rate"`
}

// Trend 当前窗口与前一等长窗口的对比
type Trend struct {
	Current       int     `json:"current"`
	Previous      int     `json:"previous"`
	ChangePercent float64 `json:"change_percent"`
	Direction     string  `json:"direction"` // up, down, stable
}

type OverviewReport struct {
	UserMetric
	Trend Trend `json:"trend"`
}

type CourseProgress struct {
	CourseID       uint   `json:"course_id"`
	Title          string `json:"title,omitempty"`
	Status         string `json:"status,omitempty"`
	TotalItems     int    `json:"total_items"`
	CompletedItems int    `json:"completed_items"`
	Percentage     int    `json:"percentage"`
}

type CoursesReport struct {
	Enrolled              int              `json:"enrolled"`
	InProgress            int              `json:"in_progress"`
	Completed             int              `json:"completed"`
	CompletionRate        float64          `json:"completion_rate"`
	AverageCompletionDays float64          `json:"average_completion_days"`
	CompletionSpeed       string           `json:"completion_speed"`
	Courses               []CourseProgress `json:"courses"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type ActivityReport struct {
	Daily            []DailyCount   `json:"daily"`
	ByType           map[string]int `json:"by_type"`
	ActiveDays       int            `json:"active_days"`
	ConsistencyScore float64        `json:"consistency_score"`
	MostActiveHour   int            `json:"most_active_hour"`
	LearningStreak   int            `json:"learning_streak"`
	Trend            Trend          `json:"trend"`
}

type ScorePoint struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

type PerformanceReport struct {
	QuizzesCompleted int          `json:"quizzes_completed"`
	AverageScore     float64      `json:"average_score"`
	BestScore        float64      `json:"best_score"`
	PerfectScores    int          `json:"perfect_scores"`
	Passed           int          `json:"passed"`
	Failed           int          `json:"failed"`
	PassRate         float64      `json:"pass_rate"`
	PercentileRank   float64      `json:"percentile_rank"`
	ScoreHistory     []ScorePoint `json:"score_history"`
}

type EngagementReport struct {
	LoginFrequency        float64 `json:"login_frequency"`
	AverageSessionMinutes float64 `json:"average_session_minutes"`
	SessionCount          int     `json:"session_count"`
	InteractionRate       float64 `json:"interaction_rate"`
	CompletionVelocity    float64 `json:"completion_velocity"`
	EngagementScore       float64 `json:"engagement_score"`
	RetentionRisk         string  `json:"retention_risk"`
}
