package service

import (
	"context"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/repository"
	"time"
)

// 服务依赖的存储接口，由 internal/repository 中的实现满足，测试中使用内存替身

type EventStore interface {
	Create(ctx context.Context, event *model.Event) error
	Query(ctx context.Context, userID uint, types []model.EventType, since, until time.Time) ([]model.Event, error)
	Count(ctx context.Context, userID uint, types []model.EventType, since, until time.Time) (int, error)
	LastOccurrence(ctx context.Context, userID uint, types []model.EventType) (time.Time, error)
	CountByUser(ctx context.Context, types []model.EventType, since time.Time) (map[uint]int, error)
	DeleteBefore(ctx context.Context, types []model.EventType, before time.Time) (int64, error)
}

type ActivitySource interface {
	ListForUser(ctx context.Context, userID uint, itemType model.ItemType, since time.Time) ([]model.ActivityRecord, error)
	CountDoneInCourse(ctx context.Context, userID, courseID uint) (int, error)
	AverageQuizScores(ctx context.Context) (map[uint]float64, error)
	CountDoneByUser(ctx context.Context, itemType model.ItemType) (map[uint]int, error)
	PerfectQuizzesByUser(ctx context.Context) (map[uint]int, error)
	CompletedCourseDurations(ctx context.Context) ([]time.Duration, error)
}

type CourseStore interface {
	FindByID(ctx context.Context, id uint) (*model.Course, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Course, error)
	ListPublished(ctx context.Context) ([]model.Course, error)
	CountItems(ctx context.Context, courseID uint) (int, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error)
	Update(ctx context.Context, user *model.User) error
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
	ListActive(ctx context.Context) ([]model.User, error)
}

type MetaStore interface {
	Get(ctx context.Context, userID uint, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, userID uint, key string, value interface{}) error
	Delete(ctx context.Context, userID uint, key string) error
}

type ChatStore interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
	History(ctx context.Context, userID uint, limit int) ([]model.ChatMessage, error)
	UserTextsSince(ctx context.Context, since time.Time) ([]string, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type CertificateStore interface {
	Create(ctx context.Context, cert *model.Certificate) error
	ListByUser(ctx context.Context, userID uint) ([]model.Certificate, error)
	CountByUser(ctx context.Context, userID uint) (int, error)
	CountByUsers(ctx context.Context) (map[uint]int, error)
}

type MembershipStore interface {
	FindActive(ctx context.Context, userID uint, at time.Time) (*model.Membership, error)
}

type Leaderboard interface {
	ReplaceScores(ctx context.Context, scores map[uint]float64) error
	Position(ctx context.Context, userID uint) (repository.Rank, bool, error)
}

var (
	_ EventStore       = (*repository.EventRepository)(nil)
	_ ActivitySource   = (*repository.ActivityRepository)(nil)
	_ CourseStore      = (*repository.CourseRepository)(nil)
	_ UserStore        = (*repository.UserRepository)(nil)
	_ MetaStore        = (*repository.UserMetaRepository)(nil)
	_ ChatStore        = (*repository.ChatRepository)(nil)
	_ CertificateStore = (*repository.CertificateRepository)(nil)
	_ MembershipStore  = (*repository.MembershipRepository)(nil)
	_ Leaderboard      = (*repository.LeaderboardRepository)(nil)
)
