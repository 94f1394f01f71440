package repository

import (
	"context"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

// ActivityRepository 只读访问 LMS 的用户条目表
type ActivityRepository struct {
	DB    *gorm.DB
	Table string

	present atomic.Bool
}

func NewActivityRepository(db *gorm.DB, table string) *ActivityRepository {
	if table == "" {
		table = model.ActivityRecord{}.TableName()
	}
	return &ActivityRepository{DB: db, Table: table}
}

// source 在表不存在时返回 ErrSourceUnavailable
func (r *ActivityRepository) source(ctx context.Context) (*gorm.DB, error) {
	db := r.DB.WithContext(ctx)
	if !r.present.Load() {
		if !db.Migrator().HasTable(r.Table) {
			return nil, util.ErrSourceUnavailable
		}
		r.present.Store(true)
	}
	return db.Table(r.Table), nil
}

// Available LMS 表是否存在
func (r *ActivityRepository) Available(ctx context.Context) bool {
	_, err := r.source(ctx)
	return err == nil
}

// ListForUser 返回用户的条目；itemType 为空表示全部类型，since 为零值表示不限时间
func (r *ActivityRepository) ListForUser(ctx context.Context, userID uint, itemType model.ItemType, since time.Time) ([]model.ActivityRecord, error) {
	q, err := r.source(ctx)
	if err != nil {
		return nil, err
	}
	q = q.Where("user_id = ?", userID)
	if itemType != "" {
		q = q.Where("item_type = ?", itemType)
	}
	if !since.IsZero() {
		q = q.Where("(start_time >= ? OR end_time >= ?)", since, since)
	}
	var records []model.ActivityRecord
	err = q.Order("user_item_id ASC").Find(&records).Error
	return records, err
}

// CountDoneInCourse 统计用户在课程中已完成的条目数
func (r *ActivityRepository) CountDoneInCourse(ctx context.Context, userID, courseID uint) (int, error) {
	q, err := r.source(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	err = q.Where("user_id = ? AND ref_id = ? AND item_type <> ? AND status IN ?",
		userID, courseID, model.ItemCourse, model.DoneStatuses).
		Distinct("item_id").
		Count(&count).Error
	return int(count), err
}

type userAverage struct {
	UserID  uint
	Average float64
}

// AverageQuizScores 每个至少完成过一次测验的用户的平均分
func (r *ActivityRepository) AverageQuizScores(ctx context.Context) (map[uint]float64, error) {
	q, err := r.source(ctx)
	if err != nil {
		return nil, err
	}
	var rows []userAverage
	err = q.Select("user_id, AVG(graduation_score) AS average").
		Where("item_type = ? AND status IN ? AND graduation_score IS NOT NULL",
			model.ItemQuiz, []model.ItemStatus{model.StatusCompleted, model.StatusPassed, model.StatusFailed}).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]float64, len(rows))
	for _, row := range rows {
		out[row.UserID] = row.Average
	}
	return out, nil
}

// CountDoneByUser 按用户统计某类型已完成条目数
func (r *ActivityRepository) CountDoneByUser(ctx context.Context, itemType model.ItemType) (map[uint]int, error) {
	q, err := r.source(ctx)
	if err != nil {
		return nil, err
	}
	var rows []userCount
	err = q.Select("user_id, COUNT(*) AS total").
		Where("item_type = ? AND status IN ?", itemType, model.DoneStatuses).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]int, len(rows))
	for _, row := range rows {
		out[row.UserID] = row.Total
	}
	return out, nil
}

// PerfectQuizzesByUser 按用户统计满分测验数
func (r *ActivityRepository) PerfectQuizzesByUser(ctx context.Context) (map[uint]int, error) {
	q, err := r.source(ctx)
	if err != nil {
		return nil, err
	}
	var rows []userCount
	err = q.Select("user_id, COUNT(*) AS total").
		Where("item_type = ? AND graduation_score = ?", model.ItemQuiz, 100).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]int, len(rows))
	for _, row := range rows {
		out[row.UserID] = row.Total
	}
	return out, nil
}

// CompletedCourseDurations 所有用户已完成课程的耗时
func (r *ActivityRepository) CompletedCourseDurations(ctx context.Context) ([]time.Duration, error) {
	q, err := r.source(ctx)
	if err != nil {
		return nil, err
	}
	var records []model.ActivityRecord
	err = q.Select("start_time, end_time").
		Where("item_type = ? AND status IN ? AND start_time IS NOT NULL AND end_time IS NOT NULL",
			model.ItemCourse, model.DoneStatuses).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]time.Duration, 0, len(records))
	for _, rec := range records {
		if d, ok := rec.Duration(); ok && d >= 0 {
			out = append(out, d)
		}
	}
	return out, nil
}
