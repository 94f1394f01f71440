package repository

import (
	"context"
	"errors"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Course, error) {
	var courses []model.Course
	if len(ids) == 0 {
		return courses, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) ListPublished(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.WithContext(ctx).Where("published = ?", true).Order("published_at DESC").Find(&courses).Error
	return courses, err
}

// CountItems 课程下的课时与测验总数
func (r *CourseRepository) CountItems(ctx context.Context, courseID uint) (int, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.CourseItem{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	return int(count), err
}
