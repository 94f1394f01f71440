package repository

import (
	"context"
	"learner_dashboard/internal/model"
	"time"

	"gorm.io/gorm"
)

type MembershipRepository struct {
	DB *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{DB: db}
}

// FindActive 返回用户在 at 时刻有效的会员等级，没有则返回 nil
func (r *MembershipRepository) FindActive(ctx context.Context, userID uint, at time.Time) (*model.Membership, error) {
	var memberships []model.Membership
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date DESC").
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	for i := range memberships {
		if memberships[i].ActiveAt(at) {
			return &memberships[i], nil
		}
	}
	return nil, nil
}
