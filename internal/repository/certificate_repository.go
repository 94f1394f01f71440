package repository

import (
	"context"
	"learner_dashboard/internal/model"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) Create(ctx context.Context, cert *model.Certificate) error {
	return r.DB.WithContext(ctx).Create(cert).Error
}

func (r *CertificateRepository) ListByUser(ctx context.Context, userID uint) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("issued_at DESC").Find(&certs).Error
	return certs, err
}

func (r *CertificateRepository) CountByUsers(ctx context.Context) (map[uint]int, error) {
	var rows []userCount
	err := r.DB.WithContext(ctx).Model(&model.Certificate{}).
		Select("user_id, COUNT(*) AS total").
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

func (r *CertificateRepository) CountByUser(ctx context.Context, userID uint) (int, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Certificate{}).Where("user_id = ?", userID).Count(&count).Error
	return int(count), err
}
