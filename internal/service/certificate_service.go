package service

import (
	"bytes"
	"context"
	"fmt"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"learner_dashboard/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CertificateService 生成路径完成证书并上传到存储
type CertificateService struct {
	Storage *StorageService
	Certs   CertificateStore
}

func NewCertificateService(storage *StorageService, certs CertificateStore) *CertificateService {
	return &CertificateService{Storage: storage, Certs: certs}
}

// RenderCertificate 证书正文（纯文本）
func RenderCertificate(number string, user *model.User, p model.Parcours, issuedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CERTIFICAT DE RÉUSSITE\n\n")
	fmt.Fprintf(&b, "Décerné à : %s\n", user.Name)
	fmt.Fprintf(&b, "Parcours : %s\n", p.Name)
	fmt.Fprintf(&b, "Durée : %d mois (%d semaines)\n", len(p.Months), p.TotalWeeks())
	fmt.Fprintf(&b, "Date : %s\n", issuedAt.Format(util.DateFormat))
	fmt.Fprintf(&b, "Numéro : %s\n", number)
	return b.String()
}

func (s *CertificateService) Issue(ctx context.Context, user *model.User, p model.Parcours, issuedAt time.Time) (*model.Certificate, error) {
	number := model.CertificateNumber(issuedAt)
	body := []byte(RenderCertificate(number, user, p, issuedAt))
	filename := fmt.Sprintf("certificates/%d/%s.txt", user.ID, number)

	url, err := s.Storage.Put(ctx, filename, bytes.NewReader(body), int64(len(body)), "text/plain; charset=utf-8")
	if err != nil {
		return nil, fmt.Errorf("upload certificate: %w", err)
	}

	cert := &model.Certificate{
		UserID:     user.ID,
		ParcoursID: p.ID,
		Number:     number,
		URL:        url,
		IssuedAt:   issuedAt,
	}
	if err := s.Certs.Create(ctx, cert); err != nil {
		if derr := s.Storage.Remove(ctx, filename); derr != nil {
			logger.Log.Warn("证书文件清理失败", zap.String("file", filename), zap.Error(derr))
		}
		return nil, fmt.Errorf("save certificate: %w", err)
	}
	return cert, nil
}

func (s *CertificateService) List(ctx context.Context, userID uint) ([]model.Certificate, error) {
	return s.Certs.ListByUser(ctx, userID)
}
