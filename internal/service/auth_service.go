package service

import (
	"context"
	"errors"
	"learner_dashboard/internal/config"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"learner_dashboard/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	Users   UserStore
	Tracker *EventService
	Badges  *BadgeService
	Cfg     *config.Config
	Now     func() time.Time
}

func NewAuthService(users UserStore, tracker *EventService, badges *BadgeService, cfg *config.Config) *AuthService {
	return &AuthService{Users: users, Tracker: tracker, Badges: badges, Cfg: cfg, Now: time.Now}
}

// Login 校验密码并签发 JWT；登录事件、连续天数、积分与徽章在同一请求内更新
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.Users.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, util.ErrInvalidCredential
	}
	if err != nil {
		return "", nil, err
	}
	if user.Disabled {
		return "", nil, util.ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredential
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}

	if err := s.Users.UpdateLastLogin(ctx, user.ID, s.Now()); err != nil {
		logger.Log.Warn("更新最后登录时间失败", zap.Uint("userID", user.ID), zap.Error(err))
	}
	s.Tracker.Track(ctx, user.ID, model.EventLogin, nil)
	if _, err := s.Badges.RefreshStreak(ctx, user.ID); err != nil {
		logger.Log.Warn("连续天数更新失败", zap.Uint("userID", user.ID), zap.Error(err))
	}
	if _, err := s.Badges.AwardPoints(ctx, user.ID, model.EventLogin, nil); err != nil {
		logger.Log.Warn("积分更新失败", zap.Uint("userID", user.ID), zap.Error(err))
	}
	if _, err := s.Badges.Recompute(ctx, user.ID); err != nil {
		logger.Log.Warn("徽章重算失败", zap.Uint("userID", user.ID), zap.Error(err))
	}
	return token, user, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*model.User, error) {
	return s.Users.FindByID(ctx, userID)
}
