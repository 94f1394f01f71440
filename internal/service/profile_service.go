package service

import (
	"context"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// ProfileService 修改密码与邮箱。输入校验失败以 ValidationError 返回
type ProfileService struct {
	Users         UserStore
	Tracker       *EventService
	Notifications *NotificationService
	Mail          *MailService
}

func NewProfileService(users UserStore, tracker *EventService, notifications *NotificationService, mail *MailService) *ProfileService {
	return &ProfileService{Users: users, Tracker: tracker, Notifications: notifications, Mail: mail}
}

func (s *ProfileService) ChangePassword(ctx context.Context, userID uint, current, next, confirm string) error {
	switch {
	case current == "":
		return util.NewValidationError("current_password", "Le mot de passe actuel est requis")
	case len(next) < minPasswordLength:
		return util.NewValidationError("new_password", "Le nouveau mot de passe doit contenir au moins 8 caractères")
	case next != confirm:
		return util.NewValidationError("confirm_password", "Les mots de passe ne correspondent pas")
	case next == current:
		return util.NewValidationError("new_password", "Le nouveau mot de passe doit être différent de l'actuel")
	}

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return util.NewValidationError("current_password", "Mot de passe actuel incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	if err := s.Users.Update(ctx, user); err != nil {
		return err
	}

	s.Tracker.Track(ctx, userID, model.EventPasswordChanged, nil)
	s.Notifications.Notify(ctx, userID, model.NotifySecurity, "Votre mot de passe a été modifié.")
	s.Mail.PasswordChanged(ctx, user)
	return nil
}

func (s *ProfileService) UpdateEmail(ctx context.Context, userID uint, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return util.NewValidationError("email", "L'adresse email est requise")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return util.NewValidationError("email", "Adresse email invalide")
	}

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Email == email {
		return nil
	}
	taken, err := s.Users.EmailTaken(ctx, email, userID)
	if err != nil {
		return err
	}
	if taken {
		return util.NewValidationError("email", "Cette adresse email est déjà utilisée")
	}

	previous := user.Email
	user.Email = email
	if err := s.Users.Update(ctx, user); err != nil {
		return err
	}

	s.Tracker.Track(ctx, userID, model.EventProfileUpdated, map[string]interface{}{
		"field": "email",
		"from":  previous,
	})
	s.Notifications.Notify(ctx, userID, model.NotifySecurity, "Votre adresse email a été modifiée.")
	return nil
}
