package service

import (
	"context"
	"fmt"
	"learner_dashboard/internal/config"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"learner_dashboard/pkg/logger"
	"net/http"
	"strings"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// EmailMessage 纯文本邮件
type EmailMessage struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SendGridMailer 通过 SendGrid v3 API 发信
type SendGridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

func NewSendGridMailer(cfg *config.MailConfig) *SendGridMailer {
	return &SendGridMailer{
		key:        cfg.APIKey,
		from:       sgmail.NewEmail(cfg.AppName, cfg.FromEmail),
		subjPrefix: "[" + cfg.AppName + "] ",
	}
}

func (m *SendGridMailer) prepare(msg EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", msg.Text))
	return v3
}

func (m *SendGridMailer) Send(ctx context.Context, msg EmailMessage) error {
	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// LogMailer 只写日志并保留已发送的邮件，用于开发环境和测试
type LogMailer struct {
	subjPrefix string

	mu   sync.Mutex
	Sent []EmailMessage
}

func NewLogMailer(appName string) *LogMailer {
	return &LogMailer{subjPrefix: "[" + appName + "] "}
}

func (m *LogMailer) Send(ctx context.Context, msg EmailMessage) error {
	logger.Log.Info("邮件",
		zap.String("to", msg.ToEmail),
		zap.String("subject", m.subjPrefix+msg.Subject),
		zap.String("body", msg.Text))
	m.mu.Lock()
	m.Sent = append(m.Sent, msg)
	m.mu.Unlock()
	return nil
}

func (m *LogMailer) Messages() []EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}

func NewMailer(cfg *config.MailConfig) Mailer {
	if cfg.Provider == util.MailProviderSendGrid {
		return NewSendGridMailer(cfg)
	}
	return NewLogMailer(cfg.AppName)
}

// MailService 业务邮件。发送失败只记日志
type MailService struct {
	Mailer Mailer
}

func NewMailService(mailer Mailer) *MailService {
	return &MailService{Mailer: mailer}
}

func (s *MailService) send(ctx context.Context, user *model.User, subject, text string) {
	msg := EmailMessage{ToName: user.Name, ToEmail: user.Email, Subject: subject, Text: text}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		logger.Log.Warn("邮件发送失败",
			zap.Uint("userID", user.ID),
			zap.String("subject", subject),
			zap.Error(err))
	}
}

func deliverable(user *model.User) bool {
	return user != nil && user.Email != ""
}

func (s *MailService) PasswordChanged(ctx context.Context, user *model.User) {
	if !deliverable(user) {
		return
	}
	s.send(ctx, user, "Mot de passe modifié",
		fmt.Sprintf("Bonjour %s,\n\nVotre mot de passe a été modifié. Si vous n'êtes pas à l'origine de ce changement, contactez le support.", user.Name))
}

func (s *MailService) BadgeEarned(ctx context.Context, user *model.User, badge string) {
	if !deliverable(user) {
		return
	}
	s.send(ctx, user, "Nouveau badge débloqué",
		fmt.Sprintf("Bravo %s !\n\nVous avez obtenu le badge « %s ».", user.Name, badge))
}

func (s *MailService) ParcoursCompleted(ctx context.Context, user *model.User, parcoursName, certificateURL string) {
	if !deliverable(user) {
		return
	}
	text := fmt.Sprintf("Félicitations %s !\n\nVous avez terminé le parcours « %s ».", user.Name, parcoursName)
	if certificateURL != "" {
		text += "\nVotre certificat : " + certificateURL
	}
	s.send(ctx, user, "Parcours terminé", text)
}

// WeeklyReportData 周报内容
type WeeklyReportData struct {
	Events          int
	LessonsDone     int
	StreakDays      int
	Badge           model.BadgeTier
	TotalPoints     int
	EngagementScore float64
}

func (s *MailService) WeeklyReport(ctx context.Context, user *model.User, data WeeklyReportData) {
	if !deliverable(user) {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour %s,\n\nVoici votre semaine :\n", user.Name)
	fmt.Fprintf(&b, "- activités : %d\n", data.Events)
	fmt.Fprintf(&b, "- leçons terminées : %d\n", data.LessonsDone)
	fmt.Fprintf(&b, "- série en cours : %d jour(s)\n", data.StreakDays)
	fmt.Fprintf(&b, "- badge : %s\n", data.Badge)
	fmt.Fprintf(&b, "- points : %d\n", data.TotalPoints)
	fmt.Fprintf(&b, "- engagement : %.0f/100\n", data.EngagementScore)
	s.send(ctx, user, "Votre rapport hebdomadaire", b.String())
}
