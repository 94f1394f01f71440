package service

import (
	"context"
	"fmt"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"learner_dashboard/pkg/logger"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ParcoursDetail 路径模板及用户进度
type ParcoursDetail struct {
	Parcours model.Parcours         `json:"parcours"`
	Progress model.ParcoursProgress `json:"progress"`
}

// ParcoursService 学习路径进度。并发勾选同一用户的周次时后写覆盖先写
type ParcoursService struct {
	Catalog       []model.Parcours
	Memberships   MembershipStore
	Meta          MetaStore
	Users         UserStore
	Tracker       *EventService
	Badges        *BadgeService
	Certificates  *CertificateService
	Notifications *NotificationService
	Mail          *MailService
	Now           func() time.Time
}

func NewParcoursService(
	catalog []model.Parcours,
	memberships MembershipStore,
	meta MetaStore,
	users UserStore,
	tracker *EventService,
	badges *BadgeService,
	certificates *CertificateService,
	notifications *NotificationService,
	mail *MailService,
) *ParcoursService {
	return &ParcoursService{
		Catalog:       catalog,
		Memberships:   memberships,
		Meta:          meta,
		Users:         users,
		Tracker:       tracker,
		Badges:        badges,
		Certificates:  certificates,
		Notifications: notifications,
		Mail:          mail,
		Now:           time.Now,
	}
}

func (s *ParcoursService) Find(id string) (model.Parcours, error) {
	for _, p := range s.Catalog {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Parcours{}, util.ErrParcoursNotFound
}

// Unlocked 会员等级在路径要求的等级列表中
func Unlocked(p model.Parcours, m *model.Membership) bool {
	if m == nil {
		return false
	}
	for _, level := range p.RequiredLevels {
		if level == m.LevelID {
			return true
		}
	}
	return false
}

// ApplyToggle 在某月的已勾选集合中加入或移除一周，结果有序且无重复
func ApplyToggle(checked model.CheckedWeeks, month, week int, on bool) model.CheckedWeeks {
	out := make(model.CheckedWeeks, len(checked)+1)
	for m, ws := range checked {
		out[m] = append([]int(nil), ws...)
	}

	set := make(map[int]bool, len(out[month])+1)
	for _, w := range out[month] {
		set[w] = true
	}
	if on {
		set[week] = true
	} else {
		delete(set, week)
	}

	if len(set) == 0 {
		delete(out, month)
		return out
	}
	list := make([]int, 0, len(set))
	for w := range set {
		list = append(list, w)
	}
	sort.Ints(list)
	out[month] = list
	return out
}

// ComputeProgress 只统计模板中存在的月与周
func ComputeProgress(p model.Parcours, checked model.CheckedWeeks) model.ParcoursProgress {
	progress := model.ParcoursProgress{
		ParcoursID: p.ID,
		Name:       p.Name,
		Checked:    checked,
		TotalWeeks: p.TotalWeeks(),
	}
	if progress.Checked == nil {
		progress.Checked = model.CheckedWeeks{}
	}
	for _, month := range p.Months {
		for _, w := range checked[month.Number] {
			if w >= 1 && w <= len(month.Weeks) {
				progress.CheckedCount++
			}
		}
	}
	if progress.TotalWeeks > 0 {
		progress.Percentage = int(math.Round(100 * float64(progress.CheckedCount) / float64(progress.TotalWeeks)))
	}
	return progress
}

func (s *ParcoursService) load(ctx context.Context, userID uint, p model.Parcours, membership *model.Membership) (model.ParcoursProgress, error) {
	var checked model.CheckedWeeks
	if _, err := s.Meta.Get(ctx, userID, model.MetaParcoursPrefix+p.ID, &checked); err != nil {
		return model.ParcoursProgress{}, err
	}
	progress := ComputeProgress(p, checked)
	progress.Unlocked = Unlocked(p, membership)

	var completedAt time.Time
	found, err := s.Meta.Get(ctx, userID, model.MetaParcoursDone+p.ID, &completedAt)
	if err != nil {
		return model.ParcoursProgress{}, err
	}
	if found {
		progress.Completed = true
		progress.CompletedAt = &completedAt
	}
	return progress, nil
}

func (s *ParcoursService) List(ctx context.Context, userID uint) ([]model.ParcoursProgress, error) {
	membership, err := s.Memberships.FindActive(ctx, userID, s.Now())
	if err != nil {
		return nil, err
	}
	out := make([]model.ParcoursProgress, 0, len(s.Catalog))
	for _, p := range s.Catalog {
		progress, err := s.load(ctx, userID, p, membership)
		if err != nil {
			return nil, err
		}
		out = append(out, progress)
	}
	return out, nil
}

func (s *ParcoursService) Get(ctx context.Context, userID uint, id string) (*ParcoursDetail, error) {
	p, err := s.Find(id)
	if err != nil {
		return nil, err
	}
	membership, err := s.Memberships.FindActive(ctx, userID, s.Now())
	if err != nil {
		return nil, err
	}
	progress, err := s.load(ctx, userID, p, membership)
	if err != nil {
		return nil, err
	}
	return &ParcoursDetail{Parcours: p, Progress: progress}, nil
}

// ToggleWeek 勾选或取消某月的某一周；全部勾选后路径完成，完成后不可再修改
func (s *ParcoursService) ToggleWeek(ctx context.Context, userID uint, id string, month, week int, checked bool) (*model.ParcoursProgress, error) {
	p, err := s.Find(id)
	if err != nil {
		return nil, err
	}
	m, ok := p.Month(month)
	if !ok || week < 1 || week > len(m.Weeks) {
		return nil, fmt.Errorf("%w: month %d week %d", util.ErrInvalidWeek, month, week)
	}

	membership, err := s.Memberships.FindActive(ctx, userID, s.Now())
	if err != nil {
		return nil, err
	}
	if !Unlocked(p, membership) {
		return nil, util.ErrParcoursLocked
	}

	current, err := s.load(ctx, userID, p, membership)
	if err != nil {
		return nil, err
	}
	if current.Completed {
		return nil, util.ErrParcoursCompleted
	}

	next := ApplyToggle(current.Checked, month, week, checked)
	if err := s.Meta.Set(ctx, userID, model.MetaParcoursPrefix+p.ID, next); err != nil {
		return nil, err
	}

	eventType := model.EventWeekChecked
	if !checked {
		eventType = model.EventWeekUnchecked
	}
	s.Tracker.Track(ctx, userID, eventType, map[string]interface{}{
		"parcours_id": p.ID,
		"month":       month,
		"week":        week,
	})

	progress := ComputeProgress(p, next)
	progress.Unlocked = true
	if progress.TotalWeeks > 0 && progress.CheckedCount == progress.TotalWeeks {
		completedAt, err := s.complete(ctx, userID, p)
		if err != nil {
			return nil, err
		}
		progress.Completed = true
		progress.CompletedAt = &completedAt
	}
	return &progress, nil
}

// complete 记录完成时间后，证书、积分、通知、邮件与徽章重算都只记日志不回滚
func (s *ParcoursService) complete(ctx context.Context, userID uint, p model.Parcours) (time.Time, error) {
	now := s.Now()
	if err := s.Meta.Set(ctx, userID, model.MetaParcoursDone+p.ID, now); err != nil {
		return time.Time{}, err
	}
	logger.Log.Info("学习路径完成", zap.Uint("userID", userID), zap.String("parcours", p.ID))

	s.Tracker.Track(ctx, userID, model.EventParcoursCompleted, map[string]interface{}{"parcours_id": p.ID})
	if _, err := s.Badges.AwardPoints(ctx, userID, model.EventParcoursCompleted, nil); err != nil {
		logger.Log.Warn("积分更新失败", zap.Uint("userID", userID), zap.Error(err))
	}
	s.Notifications.Notify(ctx, userID, model.NotifyParcours, fmt.Sprintf("Parcours « %s » terminé !", p.Name))

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Log.Warn("用户读取失败", zap.Uint("userID", userID), zap.Error(err))
	}

	certURL := ""
	if user != nil {
		cert, err := s.Certificates.Issue(ctx, user, p, now)
		if err != nil {
			logger.Log.Error("证书生成失败", zap.Uint("userID", userID), zap.String("parcours", p.ID), zap.Error(err))
		} else {
			certURL = cert.URL
			s.Tracker.Track(ctx, userID, model.EventCertificateIssued, map[string]interface{}{
				"parcours_id": p.ID,
				"number":      cert.Number,
			})
			if _, err := s.Badges.AwardPoints(ctx, userID, model.EventCertificateIssued, nil); err != nil {
				logger.Log.Warn("积分更新失败", zap.Uint("userID", userID), zap.Error(err))
			}
			s.Notifications.Notify(ctx, userID, model.NotifyCertificate, fmt.Sprintf("Votre certificat %s est disponible.", cert.Number))
		}
		s.Mail.ParcoursCompleted(ctx, user, p.Name, certURL)
	}

	if _, err := s.Badges.Recompute(ctx, userID); err != nil {
		logger.Log.Warn("徽章重算失败", zap.Uint("userID", userID), zap.Error(err))
	}
	return now, nil
}
