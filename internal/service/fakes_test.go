package service

import (
	"context"
	"encoding/json"
	"errors"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/repository"
	"learner_dashboard/internal/util"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errStore = errors.New("store unavailable")

// fixedNow 测试使用的固定时间（UTC 周三中午）
var fixedNow = time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

func clock() func() time.Time { return func() time.Time { return fixedNow } }

func daysAgo(n int) time.Time { return fixedNow.AddDate(0, 0, -n) }

// memEvents 内存事件存储
type memEvents struct {
	mu         sync.Mutex
	events     []model.Event
	failCreate bool
	failQuery  bool
}

func typeSet(types []model.EventType) map[model.EventType]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[model.EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

func (m *memEvents) add(userID uint, t model.EventType, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, model.Event{ID: uint64(len(m.events) + 1), UserID: userID, EventType: t, OccurredAt: at})
}

func (m *memEvents) Create(ctx context.Context, event *model.Event) error {
	if m.failCreate {
		return errStore
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = uint64(len(m.events) + 1)
	m.events = append(m.events, *event)
	return nil
}

func (m *memEvents) Query(ctx context.Context, userID uint, types []model.EventType, since, until time.Time) ([]model.Event, error) {
	if m.failQuery {
		return nil, errStore
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set := typeSet(types)
	var out []model.Event
	for _, e := range m.events {
		if e.UserID != userID || e.OccurredAt.Before(since) || e.OccurredAt.After(until) {
			continue
		}
		if set != nil && !set[e.EventType] {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memEvents) Count(ctx context.Context, userID uint, types []model.EventType, since, until time.Time) (int, error) {
	events, err := m.Query(ctx, userID, types, since, until)
	return len(events), err
}

func (m *memEvents) LastOccurrence(ctx context.Context, userID uint, types []model.EventType) (time.Time, error) {
	if m.failQuery {
		return time.Time{}, errStore
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set := typeSet(types)
	var last time.Time
	for _, e := range m.events {
		if e.UserID == userID && (set == nil || set[e.EventType]) && e.OccurredAt.After(last) {
			last = e.OccurredAt
		}
	}
	return last, nil
}

func (m *memEvents) CountByUser(ctx context.Context, types []model.EventType, since time.Time) (map[uint]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := typeSet(types)
	out := make(map[uint]int)
	for _, e := range m.events {
		if !e.OccurredAt.Before(since) && (set == nil || set[e.EventType]) {
			out[e.UserID]++
		}
	}
	return out, nil
}

func (m *memEvents) DeleteBefore(ctx context.Context, types []model.EventType, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := typeSet(types)
	kept := m.events[:0]
	var n int64
	for _, e := range m.events {
		if e.OccurredAt.Before(before) && (set == nil || set[e.EventType]) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return n, nil
}

func (m *memEvents) ofType(t model.EventType) []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, e := range m.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

// memActivity LMS 条目表替身；unavailable 模拟表不存在
type memActivity struct {
	records     []model.ActivityRecord
	unavailable bool
}

func (m *memActivity) ListForUser(ctx context.Context, userID uint, itemType model.ItemType, since time.Time) ([]model.ActivityRecord, error) {
	if m.unavailable {
		return nil, util.ErrSourceUnavailable
	}
	var out []model.ActivityRecord
	for _, r := range m.records {
		if r.UserID != userID || (itemType != "" && r.ItemType != itemType) {
			continue
		}
		if !since.IsZero() {
			recent := (r.StartTime != nil && !r.StartTime.Before(since)) || (r.EndTime != nil && !r.EndTime.Before(since))
			if !recent {
				continue
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memActivity) CountDoneInCourse(ctx context.Context, userID, courseID uint) (int, error) {
	if m.unavailable {
		return 0, util.ErrSourceUnavailable
	}
	n := 0
	for _, r := range m.records {
		if r.UserID == userID && r.RefID == courseID && r.ItemType != model.ItemCourse && r.Done() {
			n++
		}
	}
	return n, nil
}

func (m *memActivity) AverageQuizScores(ctx context.Context) (map[uint]float64, error) {
	if m.unavailable {
		return nil, util.ErrSourceUnavailable
	}
	sums, counts := map[uint]float64{}, map[uint]int{}
	for _, r := range m.records {
		if r.ItemType == model.ItemQuiz && r.Score != nil && (r.Done() || r.Status == model.StatusFailed) {
			sums[r.UserID] += *r.Score
			counts[r.UserID]++
		}
	}
	out := make(map[uint]float64, len(sums))
	for id, s := range sums {
		out[id] = s / float64(counts[id])
	}
	return out, nil
}

func (m *memActivity) CountDoneByUser(ctx context.Context, itemType model.ItemType) (map[uint]int, error) {
	if m.unavailable {
		return nil, util.ErrSourceUnavailable
	}
	out := map[uint]int{}
	for _, r := range m.records {
		if r.ItemType == itemType && r.Done() {
			out[r.UserID]++
		}
	}
	return out, nil
}

func (m *memActivity) PerfectQuizzesByUser(ctx context.Context) (map[uint]int, error) {
	if m.unavailable {
		return nil, util.ErrSourceUnavailable
	}
	out := map[uint]int{}
	for _, r := range m.records {
		if r.ItemType == model.ItemQuiz && r.Score != nil && *r.Score == 100 {
			out[r.UserID]++
		}
	}
	return out, nil
}

func (m *memActivity) CompletedCourseDurations(ctx context.Context) ([]time.Duration, error) {
	if m.unavailable {
		return nil, util.ErrSourceUnavailable
	}
	var out []time.Duration
	for _, r := range m.records {
		if r.ItemType == model.ItemCourse && r.Done() {
			if d, ok := r.Duration(); ok {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func timePtr(t time.Time) *time.Time { return &t }
func scorePtr(v float64) *float64    { return &v }

func courseRecord(userID, courseID uint, status model.ItemStatus, start, end time.Time) model.ActivityRecord {
	r := model.ActivityRecord{UserID: userID, ItemID: courseID, ItemType: model.ItemCourse, Status: status, StartTime: timePtr(start)}
	if !end.IsZero() {
		r.EndTime = timePtr(end)
	}
	return r
}

func quizRecord(userID, courseID uint, score float64, status model.ItemStatus, at time.Time) model.ActivityRecord {
	return model.ActivityRecord{
		UserID: userID, ItemID: 1000 + courseID, ItemType: model.ItemQuiz, RefID: courseID,
		Status: status, StartTime: timePtr(at.Add(-10 * time.Minute)), EndTime: timePtr(at), Score: scorePtr(score),
	}
}

// memMeta 以 JSON 保存值，与数据库实现一致
type memMeta struct {
	mu      sync.Mutex
	values  map[string][]byte
	failGet bool
	failSet bool
}

func newMemMeta() *memMeta { return &memMeta{values: map[string][]byte{}} }

func metaKey(userID uint, key string) string {
	b, _ := json.Marshal([]interface{}{userID, key})
	return string(b)
}

func (m *memMeta) Get(ctx context.Context, userID uint, key string, dest interface{}) (bool, error) {
	if m.failGet {
		return false, errStore
	}
	m.mu.Lock()
	raw, ok := m.values[metaKey(userID, key)]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memMeta) Set(ctx context.Context, userID uint, key string, value interface{}) error {
	if m.failSet {
		return errStore
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[metaKey(userID, key)] = raw
	return nil
}

func (m *memMeta) Delete(ctx context.Context, userID uint, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, metaKey(userID, key))
	return nil
}

// memUsers 内存用户表
type memUsers struct {
	mu    sync.Mutex
	users map[uint]*model.User
}

func newMemUsers(users ...model.User) *memUsers {
	m := &memUsers{users: map[uint]*model.User{}}
	for i := range users {
		u := users[i]
		m.users[u.ID] = &u
	}
	return m
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func (m *memUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, util.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) Update(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUsers) UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.LastLogin = at
	}
	return nil
}

func (m *memUsers) ListActive(ctx context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		if !u.Disabled {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memCourses 内存课程表
type memCourses struct {
	courses []model.Course
	items   map[uint]int
}

func (m *memCourses) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	for i := range m.courses {
		if m.courses[i].ID == id {
			c := m.courses[i]
			return &c, nil
		}
	}
	return nil, util.ErrCourseNotFound
}

func (m *memCourses) FindByIDs(ctx context.Context, ids []uint) ([]model.Course, error) {
	want := map[uint]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Course
	for _, c := range m.courses {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCourses) ListPublished(ctx context.Context) ([]model.Course, error) {
	var out []model.Course
	for _, c := range m.courses {
		if c.Published {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCourses) CountItems(ctx context.Context, courseID uint) (int, error) {
	return m.items[courseID], nil
}

// memChats 内存聊天记录
type memChats struct {
	mu         sync.Mutex
	messages   []model.ChatMessage
	failCreate bool
}

func (m *memChats) Create(ctx context.Context, msg *model.ChatMessage) error {
	if m.failCreate {
		return errStore
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == "" {
		msg.ID = model.NewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = fixedNow
	}
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memChats) History(ctx context.Context, userID uint, limit int) ([]model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ChatMessage
	for _, msg := range m.messages {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memChats) UserTextsSince(ctx context.Context, since time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.messages {
		if msg.Type == model.ChatFromUser && !msg.CreatedAt.Before(since) {
			out = append(out, msg.Text)
		}
	}
	return out, nil
}

func (m *memChats) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.messages[:0]
	var n int64
	for _, msg := range m.messages {
		if msg.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
	return n, nil
}

// memCerts 内存证书表
type memCerts struct {
	mu         sync.Mutex
	certs      []model.Certificate
	failCreate bool
}

func (m *memCerts) Create(ctx context.Context, cert *model.Certificate) error {
	if m.failCreate {
		return errStore
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cert.ID = uint(len(m.certs) + 1)
	m.certs = append(m.certs, *cert)
	return nil
}

func (m *memCerts) ListByUser(ctx context.Context, userID uint) ([]model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Certificate{}
	for _, c := range m.certs {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCerts) CountByUser(ctx context.Context, userID uint) (int, error) {
	list, _ := m.ListByUser(ctx, userID)
	return len(list), nil
}

func (m *memCerts) CountByUsers(ctx context.Context) (map[uint]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[uint]int{}
	for _, c := range m.certs {
		out[c.UserID]++
	}
	return out, nil
}

// memMemberships 每个用户一条会员记录
type memMemberships map[uint]*model.Membership

func (m memMemberships) FindActive(ctx context.Context, userID uint, at time.Time) (*model.Membership, error) {
	ms, ok := m[userID]
	if !ok || !ms.ActiveAt(at) {
		return nil, nil
	}
	return ms, nil
}

// memMailer 记录发送的邮件
type memMailer struct {
	mu   sync.Mutex
	sent []EmailMessage
	fail bool
}

func (m *memMailer) Send(ctx context.Context, msg EmailMessage) error {
	if m.fail {
		return errStore
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *memMailer) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, msg := range m.sent {
		out[i] = msg.Subject
	}
	return out
}

var (
	_ EventStore       = (*memEvents)(nil)
	_ ActivitySource   = (*memActivity)(nil)
	_ MetaStore        = (*memMeta)(nil)
	_ UserStore        = (*memUsers)(nil)
	_ CourseStore      = (*memCourses)(nil)
	_ ChatStore        = (*memChats)(nil)
	_ CertificateStore = (*memCerts)(nil)
	_ MembershipStore  = memMemberships(nil)
	_ Mailer           = (*memMailer)(nil)
)

// testEnv 组装好的服务与其内存依赖
type testEnv struct {
	events      *memEvents
	activity    *memActivity
	meta        *memMeta
	users       *memUsers
	courses     *memCourses
	chats       *memChats
	certs       *memCerts
	memberships memMemberships
	mailer      *memMailer
	board       *repository.LeaderboardRepository

	tracker       *EventService
	notifications *NotificationService
	mail          *MailService
	analytics     *AnalyticsService
	badges        *BadgeService
	progress      *ProgressService
	certificates  *CertificateService
	parcours      *ParcoursService
	dashboard     *DashboardService
	chatbot       *ChatbotService
	profile       *ProfileService
	tracking      *TrackingService
}

const testUserID = uint(1)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		events:   &memEvents{},
		activity: &memActivity{},
		meta:     newMemMeta(),
		users: newMemUsers(model.User{
			BaseModel: model.BaseModel{ID: testUserID},
			Name:      "Amina",
			Email:     "amina@example.com",
			Password:  hashed(t, "ancienmotdepasse"),
			Role:      model.Learner,
		}),
		courses:     &memCourses{items: map[uint]int{}},
		chats:       &memChats{},
		certs:       &memCerts{},
		memberships: memMemberships{},
		mailer:      &memMailer{},
		board:       repository.NewLeaderboardRepository(nil),
	}
	now := clock()

	e.tracker = NewEventService(e.events)
	e.tracker.Now = now
	e.notifications = NewNotificationService(e.meta)
	e.notifications.Now = now
	e.mail = NewMailService(e.mailer)

	e.analytics = NewAnalyticsService(e.events, e.activity, e.courses, time.UTC)
	e.analytics.Now = now

	catalog := DefaultCatalog()
	e.badges = NewBadgeService(e.events, e.activity, e.certs, e.meta, e.users, e.board,
		e.tracker, e.notifications, e.mail, catalog, time.UTC)
	e.badges.Now = now

	e.progress = NewProgressService(e.courses, e.activity, e.meta)
	e.progress.Now = now

	storage := &StorageService{Files: NewLocalFileStore(t.TempDir())}
	e.certificates = NewCertificateService(storage, e.certs)

	e.parcours = NewParcoursService(catalog, e.memberships, e.meta, e.users, e.tracker,
		e.badges, e.certificates, e.notifications, e.mail)
	e.parcours.Now = now

	e.dashboard = NewDashboardService(e.analytics, e.badges, e.progress, e.parcours, e.certificates, e.notifications)
	e.chatbot = NewChatbotService(e.chats, e.dashboard, e.tracker, rand.New(rand.NewSource(42)))
	e.chatbot.Now = now

	e.profile = NewProfileService(e.users, e.tracker, e.notifications, e.mail)
	e.tracking = NewTrackingService(e.tracker, e.badges)
	return e
}

func (m *memUsers) add(u model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = &u
}
