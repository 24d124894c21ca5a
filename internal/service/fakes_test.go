package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/and161185/useradmin/internal/blob"
	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/limiter"
	"github.com/and161185/useradmin/internal/mail"
	"github.com/and161185/useradmin/internal/model"
	"github.com/and161185/useradmin/internal/repository"
)

// fakeUsers is an in-memory account table joined with fakeRoles names.
type fakeUsers struct {
	mu     sync.Mutex
	rows   map[int64]*model.User
	nextID int64
	roles  map[int64]string

	getErr         error
	updateErr      error
	vanishOnUpdate bool
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers {
	return &fakeUsers{rows: map[int64]*model.User{}, roles: map[int64]string{1: "Admin", 2: "User"}}
}

func (f *fakeUsers) joined(u *model.User) *model.UserWithRole {
	c := *u
	return &model.UserWithRole{User: c, RoleName: f.roles[u.RoleID]}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if strings.EqualFold(r.Username, u.Username) {
			return errs.ErrUsernameTaken
		}
		if strings.EqualFold(r.Email, u.Email) {
			return errs.ErrEmailTaken
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	c := *u
	f.rows[u.ID] = &c
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.UserWithRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return f.joined(u), nil
}

func (f *fakeUsers) find(match func(*model.User) bool) (*model.UserWithRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.rows {
		if match(u) {
			return f.joined(u), nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.UserWithRole, error) {
	return f.find(func(u *model.User) bool { return strings.EqualFold(u.Username, username) })
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.UserWithRole, error) {
	return f.find(func(u *model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (f *fakeUsers) List(context.Context) ([]model.UserWithRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.UserWithRole, 0, len(f.rows))
	for _, u := range f.rows {
		out = append(out, *f.joined(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (f *fakeUsers) taken(match func(*model.User) bool, exceptID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.ID != exceptID && match(u) {
			return true
		}
	}
	return false
}

func (f *fakeUsers) UsernameTaken(_ context.Context, username string, exceptID int64) (bool, error) {
	return f.taken(func(u *model.User) bool { return strings.EqualFold(u.Username, username) }, exceptID), nil
}

func (f *fakeUsers) EmailTaken(_ context.Context, email string, exceptID int64) (bool, error) {
	return f.taken(func(u *model.User) bool { return strings.EqualFold(u.Email, email) }, exceptID), nil
}

func (f *fakeUsers) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.vanishOnUpdate {
		delete(f.rows, u.ID)
	}
	cur, ok := f.rows[u.ID]
	if !ok {
		return errs.ErrVersionConflict
	}
	cur.FullName, cur.Username, cur.Email, cur.PhoneNo = u.FullName, u.Username, u.Email, u.PhoneNo
	cur.RoleID, cur.IsActive = u.RoleID, u.IsActive
	return nil
}

func (f *fakeUsers) SetActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (f *fakeUsers) CountActiveAdmins(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.rows {
		if u.IsActive && u.RoleID == model.RoleAdmin {
			n++
		}
	}
	return n, nil
}

func (f *fakeUsers) SetPassword(_ context.Context, id int64, hash, salt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.PasswordHash, u.PasswordSalt = hash, salt
	u.ResetToken, u.ResetTokenExpiry = nil, nil
	return nil
}

func (f *fakeUsers) SetResetToken(_ context.Context, id int64, token string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.ResetToken, u.ResetTokenExpiry = &token, &expiry
	return nil
}

func (f *fakeUsers) ConsumeResetToken(_ context.Context, email, token string, now time.Time, hash, salt string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if !strings.EqualFold(u.Email, email) || !u.IsActive || u.ResetToken == nil || *u.ResetToken != token || !u.ResetTokenExpiry.After(now) {
			continue
		}
		u.PasswordHash, u.PasswordSalt = hash, salt
		u.ResetToken, u.ResetTokenExpiry = nil, nil
		return true, nil
	}
	return false, nil
}

// add inserts a ready account and returns it.
func (f *fakeUsers) add(u model.User) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	c := u
	f.rows[u.ID] = &c
	return u
}

type fakeRoles struct {
	rows    map[int64]*model.Role
	members map[int64][]string
	nextID  int64
}

var _ repository.RoleRepository = (*fakeRoles)(nil)

func newFakeRoles() *fakeRoles {
	return &fakeRoles{
		rows:    map[int64]*model.Role{1: {ID: 1, Name: "Admin"}, 2: {ID: 2, Name: "User"}},
		members: map[int64][]string{},
		nextID:  2,
	}
}

func (f *fakeRoles) List(context.Context) ([]model.RoleWithMembers, error) {
	out := make([]model.RoleWithMembers, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, model.RoleWithMembers{Role: *r, Members: f.members[r.ID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRoles) Get(_ context.Context, id int64) (*model.Role, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeRoles) Create(_ context.Context, r *model.Role) error {
	f.nextID++
	r.ID = f.nextID
	c := *r
	f.rows[r.ID] = &c
	return nil
}

func (f *fakeRoles) Rename(_ context.Context, id int64, name string) error {
	r, ok := f.rows[id]
	if !ok {
		return errs.ErrVersionConflict
	}
	r.Name = name
	return nil
}

func (f *fakeRoles) NameTaken(_ context.Context, name string, exceptID int64) (bool, error) {
	for _, r := range f.rows {
		if r.ID != exceptID && strings.EqualFold(r.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoles) CountMembers(_ context.Context, id int64) (int, error) {
	return len(f.members[id]), nil
}

func (f *fakeRoles) Delete(_ context.Context, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeAudit struct {
	mu      sync.Mutex
	rows    map[int64]*model.AuditEntry
	nextID  int64
	closes  int
	lastF   model.AuditFilter
	listed  []model.AuditRow
	deleted int64
	cutoff  time.Time
}

var _ repository.AuditRepository = (*fakeAudit)(nil)

func newFakeAudit() *fakeAudit { return &fakeAudit{rows: map[int64]*model.AuditEntry{}} }

func (f *fakeAudit) Insert(_ context.Context, e *model.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e.ID = f.nextID
	c := *e
	f.rows[e.ID] = &c
	return nil
}

func (f *fakeAudit) Get(_ context.Context, id int64) (*model.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *e
	return &c, nil
}

func (f *fakeAudit) Close(_ context.Context, id, userID int64, logout time.Time, minutes int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok || e.UserID != userID || e.LogoutTime != nil {
		return false, nil
	}
	f.closes++
	e.LogoutTime, e.DurationMinutes = &logout, &minutes
	return true, nil
}

func (f *fakeAudit) List(_ context.Context, flt model.AuditFilter) ([]model.AuditRow, error) {
	f.lastF = flt
	return f.listed, nil
}

func (f *fakeAudit) Stats(_ context.Context, flt model.AuditFilter) (model.AuditStats, error) {
	f.lastF = flt
	return model.AuditStats{TotalLogins: len(f.listed)}, nil
}

func (f *fakeAudit) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, nil
}

type fakeFeedback struct {
	rows      map[int64]*model.FeedbackRow
	nextID    int64
	createErr error
}

var _ repository.FeedbackRepository = (*fakeFeedback)(nil)

func newFakeFeedback() *fakeFeedback { return &fakeFeedback{rows: map[int64]*model.FeedbackRow{}} }

func (f *fakeFeedback) Create(_ context.Context, fb *model.Feedback) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	fb.ID = f.nextID
	fb.CreatedAt = time.Now()
	f.rows[fb.ID] = &model.FeedbackRow{Feedback: *fb}
	return nil
}

func (f *fakeFeedback) Get(_ context.Context, id int64) (*model.FeedbackRow, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeFeedback) ListByUser(_ context.Context, userID int64) ([]model.Feedback, error) {
	var out []model.Feedback
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r.Feedback)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeFeedback) List(context.Context) ([]model.FeedbackRow, error) {
	var out []model.FeedbackRow
	for _, r := range f.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeFeedback) MarkRead(_ context.Context, id int64) error {
	r, ok := f.rows[id]
	if !ok {
		return errs.ErrNotFound
	}
	r.IsRead = true
	return nil
}

func (f *fakeFeedback) SetNote(_ context.Context, id int64, note string) error {
	r, ok := f.rows[id]
	if !ok {
		return errs.ErrNotFound
	}
	if note == "" {
		r.AdminNotes = nil
	} else {
		r.AdminNotes = &note
	}
	return nil
}

func (f *fakeFeedback) Delete(_ context.Context, id int64) (string, error) {
	r, ok := f.rows[id]
	if !ok {
		return "", errs.ErrNotFound
	}
	delete(f.rows, id)
	return r.ImagePath, nil
}

type fakeBlobs struct {
	files   map[string][]byte
	saveErr error
}

var _ blob.Store = (*fakeBlobs)(nil)

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{files: map[string][]byte{}} }

func (f *fakeBlobs) Save(_ context.Context, filename string, r io.Reader, _ int64, _ string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	rel := blob.URLPrefix + "id_" + filename
	f.files[rel] = b
	return rel, nil
}

func (f *fakeBlobs) Open(_ context.Context, rel string) (io.ReadCloser, error) {
	b, ok := f.files[rel]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeBlobs) Delete(_ context.Context, rel string) error {
	delete(f.files, rel)
	return nil
}

type fakeLimiter struct {
	allowOK     bool
	allowErr    error
	failBlocked bool

	allowCalls   int
	failureCalls int
	successCalls int
	failedKeys   [][]byte
	failedUsers  []string
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return nil
}

func (l *fakeLimiter) Failure(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	l.failureCalls++
	l.failedKeys = append(l.failedKeys, ipHash)
	l.failedUsers = append(l.failedUsers, username)
	return l.failBlocked, 0, nil
}

type sentMail struct{ to, name, token string }

type fakeMailer struct {
	sent []sentMail
	err  error
}

var _ mail.Mailer = (*fakeMailer)(nil)

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, name, token string) error {
	m.sent = append(m.sent, sentMail{to, name, token})
	return m.err
}

var (
	adminClaims = model.Claims{UserID: 1, Username: "admin", RoleID: model.RoleAdmin, RoleName: "Admin"}
	userClaims  = model.Claims{UserID: 2, Username: "alice", RoleID: model.RoleUser, RoleName: "User"}
)
