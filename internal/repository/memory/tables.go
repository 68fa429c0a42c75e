package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/model"
)

// Users table users (telegram_id is unique)
type Users struct{ s *Store }

func (t *Users) Create(ctx context.Context, user *model.User) error {
	defer t.s.write(ctx)()

	for _, u := range t.s.data.users {
		if u.TelegramID == user.TelegramID {
			return fmt.Errorf("create user: %w", model.ErrDuplicateRecord)
		}
	}

	user.ID = t.s.data.id()
	user.CreatedAt = t.s.now()
	v := *user
	t.s.data.users[user.ID] = &v
	return nil
}

func (t *Users) GetByID(_ context.Context, id int64) (*model.User, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	u, ok := t.s.data.users[id]
	if !ok {
		return nil, nil
	}
	v := *u
	return &v, nil
}

func (t *Users) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for _, u := range t.s.data.users {
		if u.TelegramID == telegramID {
			v := *u
			return &v, nil
		}
	}
	return nil, nil
}

func (t *Users) GetByIDs(_ context.Context, ids []int64) ([]*model.User, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	users := []*model.User{}
	for _, id := range ids {
		if u, ok := t.s.data.users[id]; ok {
			v := *u
			users = append(users, &v)
		}
	}
	slices.SortFunc(users, func(a, b *model.User) int {
		return cmp.Or(cmp.Compare(a.FirstName, b.FirstName), cmp.Compare(a.LastName, b.LastName))
	})
	return users, nil
}

func (t *Users) Update(ctx context.Context, user *model.User) error {
	defer t.s.write(ctx)()

	u, ok := t.s.data.users[user.ID]
	if !ok {
		return fmt.Errorf("update user %d: %w", user.ID, model.ErrNotFound)
	}
	u.Username = user.Username
	u.FirstName = user.FirstName
	u.LastName = user.LastName
	u.Role = user.Role
	return nil
}

// Courses tables courses and enrollments
type Courses struct{ s *Store }

func (t *Courses) Create(ctx context.Context, course *model.Course) error {
	defer t.s.write(ctx)()

	for _, c := range t.s.data.courses {
		if c.Code == course.Code {
			return fmt.Errorf("create course: %w", model.ErrDuplicateRecord)
		}
	}

	course.ID = t.s.data.id()
	course.CreatedAt = t.s.now()
	v := *course
	t.s.data.courses[course.ID] = &v
	return nil
}

func (t *Courses) GetByID(_ context.Context, id int64) (*model.Course, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	c, ok := t.s.data.courses[id]
	if !ok {
		return nil, nil
	}
	v := *c
	return &v, nil
}

func (t *Courses) Enroll(ctx context.Context, courseID, studentID int64) error {
	defer t.s.write(ctx)()

	if _, ok := t.s.data.courses[courseID]; !ok {
		return fmt.Errorf("enroll student: course %d: %w", courseID, model.ErrNotFound)
	}

	e, ok := t.s.data.enrollments[courseID]
	if !ok {
		e = make(map[int64]time.Time)
		t.s.data.enrollments[courseID] = e
	}
	if _, exists := e[studentID]; !exists {
		e[studentID] = t.s.now()
	}
	return nil
}

func (t *Courses) Unenroll(ctx context.Context, courseID, studentID int64) error {
	defer t.s.write(ctx)()

	e := t.s.data.enrollments[courseID]
	if _, ok := e[studentID]; !ok {
		return fmt.Errorf("enrollment: %w", model.ErrNotFound)
	}
	delete(e, studentID)
	return nil
}

func (t *Courses) ListEnrollments(_ context.Context, courseID int64) ([]int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	ids := []int64{}
	for id := range t.s.data.enrollments[courseID] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (t *Courses) IsEnrolled(_ context.Context, courseID, studentID int64) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	_, ok := t.s.data.enrollments[courseID][studentID]
	return ok, nil
}

// Policies table attendance_policies
type Policies struct{ s *Store }

func (t *Policies) Get(_ context.Context, courseID int64) (*model.AttendancePolicy, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	p, ok := t.s.data.policies[courseID]
	if !ok {
		return nil, nil
	}
	return copyPolicy(p), nil
}

func (t *Policies) Upsert(ctx context.Context, policy *model.AttendancePolicy) error {
	defer t.s.write(ctx)()

	now := t.s.now()
	policy.UpdatedAt = &now
	t.s.data.policies[policy.CourseID] = copyPolicy(policy)
	return nil
}

// Sessions table class_sessions
type Sessions struct{ s *Store }

func (t *Sessions) Create(ctx context.Context, session *model.ClassSession) error {
	defer t.s.write(ctx)()

	if _, ok := t.s.data.courses[session.CourseID]; !ok {
		return fmt.Errorf("create session: course %d: %w", session.CourseID, model.ErrNotFound)
	}

	now := t.s.now()
	session.ID = t.s.data.id()
	session.CreatedAt = now
	session.UpdatedAt = now
	t.s.data.sessions[session.ID] = copySession(session)
	return nil
}

func (t *Sessions) GetByID(_ context.Context, id int64) (*model.ClassSession, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	sess, ok := t.s.data.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(sess), nil
}

func (t *Sessions) GetByCourse(_ context.Context, courseID int64) ([]*model.ClassSession, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var sessions []*model.ClassSession
	for _, sess := range t.s.data.sessions {
		if sess.CourseID == courseID {
			sessions = append(sessions, copySession(sess))
		}
	}
	slices.SortFunc(sessions, func(a, b *model.ClassSession) int {
		return cmp.Or(a.StartAt.Compare(b.StartAt), cmp.Compare(a.ID, b.ID))
	})
	return sessions, nil
}

func (t *Sessions) Transition(ctx context.Context, id int64, from, to model.SessionState, code *string) (bool, error) {
	defer t.s.write(ctx)()

	sess, ok := t.s.data.sessions[id]
	if !ok || sess.State != from {
		return false, nil
	}

	sess.State = to
	if code != nil {
		c := *code
		sess.AttendanceCode = &c
	}
	sess.UpdatedAt = t.s.now()
	return true, nil
}

func (t *Sessions) SetCode(ctx context.Context, id int64, code string) error {
	defer t.s.write(ctx)()

	sess, ok := t.s.data.sessions[id]
	if !ok {
		return fmt.Errorf("session %d: %w", id, model.ErrNotFound)
	}
	sess.AttendanceCode = &code
	sess.UpdatedAt = t.s.now()
	return nil
}

// Attendance table attendance_records, unique on (session_id, student_id)
type Attendance struct{ s *Store }

func (t *Attendance) findLocked(sessionID, studentID int64) *model.AttendanceRecord {
	for _, r := range t.s.data.records {
		if r.SessionID == sessionID && r.StudentID == studentID {
			return r
		}
	}
	return nil
}

func (t *Attendance) insertLocked(rec *model.AttendanceRecord) {
	now := t.s.now()
	rec.ID = t.s.data.id()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	v := *rec
	t.s.data.records[rec.ID] = &v
}

func (t *Attendance) Create(ctx context.Context, rec *model.AttendanceRecord) error {
	defer t.s.write(ctx)()

	if _, ok := t.s.data.sessions[rec.SessionID]; !ok {
		return fmt.Errorf("create attendance record: session %d: %w", rec.SessionID, model.ErrNotFound)
	}
	if t.findLocked(rec.SessionID, rec.StudentID) != nil {
		return fmt.Errorf("attendance record: %w", model.ErrDuplicateRecord)
	}

	t.insertLocked(rec)
	return nil
}

func (t *Attendance) CreateMany(ctx context.Context, sessionID int64, studentIDs []int64, status model.AttendanceStatus, markedBy int64) ([]*model.AttendanceRecord, error) {
	defer t.s.write(ctx)()

	var created []*model.AttendanceRecord
	for _, studentID := range studentIDs {
		if t.findLocked(sessionID, studentID) != nil {
			continue
		}
		rec := &model.AttendanceRecord{
			SessionID: sessionID,
			StudentID: studentID,
			Status:    status,
			MarkedBy:  markedBy,
		}
		t.insertLocked(rec)
		created = append(created, rec)
	}
	return created, nil
}

func (t *Attendance) GetByID(_ context.Context, id int64) (*model.AttendanceRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	r, ok := t.s.data.records[id]
	if !ok {
		return nil, nil
	}
	v := *r
	return &v, nil
}

func (t *Attendance) GetBySessionAndStudent(_ context.Context, sessionID, studentID int64) (*model.AttendanceRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	r := t.findLocked(sessionID, studentID)
	if r == nil {
		return nil, nil
	}
	v := *r
	return &v, nil
}

func (t *Attendance) filterLocked(keep func(r *model.AttendanceRecord) bool) []*model.AttendanceRecord {
	var out []*model.AttendanceRecord
	for _, r := range t.s.data.records {
		if keep(r) {
			v := *r
			out = append(out, &v)
		}
	}
	slices.SortFunc(out, func(a, b *model.AttendanceRecord) int {
		sa, sb := t.s.data.sessions[a.SessionID], t.s.data.sessions[b.SessionID]
		return cmp.Or(sa.StartAt.Compare(sb.StartAt), cmp.Compare(a.SessionID, b.SessionID), cmp.Compare(a.StudentID, b.StudentID))
	})
	return out
}

func (t *Attendance) GetBySession(_ context.Context, sessionID int64) ([]*model.AttendanceRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	return t.filterLocked(func(r *model.AttendanceRecord) bool { return r.SessionID == sessionID }), nil
}

func (t *Attendance) GetByCourse(_ context.Context, courseID int64) ([]*model.AttendanceRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	return t.filterLocked(func(r *model.AttendanceRecord) bool {
		return t.s.data.sessions[r.SessionID].CourseID == courseID
	}), nil
}

func (t *Attendance) GetByCourseAndStudent(_ context.Context, courseID, studentID int64) ([]*model.AttendanceRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	return t.filterLocked(func(r *model.AttendanceRecord) bool {
		return r.StudentID == studentID && t.s.data.sessions[r.SessionID].CourseID == courseID
	}), nil
}

func (t *Attendance) UpdateStatus(ctx context.Context, id int64, status model.AttendanceStatus, markedBy int64) error {
	defer t.s.write(ctx)()

	r, ok := t.s.data.records[id]
	if !ok {
		return fmt.Errorf("attendance record %d: %w", id, model.ErrNotFound)
	}
	r.Status = status
	r.MarkedBy = markedBy
	r.UpdatedAt = t.s.now()
	return nil
}

func (t *Attendance) ResolvePending(ctx context.Context, ids []int64, status model.AttendanceStatus, markedBy int64) ([]*model.AttendanceRecord, error) {
	defer t.s.write(ctx)()

	var resolved []*model.AttendanceRecord
	for _, id := range ids {
		r, ok := t.s.data.records[id]
		if !ok || r.Status != model.AttendanceStatusPending {
			continue
		}
		r.Status = status
		r.MarkedBy = markedBy
		r.UpdatedAt = t.s.now()
		v := *r
		resolved = append(resolved, &v)
	}
	return resolved, nil
}

// Excuses table excuse_requests, one active request per (session_id, student_id)
type Excuses struct{ s *Store }

func (t *Excuses) activeLocked(sessionID, studentID int64) bool {
	for _, e := range t.s.data.excuses {
		if e.SessionID == sessionID && e.StudentID == studentID && e.Status.IsActive() {
			return true
		}
	}
	return false
}

func (t *Excuses) Create(ctx context.Context, req *model.ExcuseRequest) error {
	defer t.s.write(ctx)()

	if t.activeLocked(req.SessionID, req.StudentID) {
		return fmt.Errorf("excuse request: %w", model.ErrDuplicateActiveRequest)
	}

	req.ID = t.s.data.id()
	req.CreatedAt = t.s.now()
	if req.Status == "" {
		req.Status = model.RequestStatusPending
	}
	t.s.data.excuses[req.ID] = copyExcuse(req)
	return nil
}

func (t *Excuses) GetByID(_ context.Context, id int64) (*model.ExcuseRequest, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	e, ok := t.s.data.excuses[id]
	if !ok {
		return nil, nil
	}
	return copyExcuse(e), nil
}

func (t *Excuses) HasActive(_ context.Context, sessionID, studentID int64) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	return t.activeLocked(sessionID, studentID), nil
}

func (t *Excuses) Decide(ctx context.Context, id int64, status model.RequestStatus, decidedBy int64, note string) (bool, error) {
	defer t.s.write(ctx)()

	e, ok := t.s.data.excuses[id]
	if !ok || e.Status != model.RequestStatusPending {
		return false, nil
	}

	now := t.s.now()
	e.Status = status
	e.DecidedBy = &decidedBy
	e.DecisionNote = note
	e.DecidedAt = &now
	return true, nil
}

func (t *Excuses) GetPendingByCourse(_ context.Context, courseID int64) ([]*model.ExcuseRequest, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var out []*model.ExcuseRequest
	for _, e := range t.s.data.excuses {
		if e.IsPending() && t.s.data.sessions[e.SessionID].CourseID == courseID {
			out = append(out, copyExcuse(e))
		}
	}
	slices.SortFunc(out, func(a, b *model.ExcuseRequest) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (t *Excuses) GetByStudent(_ context.Context, studentID int64) ([]*model.ExcuseRequest, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var out []*model.ExcuseRequest
	for _, e := range t.s.data.excuses {
		if e.StudentID == studentID {
			out = append(out, copyExcuse(e))
		}
	}
	slices.SortFunc(out, func(a, b *model.ExcuseRequest) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

// Appeals table appeal_records, one active appeal per record
type Appeals struct{ s *Store }

func (t *Appeals) activeLocked(recordID int64) bool {
	for _, a := range t.s.data.appeals {
		if a.RecordID == recordID && a.Status.IsActive() {
			return true
		}
	}
	return false
}

func (t *Appeals) Create(ctx context.Context, appeal *model.AppealRecord) error {
	defer t.s.write(ctx)()

	if _, ok := t.s.data.records[appeal.RecordID]; !ok {
		return fmt.Errorf("create appeal: record %d: %w", appeal.RecordID, model.ErrNotFound)
	}
	if t.activeLocked(appeal.RecordID) {
		return fmt.Errorf("appeal: %w", model.ErrDuplicateActiveRequest)
	}

	appeal.ID = t.s.data.id()
	appeal.CreatedAt = t.s.now()
	if appeal.Status == "" {
		appeal.Status = model.RequestStatusPending
	}
	t.s.data.appeals[appeal.ID] = copyAppeal(appeal)
	return nil
}

func (t *Appeals) GetByID(_ context.Context, id int64) (*model.AppealRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	a, ok := t.s.data.appeals[id]
	if !ok {
		return nil, nil
	}
	return copyAppeal(a), nil
}

func (t *Appeals) HasActive(_ context.Context, recordID int64) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	return t.activeLocked(recordID), nil
}

func (t *Appeals) Decide(ctx context.Context, id int64, status model.RequestStatus, corrected *model.AttendanceStatus, decidedBy int64, note string) (bool, error) {
	defer t.s.write(ctx)()

	a, ok := t.s.data.appeals[id]
	if !ok || a.Status != model.RequestStatusPending {
		return false, nil
	}

	now := t.s.now()
	a.Status = status
	if corrected != nil {
		c := *corrected
		a.CorrectedStatus = &c
	}
	a.DecidedBy = &decidedBy
	a.DecisionNote = note
	a.DecidedAt = &now
	return true, nil
}

func (t *Appeals) GetPendingByCourse(_ context.Context, courseID int64) ([]*model.AppealRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var out []*model.AppealRecord
	for _, a := range t.s.data.appeals {
		if !a.IsPending() {
			continue
		}
		rec := t.s.data.records[a.RecordID]
		if t.s.data.sessions[rec.SessionID].CourseID == courseID {
			out = append(out, copyAppeal(a))
		}
	}
	slices.SortFunc(out, func(a, b *model.AppealRecord) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (t *Appeals) GetByStudent(_ context.Context, studentID int64) ([]*model.AppealRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var out []*model.AppealRecord
	for _, a := range t.s.data.appeals {
		if a.StudentID == studentID {
			out = append(out, copyAppeal(a))
		}
	}
	slices.SortFunc(out, func(a, b *model.AppealRecord) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

// Notifications outbox table notifications
type Notifications struct{ s *Store }

func (t *Notifications) Notify(ctx context.Context, userIDs []int64, msg model.NotificationMessage) error {
	defer t.s.write(ctx)()

	for _, userID := range userIDs {
		id := t.s.data.id()
		t.s.data.notifications[id] = &outboxEntry{Notification: model.Notification{
			ID:        id,
			UserID:    userID,
			Type:      msg.Type,
			Title:     msg.Title,
			Content:   msg.Content,
			Link:      msg.Link,
			CreatedAt: t.s.now(),
		}}
	}
	return nil
}

func (t *Notifications) ClaimUndelivered(ctx context.Context, limit, maxAttempts int, lease time.Duration) ([]*model.Notification, error) {
	defer t.s.write(ctx)()

	now := t.s.now()
	ids := make([]int64, 0, len(t.s.data.notifications))
	for id := range t.s.data.notifications {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var claimed []*model.Notification
	for _, id := range ids {
		if len(claimed) >= limit {
			break
		}
		n := t.s.data.notifications[id]
		if n.DeliveredAt != nil || n.Attempts >= maxAttempts {
			continue
		}
		if n.claimedAt != nil && n.claimedAt.After(now.Add(-lease)) {
			continue
		}
		n.Attempts++
		n.claimedAt = &now

		v := n.Notification
		if u, ok := t.s.data.users[n.UserID]; ok {
			v.TelegramID = u.TelegramID
		}
		claimed = append(claimed, &v)
	}
	return claimed, nil
}

func (t *Notifications) MarkDelivered(ctx context.Context, id int64) error {
	defer t.s.write(ctx)()

	n, ok := t.s.data.notifications[id]
	if !ok {
		return fmt.Errorf("notification %d: %w", id, model.ErrNotFound)
	}
	now := t.s.now()
	n.DeliveredAt = &now
	n.LastError = ""
	return nil
}

func (t *Notifications) MarkFailed(ctx context.Context, id int64, reason string) error {
	defer t.s.write(ctx)()

	n, ok := t.s.data.notifications[id]
	if !ok {
		return fmt.Errorf("notification %d: %w", id, model.ErrNotFound)
	}
	n.LastError = reason
	n.claimedAt = nil
	return nil
}

// All returns every queued notification in insertion order
func (t *Notifications) All() []model.Notification {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	out := make([]model.Notification, 0, len(t.s.data.notifications))
	for _, n := range t.s.data.notifications {
		out = append(out, n.Notification)
	}
	slices.SortFunc(out, func(a, b model.Notification) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// ForUser returns notifications queued for one user
func (t *Notifications) ForUser(userID int64) []model.Notification {
	var out []model.Notification
	for _, n := range t.All() {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// Audit table audit_logs
type Audit struct{ s *Store }

func (t *Audit) Record(ctx context.Context, entry model.AuditEntry) error {
	defer t.s.write(ctx)()

	entry.ID = t.s.data.id()
	entry.CreatedAt = t.s.now()
	t.s.data.audits = append(t.s.data.audits, entry)
	return nil
}

func (t *Audit) GetByTarget(_ context.Context, targetType string, targetID int64) ([]*model.AuditEntry, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var out []*model.AuditEntry
	for _, e := range t.s.data.audits {
		if e.TargetType == targetType && e.TargetID == targetID {
			v := e
			out = append(out, &v)
		}
	}
	return out, nil
}

// Entries returns every audit entry in write order
func (t *Audit) Entries() []model.AuditEntry {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	return append([]model.AuditEntry(nil), t.s.data.audits...)
}

// Actions returns entries with the given action
func (t *Audit) Actions(action string) []model.AuditEntry {
	var out []model.AuditEntry
	for _, e := range t.Entries() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
