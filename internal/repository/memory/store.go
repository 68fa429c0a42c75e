// Package memory is an in-process implementation of the service stores.
// It enforces the same uniqueness rules as the PostgreSQL schema and is used
// by the service tests.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/model"
)

type txKey struct{}

type state struct {
	nextID        int64
	users         map[int64]*model.User
	courses       map[int64]*model.Course
	enrollments   map[int64]map[int64]time.Time
	policies      map[int64]*model.AttendancePolicy
	sessions      map[int64]*model.ClassSession
	records       map[int64]*model.AttendanceRecord
	excuses       map[int64]*model.ExcuseRequest
	appeals       map[int64]*model.AppealRecord
	notifications map[int64]*outboxEntry
	audits        []model.AuditEntry
}

type outboxEntry struct {
	model.Notification
	claimedAt *time.Time
}

func newState() *state {
	return &state{
		users:         make(map[int64]*model.User),
		courses:       make(map[int64]*model.Course),
		enrollments:   make(map[int64]map[int64]time.Time),
		policies:      make(map[int64]*model.AttendancePolicy),
		sessions:      make(map[int64]*model.ClassSession),
		records:       make(map[int64]*model.AttendanceRecord),
		excuses:       make(map[int64]*model.ExcuseRequest),
		appeals:       make(map[int64]*model.AppealRecord),
		notifications: make(map[int64]*outboxEntry),
	}
}

// clone copies every row so a failed transaction can be rolled back
func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for id, u := range s.users {
		v := *u
		c.users[id] = &v
	}
	for id, crs := range s.courses {
		v := *crs
		c.courses[id] = &v
	}
	for id, e := range s.enrollments {
		c.enrollments[id] = maps.Clone(e)
	}
	for id, p := range s.policies {
		c.policies[id] = copyPolicy(p)
	}
	for id, sess := range s.sessions {
		c.sessions[id] = copySession(sess)
	}
	for id, r := range s.records {
		v := *r
		c.records[id] = &v
	}
	for id, e := range s.excuses {
		c.excuses[id] = copyExcuse(e)
	}
	for id, a := range s.appeals {
		c.appeals[id] = copyAppeal(a)
	}
	for id, n := range s.notifications {
		v := *n
		c.notifications[id] = &v
	}
	c.audits = append([]model.AuditEntry(nil), s.audits...)
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store holds all tables behind one mutex. Transactions are serialized, and a
// write outside a transaction waits for the running one to finish, the way a
// row lock blocks it in PostgreSQL. Reads never wait.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data *state
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{
		data: newState(),
		now:  time.Now,
	}
}

// SetClock overrides the time source used for timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// WithinTx runs fn atomically: on error every change made inside fn is discarded.
// Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}

	return nil
}

// write locks the tables for a mutation and returns the unlock func.
// Outside a transaction it also takes txMu so a rollback cannot discard it.
func (s *Store) write(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		s.mu.Lock()
		return s.mu.Unlock
	}

	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

func (s *Store) Users() *Users                 { return &Users{s: s} }
func (s *Store) Courses() *Courses             { return &Courses{s: s} }
func (s *Store) Policies() *Policies           { return &Policies{s: s} }
func (s *Store) Sessions() *Sessions           { return &Sessions{s: s} }
func (s *Store) Attendance() *Attendance       { return &Attendance{s: s} }
func (s *Store) Excuses() *Excuses             { return &Excuses{s: s} }
func (s *Store) Appeals() *Appeals             { return &Appeals{s: s} }
func (s *Store) Notifications() *Notifications { return &Notifications{s: s} }
func (s *Store) Audit() *Audit                 { return &Audit{s: s} }

func copyPolicy(p *model.AttendancePolicy) *model.AttendancePolicy {
	v := *p
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		v.UpdatedAt = &t
	}
	return &v
}

func copySession(sess *model.ClassSession) *model.ClassSession {
	v := *sess
	if sess.AttendanceCode != nil {
		code := *sess.AttendanceCode
		v.AttendanceCode = &code
	}
	return &v
}

func copyExcuse(e *model.ExcuseRequest) *model.ExcuseRequest {
	v := *e
	v.FileURLs = append([]string(nil), e.FileURLs...)
	if e.DecidedBy != nil {
		id := *e.DecidedBy
		v.DecidedBy = &id
	}
	if e.DecidedAt != nil {
		t := *e.DecidedAt
		v.DecidedAt = &t
	}
	return &v
}

func copyAppeal(a *model.AppealRecord) *model.AppealRecord {
	v := *a
	if a.CorrectedStatus != nil {
		st := *a.CorrectedStatus
		v.CorrectedStatus = &st
	}
	if a.DecidedBy != nil {
		id := *a.DecidedBy
		v.DecidedBy = &id
	}
	if a.DecidedAt != nil {
		t := *a.DecidedAt
		v.DecidedAt = &t
	}
	return &v
}
