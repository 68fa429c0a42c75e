package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertStateInvariant(t *testing.T, s *model.ClassSession) {
	t.Helper()
	assert.False(t, s.IsOpen() && s.IsClosed(), "session %d is both open and closed", s.ID)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.instructor.Principal()

	session := f.newSession(t, model.AttendanceMethodDirect)
	assert.Equal(t, model.SessionStateScheduled, session.State)
	assertStateInvariant(t, session)

	_, err := f.sessions.Close(ctx, actor, session.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition, "cannot close a scheduled session")

	opened, err := f.sessions.Open(ctx, actor, session.ID)
	require.NoError(t, err)
	assert.True(t, opened.IsOpen())
	assert.Nil(t, opened.AttendanceCode, "direct sessions have no code")
	assertStateInvariant(t, opened)

	_, err = f.sessions.Open(ctx, actor, session.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	closed, err := f.sessions.Close(ctx, actor, session.ID)
	require.NoError(t, err)
	assert.True(t, closed.Session.IsClosed())
	assertStateInvariant(t, closed.Session)

	_, err = f.sessions.Open(ctx, actor, session.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition, "closed is terminal")
	_, err = f.sessions.Close(ctx, actor, session.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	stored, err := f.sessions.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateClosed, stored.State)

	assert.Len(t, f.store.Audit().Actions(model.AuditSessionOpen), 1)
	assert.Len(t, f.store.Audit().Actions(model.AuditSessionClose), 1)
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from    model.SessionState
		event   model.SessionEvent
		want    model.SessionState
		wantErr bool
	}{
		{model.SessionStateScheduled, model.SessionEventOpen, model.SessionStateOpen, false},
		{model.SessionStateOpen, model.SessionEventClose, model.SessionStateClosed, false},
		{model.SessionStateScheduled, model.SessionEventClose, model.SessionStateScheduled, true},
		{model.SessionStateOpen, model.SessionEventOpen, model.SessionStateOpen, true},
		{model.SessionStateClosed, model.SessionEventOpen, model.SessionStateClosed, true},
		{model.SessionStateClosed, model.SessionEventClose, model.SessionStateClosed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			got, err := model.Transition(tt.from, tt.event)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateSession_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := f.sessions.CreateSession(ctx, f.instructor.Principal(), CreateSessionInput{
		CourseID: f.course.ID,
		StartAt:  start,
		EndAt:    start.Add(-time.Hour),
		Method:   model.AttendanceMethodDirect,
	})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "end_at", verr.Fields[0].Field)

	_, err = f.sessions.CreateSession(ctx, f.instructor.Principal(), CreateSessionInput{
		CourseID: f.course.ID,
		StartAt:  start,
		EndAt:    start.Add(time.Hour),
		Method:   "QR",
	})
	assert.ErrorIs(t, err, model.ErrValidationFailed)

	_, err = f.sessions.CreateSession(ctx, f.outsider.Principal(), CreateSessionInput{
		CourseID: f.course.ID,
		StartAt:  start,
		EndAt:    start.Add(time.Hour),
		Method:   model.AttendanceMethodDirect,
	})
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.sessions.CreateSession(ctx, nil, CreateSessionInput{CourseID: f.course.ID})
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestOpen_NotifiesEnrolledStudents(t *testing.T) {
	f := newFixture(t)
	session := f.openSession(t, model.AttendanceMethodCode)

	require.NotNil(t, session.AttendanceCode)
	assert.Regexp(t, `^[1-9][0-9]{3}$`, *session.AttendanceCode)

	for _, st := range f.students {
		got := f.store.Notifications().ForUser(st.ID)
		require.Len(t, got, 1)
		assert.Equal(t, model.NotificationSessionOpened, got[0].Type)
		assert.NotContains(t, got[0].Content, *session.AttendanceCode, "code is never broadcast")
	}
	assert.Empty(t, f.store.Notifications().ForUser(f.stranger.ID))
}

func TestOpen_ForbiddenForOtherInstructor(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(t, model.AttendanceMethodDirect)

	_, err := f.sessions.Open(context.Background(), f.outsider.Principal(), session.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.sessions.Open(context.Background(), f.students[0].Principal(), session.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.sessions.Open(context.Background(), f.admin.Principal(), session.ID)
	assert.NoError(t, err, "admin manages every course")
}

func TestRegenerateCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, model.AttendanceMethodCode)

	codes := []string{"1111", "2222"}
	f.sessions.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	old := session.Code()

	regenerated, err := f.sessions.RegenerateCode(ctx, f.instructor.Principal(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "1111", regenerated.Code())
	assert.NotEqual(t, old, regenerated.Code())

	stored, err := f.sessions.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "1111", stored.Code())
	assert.Len(t, f.store.Audit().Actions(model.AuditSessionCode), 1)

	direct := f.openSession(t, model.AttendanceMethodDirect)
	_, err = f.sessions.RegenerateCode(ctx, f.instructor.Principal(), direct.ID)
	assert.ErrorIs(t, err, model.ErrWrongMethod)
}

func TestListCourseSessions_HidesCodeFromStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openSession(t, model.AttendanceMethodCode)

	forStudent, err := f.sessions.ListCourseSessions(ctx, f.students[0].Principal(), f.course.ID)
	require.NoError(t, err)
	require.Len(t, forStudent, 1)
	assert.Nil(t, forStudent[0].AttendanceCode)

	forInstructor, err := f.sessions.ListCourseSessions(ctx, f.instructor.Principal(), f.course.ID)
	require.NoError(t, err)
	require.Len(t, forInstructor, 1)
	assert.NotNil(t, forInstructor[0].AttendanceCode, "store copy must not be mutated")

	_, err = f.sessions.ListCourseSessions(ctx, f.stranger.Principal(), f.course.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestClose_ReconcilesNonDestructively(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, model.AttendanceMethodDirect)
	a, b, c := f.students[0], f.students[1], f.students[2]

	_, err := f.attendance.Mark(ctx, a.Principal(), MarkInput{SessionID: session.ID, StudentID: a.ID})
	require.NoError(t, err)
	_, err = f.attendance.Mark(ctx, f.instructor.Principal(), MarkInput{SessionID: session.ID, StudentID: b.ID, Status: model.AttendanceStatusPending})
	require.NoError(t, err)

	result, err := f.sessions.Close(ctx, f.instructor.Principal(), session.ID)
	require.NoError(t, err)

	assert.Equal(t, model.AttendanceStatusPresent, f.statusOf(t, session.ID, a.ID))
	assert.Equal(t, model.AttendanceStatusAbsent, f.statusOf(t, session.ID, b.ID))
	assert.Equal(t, model.AttendanceStatusAbsent, f.statusOf(t, session.ID, c.ID))

	require.Len(t, result.Reconcile.Created, 1)
	assert.Equal(t, c.ID, result.Reconcile.Created[0].StudentID)
	require.Len(t, result.Reconcile.Resolved, 1)
	assert.Equal(t, b.ID, result.Reconcile.Resolved[0].StudentID)
	assert.Len(t, f.store.Audit().Actions(model.AuditAttendanceSweep), 2)
}

func TestClose_Completeness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, model.AttendanceMethodDirect)

	_, err := f.attendance.Mark(ctx, f.instructor.Principal(), MarkInput{SessionID: session.ID, StudentID: f.students[0].ID, Status: model.AttendanceStatusExcused})
	require.NoError(t, err)
	_, err = f.attendance.Mark(ctx, f.instructor.Principal(), MarkInput{SessionID: session.ID, StudentID: f.students[1].ID, Status: model.AttendanceStatusLate})
	require.NoError(t, err)

	_, err = f.sessions.Close(ctx, f.instructor.Principal(), session.ID)
	require.NoError(t, err)

	enrolled, err := f.courses.ListEnrollments(ctx, f.course.ID)
	require.NoError(t, err)
	for _, id := range enrolled {
		status := f.statusOf(t, session.ID, id)
		assert.NotEmpty(t, status, "student %d has no record", id)
		assert.NotEqual(t, model.AttendanceStatusPending, status)
	}
	assert.Equal(t, model.AttendanceStatusExcused, f.statusOf(t, session.ID, f.students[0].ID))
	assert.Equal(t, model.AttendanceStatusLate, f.statusOf(t, session.ID, f.students[1].ID))
}

func TestClose_RollsBackWhenSweepFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, model.AttendanceMethodDirect)

	f.sessions.reconciler = NewReconciler(failingEnrollments{f.store.Courses()}, f.store.Attendance())

	_, err := f.sessions.Close(ctx, f.instructor.Principal(), session.ID)
	require.Error(t, err)

	stored, err := f.sessions.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateOpen, stored.State, "session must not be closed without its sweep")
	assert.Empty(t, f.store.Audit().Actions(model.AuditSessionClose))
}

type failingEnrollments struct {
	CourseStore
}

func (failingEnrollments) ListEnrollments(context.Context, int64) ([]int64, error) {
	return nil, assert.AnError
}
