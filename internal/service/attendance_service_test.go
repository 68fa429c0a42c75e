package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMark_SelfCheckIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.students[0]

	scheduled := f.newSession(t, model.AttendanceMethodDirect)
	_, err := f.attendance.Mark(ctx, st.Principal(), MarkInput{SessionID: scheduled.ID, StudentID: st.ID})
	assert.ErrorIs(t, err, model.ErrSessionNotOpen)

	session := f.openSession(t, model.AttendanceMethodDirect)
	rec, err := f.attendance.Mark(ctx, st.Principal(), MarkInput{SessionID: session.ID, StudentID: st.ID})
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceStatusPresent, rec.Status)
	assert.Equal(t, st.ID, rec.MarkedBy)

	_, err = f.attendance.Mark(ctx, st.Principal(), MarkInput{SessionID: session.ID, StudentID: st.ID})
	assert.ErrorIs(t, err, model.ErrDuplicateRecord)

	require.Len(t, f.store.Audit().Actions(model.AuditAttendanceMark), 1)
}

func TestMark_StudentRestrictions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, model.AttendanceMethodDirect)
	st := f.students[0]

	tests := []struct {
		name  string
		actor *model.Principal
		in    MarkInput
		want  error
	}{
		{
			name:  "other student",
			actor: f.students[1].Principal(),
			in:    MarkInput{SessionID: session.ID, StudentID: st.ID},
			want:  model.ErrForbidden,
		},
		{
			name:  "self excused",
			actor: st.Principal(),
			in:    MarkInput{SessionID: session.ID, StudentID: st.ID, Status: model.AttendanceStatusExcused},
			want:  model.ErrValidationFailed,
		},
		{
			name:  "not enrolled",
			actor: f.stranger.Principal(),
			in:    MarkInput{SessionID: session.ID, StudentID: f.stranger.ID},
			want:  model.ErrNotEnrolled,
		},
		{
			name:  "foreign instructor",
			actor: f.outsider.Principal(),
			in:    MarkInput{SessionID: session.ID, StudentID: st.ID, Status: model.AttendanceStatusPresent},
			want:  model.ErrForbidden,
		},
		{
			name:  "unknown session",
			actor: st.Principal(),
			in:    MarkInput{SessionID: 9999, StudentID: st.ID},
			want:  model.ErrNotFound,
		},
		{
			name:  "anonymous",
			actor: nil,
			in:    MarkInput{SessionID: session.ID, StudentID: st.ID},
			want:  model.ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.attendance.Mark(ctx, tt.actor, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Empty(t, f.statusOf(t, session.ID, st.ID))
}

func TestMark_LateAfterGracePeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, model.AttendanceMethodDirect)

	f.clock = session.StartAt.Add(DefaultLateAfter + time.Minute)

	rec, err := f.attendance.Mark(ctx, f.students[0].Principal(), MarkInput{SessionID: session.ID, StudentID: f.students[0].ID})
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceStatusLate, rec.Status)

	manual, err := f.attendance.Mark(ctx, f.instructor.Principal(), MarkInput{SessionID: session.ID, StudentID: f.students[1].ID, Status: model.AttendanceStatusPresent})
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceStatusPresent, manual.Status, "instructor status is taken as given")
}

func TestMark_Code(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, model.AttendanceMethodCode)
	st := f.students[0]

	wrong := "0000"
	if session.Code() == wrong {
		wrong = "0001"
	}

	_, err := f.attendance.Mark(ctx, st.Principal(), MarkInput{SessionID: session.ID, StudentID: st.ID, Code: wrong})
	assert.ErrorIs(t, err, model.ErrInvalidCode)
	assert.Empty(t, f.statusOf(t, session.ID, st.ID), "wrong code creates no record")

	_, err = f.attendance.Mark(ctx, st.Principal(), MarkInput{SessionID: session.ID, StudentID: st.ID})
	assert.ErrorIs(t, err, model.ErrInvalidCode)

	rec, err := f.attendance.Mark(ctx, st.Principal(), MarkInput{SessionID: session.ID, StudentID: st.ID, Code: session.Code()})
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceStatusPresent, rec.Status)

	manual, err := f.attendance.Mark(ctx, f.instructor.Principal(), MarkInput{SessionID: session.ID, StudentID: f.students[1].ID, Status: model.AttendanceStatusPresent})
	require.NoError(t, err, "instructor does not need the code")
	assert.Equal(t, model.AttendanceStatusPresent, manual.Status)
}

func TestMark_RegeneratedCodeInvalidatesOld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, model.AttendanceMethodCode)
	old := session.Code()

	f.sessions.newCode = func() (string, error) {
		if old == "5555" {
			return "6666", nil
		}
		return "5555", nil
	}
	regenerated, err := f.sessions.RegenerateCode(ctx, f.instructor.Principal(), session.ID)
	require.NoError(t, err)

	st := f.students[0]
	_, err = f.attendance.Mark(ctx, st.Principal(), MarkInput{SessionID: session.ID, StudentID: st.ID, Code: old})
	assert.ErrorIs(t, err, model.ErrInvalidCode)

	_, err = f.attendance.Mark(ctx, st.Principal(), MarkInput{SessionID: session.ID, StudentID: st.ID, Code: regenerated.Code()})
	assert.NoError(t, err)
}

func TestMark_ConcurrentSameStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, model.AttendanceMethodDirect)
	st := f.students[0]

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.attendance.Mark(ctx, st.Principal(), MarkInput{SessionID: session.ID, StudentID: st.ID})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, model.ErrDuplicateRecord)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	records, err := f.store.Attendance().GetBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMark_InstructorOnClosedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, model.AttendanceMethodDirect)

	require.NoError(t, f.courses.Unenroll(ctx, f.instructor.Principal(), f.course.ID, f.students[2].ID))
	_, err := f.sessions.Close(ctx, f.instructor.Principal(), session.ID)
	require.NoError(t, err)
	require.NoError(t, f.courses.Enroll(ctx, f.instructor.Principal(), f.course.ID, f.students[2].ID))

	_, err = f.attendance.Mark(ctx, f.students[2].Principal(), MarkInput{SessionID: session.ID, StudentID: f.students[2].ID})
	assert.ErrorIs(t, err, model.ErrSessionNotOpen, "students cannot check in after close")

	_, err = f.attendance.Mark(ctx, f.instructor.Principal(), MarkInput{SessionID: session.ID, StudentID: f.students[2].ID, Status: model.AttendanceStatusPending})
	assert.ErrorIs(t, err, model.ErrValidationFailed, "closed sessions are never reconciled again")

	rec, err := f.attendance.Mark(ctx, f.instructor.Principal(), MarkInput{SessionID: session.ID, StudentID: f.students[2].ID, Status: model.AttendanceStatusLate})
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceStatusLate, rec.Status)
}

func TestUpdate_AllowedInAnyState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, model.AttendanceMethodDirect)
	st := f.students[0]

	_, err := f.sessions.Close(ctx, f.instructor.Principal(), session.ID)
	require.NoError(t, err)

	rec, err := f.store.Attendance().GetBySessionAndStudent(ctx, session.ID, st.ID)
	require.NoError(t, err)
	require.Equal(t, model.AttendanceStatusAbsent, rec.Status)

	updated, err := f.attendance.Update(ctx, f.instructor.Principal(), rec.ID, model.AttendanceStatusPresent)
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceStatusPresent, updated.Status)
	assert.Equal(t, f.instructor.ID, updated.MarkedBy)

	edits := f.store.Audit().Actions(model.AuditAttendanceEdit)
	require.Len(t, edits, 1)
	assert.Equal(t, "ABSENT", edits[0].OldValue["status"])
	assert.Equal(t, "PRESENT", edits[0].NewValue["status"])

	notes := f.store.Notifications().ForUser(st.ID)
	require.NotEmpty(t, notes)
	assert.Equal(t, model.NotificationStatusChanged, notes[len(notes)-1].Type)

	_, err = f.attendance.Update(ctx, f.instructor.Principal(), rec.ID, model.AttendanceStatusPresent)
	require.NoError(t, err)
	assert.Len(t, f.store.Audit().Actions(model.AuditAttendanceEdit), 1, "no-op update is not audited")

	_, err = f.attendance.Update(ctx, st.Principal(), rec.ID, model.AttendanceStatusExcused)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.attendance.Update(ctx, f.instructor.Principal(), rec.ID, "GONE")
	assert.ErrorIs(t, err, model.ErrValidationFailed)

	_, err = f.attendance.Update(ctx, f.instructor.Principal(), rec.ID, model.AttendanceStatusPending)
	assert.ErrorIs(t, err, model.ErrValidationFailed)
	rec, err = f.store.Attendance().GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceStatusPresent, rec.Status)

	second := f.openSession(t, model.AttendanceMethodDirect)
	marked, err := f.attendance.Mark(ctx, f.instructor.Principal(), MarkInput{SessionID: second.ID, StudentID: st.ID, Status: model.AttendanceStatusLate})
	require.NoError(t, err)
	pending, err := f.attendance.Update(ctx, f.instructor.Principal(), marked.ID, model.AttendanceStatusPending)
	require.NoError(t, err, "PENDING is allowed while the session can still be reconciled")
	assert.Equal(t, model.AttendanceStatusPending, pending.Status)
}

func TestStudentRecords_Access(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, model.AttendanceMethodDirect)
	st := f.students[0]

	_, err := f.attendance.Mark(ctx, st.Principal(), MarkInput{SessionID: session.ID, StudentID: st.ID})
	require.NoError(t, err)

	own, err := f.attendance.StudentRecords(ctx, st.Principal(), f.course.ID, st.ID)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	_, err = f.attendance.StudentRecords(ctx, f.students[1].Principal(), f.course.ID, st.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	all, err := f.attendance.SessionRecords(ctx, f.instructor.Principal(), session.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.attendance.SessionRecords(ctx, st.Principal(), session.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)
}
