package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStanding(t *testing.T) {
	statuses := func(ss ...model.AttendanceStatus) []*model.AttendanceRecord {
		out := make([]*model.AttendanceRecord, 0, len(ss))
		for i, s := range ss {
			out = append(out, record(int64(i+1), 7, s))
		}
		return out
	}

	tests := []struct {
		name          string
		policy        *model.AttendancePolicy
		records       []*model.AttendanceRecord
		wantEffective int
		wantFailing   bool
	}{
		{
			name:          "no records",
			policy:        model.DefaultPolicy(1),
			wantEffective: 0,
		},
		{
			name:          "three lates make one absence",
			policy:        model.DefaultPolicy(1),
			records:       statuses(model.AttendanceStatusLate, model.AttendanceStatusLate, model.AttendanceStatusLate, model.AttendanceStatusLate),
			wantEffective: 1,
		},
		{
			name:          "at the limit is not failing",
			policy:        &model.AttendancePolicy{CourseID: 1, MaxAbsent: 2, LateToAbsent: 2},
			records:       statuses(model.AttendanceStatusAbsent, model.AttendanceStatusLate, model.AttendanceStatusLate),
			wantEffective: 2,
		},
		{
			name:          "over the limit",
			policy:        &model.AttendancePolicy{CourseID: 1, MaxAbsent: 1, LateToAbsent: 3},
			records:       statuses(model.AttendanceStatusAbsent, model.AttendanceStatusAbsent, model.AttendanceStatusExcused),
			wantEffective: 2,
			wantFailing:   true,
		},
		{
			name:          "zero tolerance",
			policy:        &model.AttendancePolicy{CourseID: 1, MaxAbsent: 0, LateToAbsent: 1},
			records:       statuses(model.AttendanceStatusLate),
			wantEffective: 1,
			wantFailing:   true,
		},
		{
			name:          "excused and present never count",
			policy:        &model.AttendancePolicy{CourseID: 1, MaxAbsent: 0, LateToAbsent: 1},
			records:       statuses(model.AttendanceStatusExcused, model.AttendanceStatusPresent, model.AttendanceStatusPending),
			wantEffective: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStanding(tt.policy, 7, tt.records)
			assert.Equal(t, tt.wantEffective, got.EffectiveAbsences)
			assert.Equal(t, tt.wantFailing, got.Failing)
		})
	}
}

func TestReportService_Standing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.students[0]

	_, err := f.policies.SetPolicy(ctx, f.instructor.Principal(), f.course.ID, 1, 2)
	require.NoError(t, err)

	for range 2 {
		session := f.openSession(t, model.AttendanceMethodDirect)
		_, err := f.sessions.Close(ctx, f.instructor.Principal(), session.ID)
		require.NoError(t, err)
	}

	standing, err := f.reports.Standing(ctx, st.Principal(), f.course.ID, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, standing.Absent)
	assert.Equal(t, 2, standing.EffectiveAbsences)
	assert.True(t, standing.Failing)

	records, err := f.attendance.StudentRecords(ctx, st.Principal(), f.course.ID, st.ID)
	require.NoError(t, err)
	_, err = f.attendance.Update(ctx, f.instructor.Principal(), records[0].ID, model.AttendanceStatusLate)
	require.NoError(t, err)

	standing, err = f.reports.Standing(ctx, st.Principal(), f.course.ID, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, standing.Late)
	assert.Equal(t, 1, standing.EffectiveAbsences, "one late is below the conversion threshold")
	assert.False(t, standing.Failing)

	_, err = f.reports.Standing(ctx, f.students[1].Principal(), f.course.ID, st.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.reports.Standing(ctx, f.instructor.Principal(), f.course.ID, f.stranger.ID)
	assert.ErrorIs(t, err, model.ErrNotEnrolled)

	all, err := f.reports.CourseStanding(ctx, f.instructor.Principal(), f.course.ID)
	require.NoError(t, err)
	assert.Len(t, all, len(f.students))

	_, err = f.reports.CourseStanding(ctx, st.Principal(), f.course.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestPolicyService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	policy, err := f.policies.GetPolicy(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMaxAbsent, policy.MaxAbsent)
	assert.Equal(t, model.DefaultLateToAbsent, policy.LateToAbsent)
	assert.Nil(t, policy.UpdatedAt)

	_, err = f.policies.SetPolicy(ctx, f.instructor.Principal(), f.course.ID, -1, 3)
	assert.ErrorIs(t, err, model.ErrValidationFailed)
	_, err = f.policies.SetPolicy(ctx, f.instructor.Principal(), f.course.ID, 3, 0)
	assert.ErrorIs(t, err, model.ErrValidationFailed)
	_, err = f.policies.SetPolicy(ctx, f.outsider.Principal(), f.course.ID, 3, 3)
	assert.ErrorIs(t, err, model.ErrForbidden)

	updated, err := f.policies.SetPolicy(ctx, f.instructor.Principal(), f.course.ID, 5, 4)
	require.NoError(t, err)
	assert.NotNil(t, updated.UpdatedAt)

	stored, err := f.policies.GetPolicy(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.MaxAbsent)
	assert.Equal(t, 4, stored.LateToAbsent)

	audits := f.store.Audit().Actions(model.AuditPolicyUpdate)
	require.Len(t, audits, 1)
	assert.Equal(t, model.DefaultMaxAbsent, audits[0].OldValue["max_absent"])
	assert.Equal(t, 5, audits[0].NewValue["max_absent"])
}
