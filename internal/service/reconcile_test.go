package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, studentID int64, status model.AttendanceStatus) *model.AttendanceRecord {
	return &model.AttendanceRecord{ID: id, SessionID: 1, StudentID: studentID, Status: status}
}

func TestPlanReconciliation(t *testing.T) {
	tests := []struct {
		name     string
		enrolled []int64
		records  []*model.AttendanceRecord
		want     ReconcilePlan
	}{
		{
			name:     "empty course",
			enrolled: nil,
			records:  nil,
			want:     ReconcilePlan{},
		},
		{
			name:     "present pending missing",
			enrolled: []int64{30, 10, 20},
			records: []*model.AttendanceRecord{
				record(1, 10, model.AttendanceStatusPresent),
				record(2, 20, model.AttendanceStatusPending),
			},
			want: ReconcilePlan{Create: []int64{30}, Resolve: []int64{2}},
		},
		{
			name:     "resolved statuses untouched",
			enrolled: []int64{1, 2, 3, 4},
			records: []*model.AttendanceRecord{
				record(11, 1, model.AttendanceStatusPresent),
				record(12, 2, model.AttendanceStatusLate),
				record(13, 3, model.AttendanceStatusExcused),
				record(14, 4, model.AttendanceStatusAbsent),
			},
			want: ReconcilePlan{},
		},
		{
			name:     "records of unenrolled students ignored",
			enrolled: []int64{1},
			records: []*model.AttendanceRecord{
				record(11, 1, model.AttendanceStatusPresent),
				record(12, 99, model.AttendanceStatusPending),
			},
			want: ReconcilePlan{},
		},
		{
			name:     "duplicate enrollment ids",
			enrolled: []int64{5, 5, 4},
			records:  nil,
			want:     ReconcilePlan{Create: []int64{4, 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanReconciliation(tt.enrolled, tt.records)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, PlanReconciliation(tt.enrolled, tt.records), "same input, same plan")
		})
	}
}

func TestReconciler_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, model.AttendanceMethodDirect)

	reconciler := NewReconciler(f.store.Courses(), f.store.Attendance())

	first, err := reconciler.Apply(ctx, session, f.instructor.ID)
	require.NoError(t, err)
	assert.Len(t, first.Created, len(f.students))

	second, err := reconciler.Apply(ctx, session, f.instructor.ID)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Empty(t, second.Resolved)

	records, err := f.store.Attendance().GetBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, records, len(f.students))
}
