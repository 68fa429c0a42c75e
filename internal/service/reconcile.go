package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/Freeeeeet/attendance_bot/internal/model"
)

// ReconcilePlan is what closing a session has to write.
type ReconcilePlan struct {
	Create  []int64 // enrolled students without a record, become ABSENT
	Resolve []int64 // record IDs still PENDING, become ABSENT
}

func (p ReconcilePlan) IsEmpty() bool {
	return len(p.Create) == 0 && len(p.Resolve) == 0
}

// PlanReconciliation computes the sweep for one session. Records with a resolved status
// are never touched; records of students no longer enrolled are ignored. The output is sorted
// so the same inputs always give the same plan.
func PlanReconciliation(enrolled []int64, records []*model.AttendanceRecord) ReconcilePlan {
	byStudent := make(map[int64]*model.AttendanceRecord, len(records))
	for _, rec := range records {
		byStudent[rec.StudentID] = rec
	}

	var plan ReconcilePlan
	seen := make(map[int64]struct{}, len(enrolled))
	for _, studentID := range enrolled {
		if _, dup := seen[studentID]; dup {
			continue
		}
		seen[studentID] = struct{}{}

		rec, ok := byStudent[studentID]
		switch {
		case !ok:
			plan.Create = append(plan.Create, studentID)
		case rec.Status == model.AttendanceStatusPending:
			plan.Resolve = append(plan.Resolve, rec.ID)
		}
	}

	slices.Sort(plan.Create)
	slices.Sort(plan.Resolve)
	return plan
}

// ReconcileResult lists the ledger rows written by a sweep.
type ReconcileResult struct {
	SessionID int64
	Created   []*model.AttendanceRecord
	Resolved  []*model.AttendanceRecord
}

// Reconciler fills unmarked students with ABSENT when a session closes
type Reconciler struct {
	courseRepo     CourseStore
	attendanceRepo AttendanceStore
}

func NewReconciler(courseRepo CourseStore, attendanceRepo AttendanceStore) *Reconciler {
	return &Reconciler{
		courseRepo:     courseRepo,
		attendanceRepo: attendanceRepo,
	}
}

// Apply выполняет сверку в транзакции вызывающего (ctx)
func (r *Reconciler) Apply(ctx context.Context, session *model.ClassSession, actorID int64) (*ReconcileResult, error) {
	enrolled, err := r.courseRepo.ListEnrollments(ctx, session.CourseID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}

	records, err := r.attendanceRepo.GetBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("get session records: %w", err)
	}

	plan := PlanReconciliation(enrolled, records)
	result := &ReconcileResult{SessionID: session.ID}
	if plan.IsEmpty() {
		return result, nil
	}

	result.Created, err = r.attendanceRepo.CreateMany(ctx, session.ID, plan.Create, model.AttendanceStatusAbsent, actorID)
	if err != nil {
		return nil, fmt.Errorf("create absent records: %w", err)
	}

	result.Resolved, err = r.attendanceRepo.ResolvePending(ctx, plan.Resolve, model.AttendanceStatusAbsent, actorID)
	if err != nil {
		return nil, fmt.Errorf("resolve pending records: %w", err)
	}

	return result, nil
}
