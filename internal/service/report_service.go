package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_bot/internal/model"
)

// Standing is a student's attendance totals for a course, derived on every read.
// Lates are converted to absences here only, never in the ledger, so an excused or
// appealed record stops counting as soon as it changes.
type Standing struct {
	CourseID          int64 `json:"course_id"`
	StudentID         int64 `json:"student_id"`
	Present           int   `json:"present"`
	Late              int   `json:"late"`
	Absent            int   `json:"absent"`
	Excused           int   `json:"excused"`
	Pending           int   `json:"pending"`
	EffectiveAbsences int   `json:"effective_absences"`
	MaxAbsent         int   `json:"max_absent"`
	LateToAbsent      int   `json:"late_to_absent"`
	Failing           bool  `json:"failing"`
}

// ComputeStanding applies the policy to a student's records.
func ComputeStanding(policy *model.AttendancePolicy, studentID int64, records []*model.AttendanceRecord) Standing {
	st := Standing{
		CourseID:     policy.CourseID,
		StudentID:    studentID,
		MaxAbsent:    policy.MaxAbsent,
		LateToAbsent: policy.LateToAbsent,
	}

	for _, rec := range records {
		if rec.StudentID != studentID {
			continue
		}
		switch rec.Status {
		case model.AttendanceStatusPresent:
			st.Present++
		case model.AttendanceStatusLate:
			st.Late++
		case model.AttendanceStatusAbsent:
			st.Absent++
		case model.AttendanceStatusExcused:
			st.Excused++
		case model.AttendanceStatusPending:
			st.Pending++
		}
	}

	lateToAbsent := policy.LateToAbsent
	if lateToAbsent < 1 {
		lateToAbsent = model.DefaultLateToAbsent
	}

	st.EffectiveAbsences = st.Absent + st.Late/lateToAbsent
	st.Failing = st.EffectiveAbsences > policy.MaxAbsent
	return st
}

// ReportService считает итоги посещаемости по политике курса
type ReportService struct {
	policies       *PolicyService
	courseRepo     CourseStore
	attendanceRepo AttendanceStore
	guard          courseGuard
}

func NewReportService(policies *PolicyService, courseRepo CourseStore, attendanceRepo AttendanceStore) *ReportService {
	return &ReportService{
		policies:       policies,
		courseRepo:     courseRepo,
		attendanceRepo: attendanceRepo,
		guard:          courseGuard{courses: courseRepo},
	}
}

// Standing итог одного студента; доступен самому студенту и управляющим курсом
func (s *ReportService) Standing(ctx context.Context, actor *model.Principal, courseID, studentID int64) (*Standing, error) {
	if _, err := s.guard.requireSelfOrManager(ctx, actor, courseID, studentID); err != nil {
		return nil, err
	}

	enrolled, err := s.courseRepo.IsEnrolled(ctx, courseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return nil, fmt.Errorf("student %d course %d: %w", studentID, courseID, model.ErrNotEnrolled)
	}

	policy, err := s.policies.GetPolicy(ctx, courseID)
	if err != nil {
		return nil, err
	}

	records, err := s.attendanceRepo.GetByCourseAndStudent(ctx, courseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student records: %w", err)
	}

	st := ComputeStanding(policy, studentID, records)
	return &st, nil
}

// CourseStanding итоги всех записанных студентов курса
func (s *ReportService) CourseStanding(ctx context.Context, actor *model.Principal, courseID int64) ([]Standing, error) {
	if _, err := s.guard.requireManager(ctx, actor, courseID); err != nil {
		return nil, err
	}

	policy, err := s.policies.GetPolicy(ctx, courseID)
	if err != nil {
		return nil, err
	}

	students, err := s.courseRepo.ListEnrollments(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}

	records, err := s.attendanceRepo.GetByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get course records: %w", err)
	}

	byStudent := make(map[int64][]*model.AttendanceRecord, len(students))
	for _, rec := range records {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}

	standings := make([]Standing, 0, len(students))
	for _, studentID := range students {
		standings = append(standings, ComputeStanding(policy, studentID, byStudent[studentID]))
	}

	return standings, nil
}
