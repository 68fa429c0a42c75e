package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/repository/memory"
	"github.com/Freeeeeet/attendance_bot/internal/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	pdfHeader = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
)

// fixture wires every service on top of one memory store:
// admin, instructor (owns course), outsider instructor, three enrolled students and one stranger
type fixture struct {
	store *memory.Store

	users       *UserService
	courses     *CourseService
	policies    *PolicyService
	sessions    *SessionService
	attendance  *AttendanceService
	reports     *ReportService
	excuses     *ExcuseService
	appeals     *AppealService
	attachments AttachmentPolicy

	admin      *model.User
	instructor *model.User
	outsider   *model.User
	students   []*model.User
	stranger   *model.User

	course   *model.Course
	clock    time.Time
	filesDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	ctx := context.Background()

	filesDir := t.TempDir()
	files, err := storage.NewLocalStore(filesDir, "/files", logger)
	require.NoError(t, err)

	f := &fixture{
		filesDir:    filesDir,
		store:       store,
		attachments: DefaultAttachmentPolicy(),
		clock:       time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC),
	}
	store.SetClock(func() time.Time { return f.clock })

	effects := NewEffectRunner(store.Notifications(), store.Audit(), logger)
	reconciler := NewReconciler(store.Courses(), store.Attendance())

	f.users = NewUserService(store.Users(), []int64{1000}, logger)
	f.courses = NewCourseService(store.Courses(), store.Users(), logger)
	f.policies = NewPolicyService(store.Policies(), store.Courses(), effects, logger)
	f.sessions = NewSessionService(store, store.Sessions(), store.Courses(), reconciler, effects, logger)
	f.attendance = NewAttendanceService(store.Sessions(), store.Courses(), store.Attendance(), effects, DefaultLateAfter, logger)
	f.attendance.now = func() time.Time { return f.clock }
	f.reports = NewReportService(f.policies, store.Courses(), store.Attendance())
	f.excuses = NewExcuseService(store, store.Excuses(), store.Sessions(), store.Courses(), store.Attendance(), files, f.attachments, effects, logger)
	f.appeals = NewAppealService(store, store.Appeals(), store.Attendance(), store.Sessions(), store.Courses(), effects, logger)

	f.admin, err = f.users.RegisterUser(ctx, 1000, "admin", "Ada", "Admin")
	require.NoError(t, err)

	f.instructor = f.register(t, 2000, "Ivan", model.RoleInstructor)
	f.outsider = f.register(t, 2001, "Olga", model.RoleInstructor)
	for i := range 3 {
		f.students = append(f.students, f.register(t, int64(3000+i), "Student", model.RoleStudent))
	}
	f.stranger = f.register(t, 4000, "Stranger", model.RoleStudent)

	f.course, err = f.courses.CreateCourse(ctx, f.admin.Principal(), "CS101", "Intro to CS", f.instructor.ID)
	require.NoError(t, err)
	for _, st := range f.students {
		require.NoError(t, f.courses.Enroll(ctx, f.instructor.Principal(), f.course.ID, st.ID))
	}

	return f
}

func (f *fixture) register(t *testing.T, telegramID int64, name string, role model.Role) *model.User {
	t.Helper()
	ctx := context.Background()

	user, err := f.users.RegisterUser(ctx, telegramID, "", name, "")
	require.NoError(t, err)

	if role != user.Role {
		user, err = f.users.SetRole(ctx, f.admin.Principal(), user.ID, role)
		require.NoError(t, err)
	}
	return user
}

// newSession creates a session starting at 09:00 on the fixture date
func (f *fixture) newSession(t *testing.T, method model.AttendanceMethod) *model.ClassSession {
	t.Helper()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	session, err := f.sessions.CreateSession(context.Background(), f.instructor.Principal(), CreateSessionInput{
		CourseID: f.course.ID,
		StartAt:  start,
		EndAt:    start.Add(90 * time.Minute),
		Room:     "A-101",
		Method:   method,
	})
	require.NoError(t, err)
	return session
}

func (f *fixture) openSession(t *testing.T, method model.AttendanceMethod) *model.ClassSession {
	t.Helper()

	session := f.newSession(t, method)
	opened, err := f.sessions.Open(context.Background(), f.instructor.Principal(), session.ID)
	require.NoError(t, err)
	return opened
}

func (f *fixture) statusOf(t *testing.T, sessionID, studentID int64) model.AttendanceStatus {
	t.Helper()

	rec, err := f.store.Attendance().GetBySessionAndStudent(context.Background(), sessionID, studentID)
	require.NoError(t, err)
	if rec == nil {
		return ""
	}
	return rec.Status
}
