package callbacks

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/controller/common"
	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/repository/memory"
	"github.com/Freeeeeet/attendance_bot/internal/service"
	"github.com/Freeeeeet/attendance_bot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type callbackFixture struct {
	h          *Handler
	store      *memory.Store
	excuses    *service.ExcuseService
	instructor *model.User
	student    *model.User
	session    *model.ClassSession
}

func newCallbackFixture(t *testing.T) *callbackFixture {
	t.Helper()

	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	files, err := storage.NewLocalStore(t.TempDir(), "/files", logger)
	require.NoError(t, err)

	effects := service.NewEffectRunner(store.Notifications(), store.Audit(), logger)
	users := service.NewUserService(store.Users(), []int64{1000}, logger)
	courses := service.NewCourseService(store.Courses(), store.Users(), logger)
	sessions := service.NewSessionService(store, store.Sessions(), store.Courses(),
		service.NewReconciler(store.Courses(), store.Attendance()), effects, logger)
	excuses := service.NewExcuseService(store, store.Excuses(), store.Sessions(), store.Courses(),
		store.Attendance(), files, service.DefaultAttachmentPolicy(), effects, logger)
	appeals := service.NewAppealService(store, store.Appeals(), store.Attendance(), store.Sessions(),
		store.Courses(), effects, logger)

	admin, err := users.RegisterUser(ctx, 1000, "", "Ada", "")
	require.NoError(t, err)
	instructor, err := users.RegisterUser(ctx, 2000, "", "Ivan", "")
	require.NoError(t, err)
	instructor, err = users.SetRole(ctx, admin.Principal(), instructor.ID, model.RoleInstructor)
	require.NoError(t, err)
	student, err := users.RegisterUser(ctx, 3000, "", "Sam", "")
	require.NoError(t, err)

	course, err := courses.CreateCourse(ctx, admin.Principal(), "CS101", "Intro", instructor.ID)
	require.NoError(t, err)
	require.NoError(t, courses.Enroll(ctx, instructor.Principal(), course.ID, student.ID))

	start := time.Now().Add(time.Hour)
	session, err := sessions.CreateSession(ctx, instructor.Principal(), service.CreateSessionInput{
		CourseID: course.ID,
		StartAt:  start,
		EndAt:    start.Add(90 * time.Minute),
		Method:   model.AttendanceMethodCode,
	})
	require.NoError(t, err)

	return &callbackFixture{
		h:          NewHandler(users, sessions, excuses, appeals, logger),
		store:      store,
		excuses:    excuses,
		instructor: instructor,
		student:    student,
		session:    session,
	}
}

func TestProcess_SessionButtons(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()
	id := f.session.ID

	_, err := f.h.process(ctx, f.student.TelegramID, common.CallbackData(common.CallbackSession, common.ActionOpen, id))
	assert.ErrorIs(t, err, model.ErrForbidden)

	res, err := f.h.process(ctx, f.instructor.TelegramID, common.CallbackData(common.CallbackSession, common.ActionOpen, id))
	require.NoError(t, err)
	opened, err := f.store.Sessions().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, res.text, opened.Code())
	require.NotNil(t, res.markup)
	assert.Len(t, res.markup.InlineKeyboard, 2)

	res, err = f.h.process(ctx, f.instructor.TelegramID, common.CallbackData(common.CallbackSession, common.ActionCode, id))
	require.NoError(t, err)
	regenerated, err := f.store.Sessions().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, res.text, regenerated.Code())

	res, err = f.h.process(ctx, f.instructor.TelegramID, common.CallbackData(common.CallbackSession, common.ActionClose, id))
	require.NoError(t, err)
	assert.Contains(t, res.text, "Отмечено отсутствующими: 1")
	assert.Nil(t, res.markup)

	// Повторное нажатие на старую кнопку
	_, err = f.h.process(ctx, f.instructor.TelegramID, common.CallbackData(common.CallbackSession, common.ActionOpen, id))
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestProcess_ExcuseDecision(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	excuse, err := f.excuses.Submit(ctx, f.student.Principal(), service.ExcuseInput{
		SessionID:  f.session.ID,
		ReasonCode: model.ReasonCodeSick,
		Reason:     "flu",
	})
	require.NoError(t, err)

	data := common.CallbackData(common.CallbackExcuse, common.ActionApprove, excuse.ID)

	_, err = f.h.process(ctx, f.student.TelegramID, data)
	assert.ErrorIs(t, err, model.ErrForbidden)

	res, err := f.h.process(ctx, f.instructor.TelegramID, data)
	require.NoError(t, err)
	assert.Contains(t, res.toast, "Одобрена")
	assert.Nil(t, res.markup)

	_, err = f.h.process(ctx, f.instructor.TelegramID, common.CallbackData(common.CallbackExcuse, common.ActionReject, excuse.ID))
	assert.ErrorIs(t, err, model.ErrAlreadyDecided)
}

func TestProcess_BadInput(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	_, err := f.h.process(ctx, f.instructor.TelegramID, "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidFormat)

	_, err = f.h.process(ctx, f.instructor.TelegramID, "excuse:maybe:1")
	assert.ErrorIs(t, err, common.ErrInvalidFormat)

	_, err = f.h.process(ctx, f.instructor.TelegramID, "booking:approve:1")
	assert.ErrorIs(t, err, common.ErrInvalidFormat)

	_, err = f.h.process(ctx, 999999, "excuse:approve:1")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}
