package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.users.RegisterUser(ctx, 5000, "neo", "Thomas", "Anderson")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, user.Role)

	again, err := f.users.RegisterUser(ctx, 5000, "theone", "Neo", "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID, "registration is idempotent")
	assert.Equal(t, "theone", again.Username)

	byTelegram, err := f.users.GetByTelegramID(ctx, 5000)
	require.NoError(t, err)
	assert.Equal(t, "Neo", byTelegram.FirstName)

	assert.Equal(t, model.RoleAdmin, f.admin.Role, "configured telegram id becomes admin")
}

func TestSetRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.SetRole(ctx, f.instructor.Principal(), f.students[0].ID, model.RoleInstructor)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.users.SetRole(ctx, f.admin.Principal(), f.students[0].ID, "JANITOR")
	assert.ErrorIs(t, err, model.ErrValidationFailed)

	_, err = f.users.SetRole(ctx, f.admin.Principal(), 999999, model.RoleInstructor)
	assert.ErrorIs(t, err, model.ErrNotFound)

	promoted, err := f.users.SetRole(ctx, f.admin.Principal(), f.students[0].ID, model.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, model.RoleInstructor, promoted.Role)
}

func TestCourseService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.courses.CreateCourse(ctx, f.instructor.Principal(), "CS102", "Algorithms", f.instructor.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.courses.CreateCourse(ctx, f.admin.Principal(), "CS101", "Duplicate", f.instructor.ID)
	assert.ErrorIs(t, err, model.ErrDuplicateRecord)

	_, err = f.courses.CreateCourse(ctx, f.admin.Principal(), "CS103", "Bad", f.students[0].ID)
	assert.ErrorIs(t, err, model.ErrValidationFailed)

	_, err = f.courses.CreateCourse(ctx, f.admin.Principal(), "", "No code", f.instructor.ID)
	assert.ErrorIs(t, err, model.ErrValidationFailed)

	err = f.courses.Enroll(ctx, f.instructor.Principal(), f.course.ID, f.outsider.ID)
	assert.ErrorIs(t, err, model.ErrValidationFailed, "only students can be enrolled")

	err = f.courses.Enroll(ctx, f.outsider.Principal(), f.course.ID, f.stranger.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	require.NoError(t, f.courses.Enroll(ctx, f.instructor.Principal(), f.course.ID, f.stranger.ID))
	require.NoError(t, f.courses.Enroll(ctx, f.instructor.Principal(), f.course.ID, f.stranger.ID), "enrolling twice is a no-op")

	enrolled, err := f.courses.IsEnrolled(ctx, f.course.ID, f.stranger.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	ids, err := f.courses.ListEnrollments(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Len(t, ids, len(f.students)+1)

	require.NoError(t, f.courses.Unenroll(ctx, f.instructor.Principal(), f.course.ID, f.stranger.ID))
	err = f.courses.Unenroll(ctx, f.instructor.Principal(), f.course.ID, f.stranger.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
