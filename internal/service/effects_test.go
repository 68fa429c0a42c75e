package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/Freeeeeet/attendance_bot/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type brokenSink struct{}

func (brokenSink) Notify(context.Context, []int64, model.NotificationMessage) error {
	return assert.AnError
}

func (brokenSink) Record(context.Context, model.AuditEntry) error {
	return assert.AnError
}

func TestEffects_SkipsEmptyRecipients(t *testing.T) {
	var e Effects
	e.Notify(nil, model.NotificationMessage{Type: model.NotificationSessionOpened})
	assert.Equal(t, 0, e.Len())

	e.Notify([]int64{1}, model.NotificationMessage{Type: model.NotificationSessionOpened})
	e.Audit(model.AuditEntry{Action: model.AuditSessionOpen})
	assert.Equal(t, 2, e.Len())
}

func TestEffectRunner_SwallowsSinkErrors(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	runner := NewEffectRunner(brokenSink{}, brokenSink{}, zap.New(core))

	effects := &Effects{}
	effects.Audit(model.AuditEntry{Action: model.AuditSessionClose, TargetType: model.TargetSession, TargetID: 3})
	effects.Notify([]int64{1, 2}, model.NotificationMessage{Type: model.NotificationSessionOpened})

	assert.NotPanics(t, func() { runner.Run(context.Background(), effects) })
	assert.NotPanics(t, func() { runner.Run(context.Background(), nil) })

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, 1, logs.FilterMessage("Failed to record audit entry").Len())
	assert.Equal(t, 1, logs.FilterMessage("Failed to enqueue notification").Len())
}

func TestEffectRunner_FailingNotifierDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	core, logs := observer.New(zapcore.ErrorLevel)
	runner := NewEffectRunner(brokenSink{}, f.store.Audit(), zap.New(core))
	f.sessions.effects = runner

	session := f.newSession(t, model.AttendanceMethodDirect)
	opened, err := f.sessions.Open(ctx, f.instructor.Principal(), session.ID)
	require.NoError(t, err)
	assert.True(t, opened.IsOpen())

	assert.Equal(t, 1, logs.FilterMessage("Failed to enqueue notification").Len())
	assert.Len(t, f.store.Audit().Actions(model.AuditSessionOpen), 1, "audit still written")
}

func TestEffectRunner_AuditsBeforeNotifications(t *testing.T) {
	store := memory.NewStore()
	runner := NewEffectRunner(store.Notifications(), store.Audit(), zap.NewNop())

	effects := &Effects{}
	effects.Notify([]int64{5}, model.NotificationMessage{Type: model.NotificationExcuseDecided, Title: "t"})
	effects.Audit(model.AuditEntry{Action: model.AuditExcuseDecide, TargetType: model.TargetExcuse, TargetID: 9})
	runner.Run(context.Background(), effects)

	entries := store.Audit().Entries()
	notes := store.Notifications().All()
	require.Len(t, entries, 1)
	require.Len(t, notes, 1)
	assert.Less(t, entries[0].ID, notes[0].ID)
}
