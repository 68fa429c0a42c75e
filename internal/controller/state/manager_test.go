package state

import (
	"testing"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ExcuseDraft(t *testing.T) {
	sm := NewManager()
	const tg = int64(42)

	_, ok := sm.AddAttachment(tg, model.Upload{Filename: "a.png"}, 2)
	assert.False(t, ok, "no draft yet")

	sm.StartExcuse(tg, &ExcuseDraft{SessionID: 7, ReasonCode: "SICK", Reason: "flu"})
	assert.Equal(t, StateExcuseAttachments, sm.GetState(tg))

	n, ok := sm.AddAttachment(tg, model.Upload{Filename: "a.png", Data: []byte("12")}, 2)
	require.True(t, ok)
	assert.Equal(t, 1, n)
	_, ok = sm.AddAttachment(tg, model.Upload{Filename: "b.png", Data: []byte("345")}, 2)
	require.True(t, ok)
	n, ok = sm.AddAttachment(tg, model.Upload{Filename: "c.png"}, 2)
	assert.False(t, ok, "limit reached")
	assert.Equal(t, 2, n)

	draft, ok := sm.TakeExcuse(tg)
	require.True(t, ok)
	assert.Equal(t, int64(7), draft.SessionID)
	assert.Equal(t, int64(5), draft.Size())
	assert.Equal(t, StateNone, sm.GetState(tg))

	_, ok = sm.TakeExcuse(tg)
	assert.False(t, ok)
}

func TestManager_ClearState(t *testing.T) {
	sm := NewManager()
	sm.StartExcuse(1, &ExcuseDraft{})
	sm.ClearState(1)
	assert.Equal(t, StateNone, sm.GetState(1))
}
