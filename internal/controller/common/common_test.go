package common

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    CallbackAction
		wantErr bool
	}{
		{name: "excuse approve", data: "excuse:approve:12", want: CallbackAction{Kind: "excuse", Action: "approve", ID: 12}},
		{name: "session close", data: "session:close:3", want: CallbackAction{Kind: "session", Action: "close", ID: 3}},
		{name: "missing id", data: "excuse:approve", wantErr: true},
		{name: "non numeric id", data: "excuse:approve:x", wantErr: true},
		{name: "zero id", data: "excuse:approve:0", wantErr: true},
		{name: "empty kind", data: ":approve:1", wantErr: true},
		{name: "too many parts", data: "a:b:1:2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCallbackData(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallbackDataRoundTrip(t *testing.T) {
	got, err := ParseCallbackData(CallbackData(CallbackAppeal, ActionReject, 77))
	require.NoError(t, err)
	assert.Equal(t, CallbackAction{Kind: CallbackAppeal, Action: ActionReject, ID: 77}, got)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err      error
		contains string
	}{
		{fmt.Errorf("mark: %w", model.ErrSessionNotOpen), "не открыто"},
		{fmt.Errorf("mark: %w", model.ErrInvalidCode), "Неверный код"},
		{fmt.Errorf("decide: %w", model.ErrAlreadyDecided), "уже принято"},
		{fmt.Errorf("open: %w", model.ErrForbidden), "Недостаточно прав"},
		{model.NewValidationError(model.FieldError{Field: "reason", Error: "is required"}), "reason: is required"},
		{errors.New("boom"), "Произошла ошибка"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Contains(t, ErrorMessage(tt.err), tt.contains)
		})
	}
}

func TestFormatSession_HidesCode(t *testing.T) {
	code := "4821"
	s := &model.ClassSession{
		ID:             5,
		StartAt:        time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		EndAt:          time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		Method:         model.AttendanceMethodCode,
		AttendanceCode: &code,
		State:          model.SessionStateOpen,
	}

	assert.Contains(t, FormatSession(s, true), "4821")
	assert.NotContains(t, FormatSession(s, false), "4821")
	assert.Contains(t, FormatSession(s, false), "02.03.2026 09:00-10:30")
}

func TestSessionKeyboard(t *testing.T) {
	assert.Nil(t, SessionKeyboard(false, true, true, 1))

	scheduled := SessionKeyboard(false, false, true, 1)
	require.Len(t, scheduled.InlineKeyboard, 1)
	assert.Equal(t, "session:open:1", scheduled.InlineKeyboard[0][0].CallbackData)

	open := SessionKeyboard(true, false, true, 1)
	require.Len(t, open.InlineKeyboard, 2)
	assert.Equal(t, "session:code:1", open.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "session:close:1", open.InlineKeyboard[1][0].CallbackData)
}
