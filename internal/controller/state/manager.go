package state

import (
	"sync"

	"github.com/Freeeeeet/attendance_bot/internal/model"
)

// Manager управляет состояниями пользователей
type Manager struct {
	mu     sync.RWMutex
	states map[int64]*UserData // telegramID -> UserData
}

// NewManager создаёт новый менеджер состояний
func NewManager() *Manager {
	return &Manager{
		states: make(map[int64]*UserData),
	}
}

// GetState получает текущее состояние пользователя
func (sm *Manager) GetState(telegramID int64) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		return userData.State
	}
	return StateNone
}

// StartExcuse начинает сбор вложений, заменяя незавершённый черновик
func (sm *Manager) StartExcuse(telegramID int64, draft *ExcuseDraft) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.states[telegramID] = &UserData{State: StateExcuseAttachments, Excuse: draft}
}

// AddAttachment добавляет файл к черновику. Возвращает число файлов или false, если черновика нет
// или лимит maxFiles уже достигнут.
func (sm *Manager) AddAttachment(telegramID int64, upload model.Upload, maxFiles int) (int, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	userData, exists := sm.states[telegramID]
	if !exists || userData.Excuse == nil {
		return 0, false
	}
	if len(userData.Excuse.Files) >= maxFiles {
		return len(userData.Excuse.Files), false
	}

	userData.Excuse.Files = append(userData.Excuse.Files, upload)
	return len(userData.Excuse.Files), true
}

// TakeExcuse забирает черновик и очищает состояние
func (sm *Manager) TakeExcuse(telegramID int64) (*ExcuseDraft, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	userData, exists := sm.states[telegramID]
	if !exists || userData.Excuse == nil {
		return nil, false
	}

	delete(sm.states, telegramID)
	return userData.Excuse, true
}

// ClearState очищает состояние и данные пользователя
func (sm *Manager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, telegramID)
}
