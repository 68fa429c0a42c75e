package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_bot/internal/model"
	"go.uber.org/zap"
)

type UserService struct {
	userRepo UserStore
	admins   map[int64]struct{} // telegram ID -> регистрируется как ADMIN
	logger   *zap.Logger
}

func NewUserService(userRepo UserStore, adminTelegramIDs []int64, logger *zap.Logger) *UserService {
	admins := make(map[int64]struct{}, len(adminTelegramIDs))
	for _, id := range adminTelegramIDs {
		admins[id] = struct{}{}
	}

	return &UserService{
		userRepo: userRepo,
		admins:   admins,
		logger:   logger,
	}
}

// RegisterUser регистрирует или обновляет пользователя
func (s *UserService) RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*model.User, error) {
	// Проверяем существует ли пользователь
	existingUser, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	_, isAdmin := s.admins[telegramID]

	// Если пользователь уже существует, обновляем данные
	if existingUser != nil {
		existingUser.Username = username
		existingUser.FirstName = firstName
		existingUser.LastName = lastName
		if isAdmin {
			existingUser.Role = model.RoleAdmin
		}

		if err := s.userRepo.Update(ctx, existingUser); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}

		return existingUser, nil
	}

	// Создаём нового пользователя, по умолчанию студент
	user := &model.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		Role:       model.RoleStudent,
	}
	if isAdmin {
		user.Role = model.RoleAdmin
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", telegramID),
		zap.String("role", string(user.Role)),
	)

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.userRepo.GetByTelegramID(ctx, telegramID)
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetByIDs получает пользователей по списку ID
func (s *UserService) GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	return s.userRepo.GetByIDs(ctx, ids)
}

// SetRole меняет роль пользователя (только администратор)
func (s *UserService) SetRole(ctx context.Context, actor *model.Principal, userID int64, role model.Role) (*model.User, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("set role: %w", model.ErrForbidden)
	}
	if !role.IsValid() {
		return nil, model.NewValidationError(model.FieldError{Field: "role", Error: "unknown role " + string(role)})
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, model.ErrNotFound)
	}

	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("User role changed",
		zap.Int64("user_id", user.ID),
		zap.Int64("actor_id", actor.UserID),
		zap.String("role", string(role)),
	)

	return user, nil
}
