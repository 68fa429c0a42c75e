package common

import (
	"errors"
	"strings"

	"github.com/Freeeeeet/attendance_bot/internal/model"
)

// Ошибки уровня бота, до вызова сервисов
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrNoMessage     = errors.New("no message in callback")
	ErrInvalidFormat = errors.New("invalid callback format")
)

// GenericErrorMessage ответ на ошибку, которую пользователь исправить не может
const GenericErrorMessage = "❌ Произошла ошибка"

// ErrorMessage возвращает пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return validationMessage(verr)
	case errors.Is(err, ErrUserNotFound), errors.Is(err, model.ErrUnauthorized):
		return "❌ Пользователь не найден. Используйте /start"
	case errors.Is(err, ErrNoMessage):
		return "❌ Ошибка обработки сообщения"
	case errors.Is(err, ErrInvalidFormat):
		return "❌ Неверный формат данных"
	case errors.Is(err, model.ErrForbidden):
		return "⛔ Недостаточно прав для этого действия"
	case errors.Is(err, model.ErrNotFound):
		return "❌ Объект не найден"
	case errors.Is(err, model.ErrInvalidTransition):
		return "❌ Недопустимое изменение состояния занятия"
	case errors.Is(err, model.ErrSessionNotOpen):
		return "⏳ Занятие сейчас не открыто для отметки"
	case errors.Is(err, model.ErrWrongMethod):
		return "❌ Для этого занятия код не используется"
	case errors.Is(err, model.ErrInvalidCode):
		return "❌ Неверный код посещаемости"
	case errors.Is(err, model.ErrNotEnrolled):
		return "❌ Вы не записаны на этот курс"
	case errors.Is(err, model.ErrDuplicateRecord):
		return "ℹ️ Отметка уже существует"
	case errors.Is(err, model.ErrDuplicateActiveRequest):
		return "ℹ️ У вас уже есть активная заявка"
	case errors.Is(err, model.ErrAlreadyDecided):
		return "ℹ️ Решение по заявке уже принято"
	case errors.Is(err, model.ErrUnsupportedFileType):
		return "❌ Неподдерживаемый тип файла. Допустимы PDF, JPEG и PNG"
	case errors.Is(err, model.ErrFileTooLarge):
		return "❌ Файл слишком большой"
	default:
		return GenericErrorMessage
	}
}

func validationMessage(verr *model.ValidationError) string {
	if len(verr.Fields) == 0 {
		return "❌ Некорректные данные"
	}

	var sb strings.Builder
	sb.WriteString("❌ Некорректные данные:\n")
	for _, f := range verr.Fields {
		sb.WriteString("• ")
		sb.WriteString(f.Field)
		sb.WriteString(": ")
		sb.WriteString(f.Error)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
