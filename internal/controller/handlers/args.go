package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/attendance_bot/internal/model"
)

// sessionTimeLayout формат времени начала занятия в командах
const sessionTimeLayout = "2006-01-02T15:04"

// parseCommand разбирает "/cmd@bot a b c" на имя команды и аргументы
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}

	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), fields[1:]
}

// usageError ошибка формата команды с подсказкой
type usageError struct {
	usage string
}

func (e *usageError) Error() string {
	return "usage: " + e.usage
}

func usage(u string) error {
	return &usageError{usage: u}
}

func argID(args []string, i int, name string) (int64, error) {
	if i >= len(args) {
		return 0, model.NewValidationError(model.FieldError{Field: name, Error: "is required"})
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError(model.FieldError{Field: name, Error: "must be a positive number"})
	}
	return id, nil
}

func argInt(args []string, i int, name string) (int, error) {
	if i >= len(args) {
		return 0, model.NewValidationError(model.FieldError{Field: name, Error: "is required"})
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, model.NewValidationError(model.FieldError{Field: name, Error: "must be a number"})
	}
	return n, nil
}

// restFrom склеивает аргументы начиная с i (свободный текст)
func restFrom(args []string, i int) string {
	if i >= len(args) {
		return ""
	}
	return strings.Join(args[i:], " ")
}

// parseDecision approve/reject и русские синонимы
func parseDecision(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "approve", "yes", "да", "одобрить":
		return true, nil
	case "reject", "no", "нет", "отклонить":
		return false, nil
	}
	return false, model.NewValidationError(model.FieldError{Field: "decision", Error: "must be approve or reject"})
}

func parseStatus(s string) model.AttendanceStatus {
	return model.AttendanceStatus(strings.ToUpper(s))
}

// parseStart принимает RFC3339 или 2006-01-02T15:04 в часовом поясе loc
func parseStart(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(sessionTimeLayout, s, loc)
	if err != nil {
		return time.Time{}, model.NewValidationError(model.FieldError{
			Field: "start_at",
			Error: fmt.Sprintf("expected %s", sessionTimeLayout),
		})
	}
	return t, nil
}
