package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
)

// Константы валидации
const (
	MinProjectTitleLength       = 3
	MaxProjectTitleLength       = 200
	MinProjectDescriptionLength = 10
	MaxProjectDescriptionLength = 5000
	MinCoverLetterLength        = 10
	MaxCoverLetterLength        = 2000
	MinReasonLength             = 10
	MaxReasonLength             = 2000
	MinPasswordLength           = 8
	MaxBatchSize                = 100
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("%s должен быть не менее %d символов", fieldName, min))
	}
	if max > 0 && length > max {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("%s должен быть не более %d символов", fieldName, max))
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperror.New(apperror.ErrCodeValidation, "email обязателен")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return apperror.New(apperror.ErrCodeValidation, "некорректный формат email")
	}
	if len(parts[0]) == 0 || len(parts[0]) > 64 {
		return apperror.New(apperror.ErrCodeValidation, "локальная часть email должна быть от 1 до 64 символов")
	}
	if len(parts[1]) == 0 || len(parts[1]) > 255 || !strings.Contains(parts[1], ".") {
		return apperror.New(apperror.ErrCodeValidation, "некорректный домен email")
	}
	return nil
}

// ValidatePassword проверяет минимальные требования к паролю.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("пароль должен быть не менее %d символов", MinPasswordLength))
	}
	return nil
}

// ValidateReason проверяет обязательную причину для аудита (возвраты, споры,
// отклонение записей времени).
func ValidateReason(reason string) error {
	return ValidateLength("причина", strings.TrimSpace(reason), MinReasonLength, MaxReasonLength)
}

// ValidateBatch проверяет, что пакет идентификаторов не пуст и не
// превышает лимит.
func ValidateBatch(size int) error {
	if size == 0 {
		return apperror.New(apperror.ErrCodeValidation, "пакет идентификаторов пуст")
	}
	if size > MaxBatchSize {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("в пакете не может быть более %d записей", MaxBatchSize))
	}
	return nil
}

// ValidateRole проверяет роль при регистрации. Администраторы через
// публичную регистрацию не создаются — роль назначается вне API.
func ValidateRole(role string) error {
	switch role {
	case "client", "freelancer", "":
		return nil
	case "admin":
		return apperror.New(apperror.ErrCodeValidation, "роль admin недоступна при регистрации")
	}
	return apperror.New(apperror.ErrCodeValidation, "некорректная роль пользователя")
}
