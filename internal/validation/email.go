package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// EmailPattern определяет допустимый формат email
// Упрощенная проверка: local@domain.tld, без пробелов
var EmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MaxEmailLen максимальная длина email (RFC 5321)
const MaxEmailLen = 254

// MaxFullNameLen максимальная длина отображаемого имени
const MaxFullNameLen = 100

// ValidateEmail проверяет, что email соответствует требованиям
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if len(email) > MaxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLen)
	}

	if !EmailPattern.MatchString(email) {
		return fmt.Errorf("email must be a valid address")
	}

	return nil
}

// ValidateFullName проверяет отображаемое имя пользователя
// Не может состоять из одних пробелов
func ValidateFullName(fullName string) error {
	if strings.TrimSpace(fullName) == "" {
		return fmt.Errorf("full name cannot be empty")
	}

	if len(fullName) > MaxFullNameLen {
		return fmt.Errorf("full name must not exceed %d characters", MaxFullNameLen)
	}

	return nil
}
