// Package validation содержит проверки входных данных сервиса мастерской.
package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Error описывает ошибку валидации: незаполненные и некорректные поля.
type Error struct {
	Missing []string
	Invalid []string
}

// Error возвращает текст ошибки с перечислением проблемных полей.
func (e *Error) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid fields: %s", strings.Join(e.Invalid, ", ")))
	}
	if len(parts) == 0 {
		return "validation error"
	}
	return strings.Join(parts, "; ")
}

// Required проверяет, что все обязательные поля заполнены.
// Возвращает *Error с отсортированным списком пустых полей либо nil.
func Required(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &Error{Missing: missing}
}

// NormalizeCouponCode приводит код купона к каноническому виду:
// обрезает пробелы и переводит в верхний регистр.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidEmail выполняет минимальную проверку адреса электронной почты.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	if strings.Contains(domain, "@") || !strings.Contains(domain, ".") {
		return false
	}
	return true
}
