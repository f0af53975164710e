// Package validation содержит функции валидации входных данных.
package validation

import "strings"

// Допустимые длины номера заказа: базовая и расширенная при коллизиях.
const (
	OrderNumberLength         = 8
	ExtendedOrderNumberLength = 12
)

// IsValidOrderNumber проверяет, что номер заказа состоит из заглавных букв и цифр
// и имеет одну из допустимых длин.
func IsValidOrderNumber(number string) bool {
	if len(number) != OrderNumberLength && len(number) != ExtendedOrderNumberLength {
		return false
	}

	for i := 0; i < len(number); i++ {
		ch := number[i]
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return false
		}
	}

	return true
}

// NormalizeVoucherCode приводит код ваучера к каноническому виду: без пробелов
// по краям, в верхнем регистре. Пустая строка означает отсутствие кода.
func NormalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
