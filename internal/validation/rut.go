// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
)

// minRUTLength задаёт минимальную длину нормализованного RUT вместе с контрольным символом.
const minRUTLength = 8

var rutSeparators = strings.NewReplacer(".", "", "-", "")

// NormalizeRUT приводит RUT к каноническому виду: верхний регистр, без точек и дефиса.
func NormalizeRUT(raw string) string {
	return rutSeparators.Replace(strings.ToUpper(raw))
}

// IsValidRUT проверяет корректность чилийского RUT по алгоритму модуль 11.
func IsValidRUT(raw string) bool {
	rut := NormalizeRUT(raw)
	if len(rut) < minRUTLength {
		return false
	}

	body, check := rut[:len(rut)-1], rut[len(rut)-1]

	expected, ok := CheckDigit(body)
	if !ok {
		return false
	}

	return check == expected
}

// CheckDigit вычисляет контрольный символ для числовой части RUT.
// Возвращает false, если body пуст или содержит не только цифры.
func CheckDigit(body string) (byte, bool) {
	if body == "" {
		return 0, false
	}

	sum := 0
	multiplier := 2

	for i := len(body) - 1; i >= 0; i-- {
		ch := body[i]
		if ch < '0' || ch > '9' {
			return 0, false
		}
		sum += int(ch-'0') * multiplier
		if multiplier < 7 {
			multiplier++
		} else {
			multiplier = 2
		}
	}

	switch remainder := 11 - sum%11; remainder {
	case 11:
		return '0', true
	case 10:
		return 'K', true
	default:
		return byte('0' + remainder), true
	}
}

// FormatRUT возвращает RUT в отображаемом виде 12.345.678-5.
// Для невалидного RUT возвращается false.
func FormatRUT(raw string) (string, bool) {
	if !IsValidRUT(raw) {
		return "", false
	}

	rut := NormalizeRUT(raw)
	body, check := rut[:len(rut)-1], rut[len(rut)-1:]

	var b strings.Builder
	for i := range len(body) {
		if i > 0 && (len(body)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteByte(body[i])
	}
	b.WriteByte('-')
	b.WriteString(check)

	return b.String(), true
}
