// Package validation содержит проверки данных, вводимых покупателем при оформлении заказа.
package validation

import "strings"

const (
	minCardDigits = 12
	maxCardDigits = 19
)

var cardSeparators = strings.NewReplacer(" ", "", "-", "")

// IsValidCardNumber проверяет номер карты по алгоритму Луна. Пробелы и дефисы игнорируются.
func IsValidCardNumber(number string) bool {
	digits := cardSeparators.Replace(number)
	if len(digits) < minCardDigits || len(digits) > maxCardDigits {
		return false
	}

	var sum int
	parity := len(digits) % 2
	for i, ch := range digits {
		if ch < '0' || ch > '9' {
			return false
		}
		d := int(ch - '0')
		// Удваивается каждая вторая цифра, считая от контрольной.
		if i%2 == parity {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}

	return sum%10 == 0
}
