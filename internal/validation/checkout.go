package validation

import (
	"regexp"
	"strings"

	"github.com/mmeshcher/storefront/internal/model"
)

// PaymentMethodCard обозначает оплату банковской картой.
const PaymentMethodCard = "card"

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	zipRe   = regexp.MustCompile(`^\d{5}$`)
)

// IsValidEmail проверяет форму адреса электронной почты.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(strings.TrimSpace(email))
}

// IsValidZip проверяет пятизначный почтовый индекс.
func IsValidZip(zip string) bool {
	return zipRe.MatchString(strings.TrimSpace(zip))
}

// Checkout проверяет данные покупателя перед созданием заказа и возвращает первую найденную ошибку.
// При strictCard номер карты для способа оплаты "card" проверяется по алгоритму Луна.
func Checkout(customer model.Customer, shipping model.Shipping, method, card string, strictCard bool) error {
	required := []struct {
		field string
		value string
	}{
		{"name", customer.Name},
		{"email", customer.Email},
		{"address", shipping.Address},
		{"city", shipping.City},
		{"state", shipping.State},
		{"zip", shipping.Zip},
		{"method", method},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &model.ValidationError{Field: r.field, Message: "is required"}
		}
	}

	if !IsValidEmail(customer.Email) {
		return &model.ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	if !IsValidZip(shipping.Zip) {
		return &model.ValidationError{Field: "zip", Message: "must be a 5-digit ZIP code"}
	}
	if strictCard && strings.EqualFold(strings.TrimSpace(method), PaymentMethodCard) && !IsValidCardNumber(card) {
		return &model.ValidationError{Field: "card", Message: "card number is invalid"}
	}
	return nil
}
