// Package pricing рассчитывает итоги корзины: сумму позиций, скидку по коду, налог и итог.
package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

// DefaultTaxRate задаёт ставку налога по умолчанию, 8.25%.
var DefaultTaxRate = decimal.RequireFromString("0.0825")

// DefaultCodes возвращает набор кодов скидок по умолчанию.
func DefaultCodes() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"SAVE20":    decimal.RequireFromString("0.20"),
		"WELCOME10": decimal.RequireFromString("0.10"),
		"SAVE15":    decimal.RequireFromString("0.15"),
	}
}

// ProductLookup находит товары для расчёта цен.
type ProductLookup interface {
	Find(id string) (model.Product, bool)
}

// Engine рассчитывает итоги корзины. Состояния не хранит.
type Engine struct {
	taxRate decimal.Decimal
	codes   map[string]decimal.Decimal
}

// NewEngine создаёт движок с заданной ставкой налога и кодами скидок.
// Коды нормализуются к верхнему регистру, доля скидки должна лежать в (0, 1).
func NewEngine(taxRate decimal.Decimal, codes map[string]decimal.Decimal) (*Engine, error) {
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must not be negative: %s", taxRate)
	}

	normalized := make(map[string]decimal.Decimal, len(codes))
	one := decimal.NewFromInt(1)
	for code, fraction := range codes {
		key := normalize(code)
		if key == "" {
			return nil, fmt.Errorf("discount code must not be empty")
		}
		if !fraction.IsPositive() || fraction.GreaterThanOrEqual(one) {
			return nil, fmt.Errorf("discount %s: fraction must be in (0, 1), got %s", key, fraction)
		}
		normalized[key] = fraction
	}

	return &Engine{taxRate: taxRate, codes: normalized}, nil
}

// Default возвращает движок со ставкой 8.25% и кодами по умолчанию.
func Default() *Engine {
	e, _ := NewEngine(DefaultTaxRate, DefaultCodes())
	return e
}

// TaxRate возвращает ставку налога.
func (e *Engine) TaxRate() decimal.Decimal {
	return e.taxRate
}

// Lookup возвращает каноническое имя кода и долю скидки.
func (e *Engine) Lookup(code string) (string, decimal.Decimal, bool) {
	key := normalize(code)
	if key == "" {
		return "", decimal.Zero, false
	}
	fraction, ok := e.codes[key]
	return key, fraction, ok
}

// IsValidCode сообщает, известен ли код скидки.
func (e *Engine) IsValidCode(code string) bool {
	_, _, ok := e.Lookup(code)
	return ok
}

// Codes возвращает известные коды в алфавитном порядке.
func (e *Engine) Codes() []string {
	out := make([]string, 0, len(e.codes))
	for code := range e.codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// CalcTotals рассчитывает итоги корзины. Товар, отсутствующий в каталоге, даёт нулевую сумму строки.
// Неизвестный код скидки не является ошибкой: скидка просто равна нулю.
// Суммы не округляются; округление выполняется только при отображении.
func (e *Engine) CalcTotals(c model.Cart, products ProductLookup, discountCode string) model.OrderTotals {
	totals := model.OrderTotals{
		LineItems: make([]model.LineItem, 0, len(c)),
		Subtotal:  decimal.Zero,
	}

	for _, it := range c {
		li := model.LineItem{
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			UnitPrice:  decimal.Zero,
			LineAmount: decimal.Zero,
		}
		if p, ok := products.Find(it.ProductID); ok {
			li.Name = p.Name
			li.UnitPrice = p.Price
			li.LineAmount = p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		}
		totals.LineItems = append(totals.LineItems, li)
		totals.Subtotal = totals.Subtotal.Add(li.LineAmount)
	}

	totals.DiscountAmount = decimal.Zero
	if code, fraction, ok := e.Lookup(discountCode); ok {
		totals.DiscountAmount = totals.Subtotal.Mul(fraction)
		totals.AppliedCode = code
	}

	taxable := totals.Subtotal.Sub(totals.DiscountAmount)
	totals.TaxAmount = taxable.Mul(e.taxRate)
	totals.Total = taxable.Add(totals.TaxAmount)

	return totals
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
