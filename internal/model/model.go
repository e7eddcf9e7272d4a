// Package model содержит доменные сущности витрины: товары, корзину, итоги и заказы.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound возвращается, если заказ не найден или ссылка на подтверждение устарела.
var (
	ErrNotFound = errors.New("not found")
	// ErrEmptyCart возвращается при попытке оформить заказ с пустой корзиной.
	ErrEmptyCart = &ValidationError{Field: "cart", Message: "cart is empty"}
)

// ValidationError описывает некорректные входные данные, которые ядро не исправляет само.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// Badge описывает маркетинговую отметку товара.
type Badge string

const (
	BadgeBestseller Badge = "bestseller"
	BadgeSale       Badge = "sale"
	BadgeNew        Badge = "new"
)

// Product описывает товар каталога. Значения неизменяемы после загрузки каталога.
type Product struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Price    decimal.Decimal  `json:"price"`
	OldPrice *decimal.Decimal `json:"oldPrice,omitempty"`
	Category string           `json:"category"`
	Short    string           `json:"short,omitempty"`
	Details  string           `json:"details,omitempty"`
	Image    string           `json:"image,omitempty"`
	Tags     []string         `json:"tags"`
	Rating   *float64         `json:"rating,omitempty"`
	Reviews  *int             `json:"reviews,omitempty"`
	Badge    Badge            `json:"badge,omitempty"`
}

// SavePercent возвращает округлённую скидку относительно старой цены в процентах.
func (p Product) SavePercent() int64 {
	if p.OldPrice == nil || !p.OldPrice.IsPositive() {
		return 0
	}
	one := decimal.NewFromInt(1)
	return one.Sub(p.Price.Div(*p.OldPrice)).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CartItem описывает позицию корзины. Позиция с количеством меньше единицы в корзине не хранится.
type CartItem struct {
	ProductID string `json:"id"`
	Quantity  int    `json:"qty"`
}

// Cart содержит упорядоченный список позиций, не более одной позиции на товар.
type Cart []CartItem

// Count возвращает суммарное количество единиц товара в корзине.
func (c Cart) Count() int {
	n := 0
	for _, it := range c {
		n += it.Quantity
	}
	return n
}

// Customer содержит контактные данные покупателя.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Shipping содержит адрес доставки.
type Shipping struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

// Payment хранит только способ оплаты и последние четыре символа карты.
type Payment struct {
	Method string `json:"method"`
	Last4  string `json:"last4"`
}

// LineItem описывает рассчитанную строку итогов.
type LineItem struct {
	ProductID  string          `json:"productId"`
	Name       string          `json:"name,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	LineAmount decimal.Decimal `json:"lineAmount"`
}

// OrderTotals содержит производную разбивку стоимости корзины.
type OrderTotals struct {
	LineItems      []LineItem      `json:"lineItems"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Total          decimal.Decimal `json:"total"`
	AppliedCode    string          `json:"appliedCode,omitempty"`
}

// Rounded возвращает копию итогов, в которой все суммы округлены до центов.
func (t OrderTotals) Rounded() OrderTotals {
	out := t
	out.LineItems = make([]LineItem, len(t.LineItems))
	for i, li := range t.LineItems {
		li.UnitPrice = li.UnitPrice.Round(2)
		li.LineAmount = li.LineAmount.Round(2)
		out.LineItems[i] = li
	}
	out.Subtotal = t.Subtotal.Round(2)
	out.DiscountAmount = t.DiscountAmount.Round(2)
	out.TaxAmount = t.TaxAmount.Round(2)
	out.Total = t.Total.Round(2)
	return out
}

// OrderStatus описывает статус обработки заказа.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
)

// Order описывает оформленный заказ. После создания не изменяется.
type Order struct {
	OrderID   string      `json:"orderId"`
	CreatedAt time.Time   `json:"createdAt"`
	Customer  Customer    `json:"customer"`
	Shipping  Shipping    `json:"shipping"`
	Payment   Payment     `json:"payment"`
	Totals    OrderTotals `json:"totals"`
	Status    OrderStatus `json:"status"`
}

// OrderIndexEntry содержит облегчённую проекцию заказа для самостоятельного поиска.
type OrderIndexEntry struct {
	OrderID   string      `json:"orderId"`
	Email     string      `json:"email"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}
