package pricing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/mmeshcher/storefront/internal/model"
)

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatUSD форматирует сумму в долларах с округлением до центов, например "$1,234.50".
// Сумма не проходит через float64: центы берутся из десятичного представления.
func FormatUSD(d decimal.Decimal) string {
	r := d.Round(2)
	sign := ""
	if r.IsNegative() {
		sign = "-"
		r = r.Neg()
	}

	whole, cents, _ := strings.Cut(r.StringFixed(2), ".")
	return sign + "$" + groupThousands(whole) + "." + cents
}

// groupThousands расставляет разделители разрядов в целой части суммы.
func groupThousands(whole string) string {
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		return usPrinter.Sprint(number.Decimal(n))
	}

	var b strings.Builder
	head := len(whole) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(whole[:head])
	for i := head; i < len(whole); i += 3 {
		b.WriteByte(',')
		b.WriteString(whole[i : i+3])
	}
	return b.String()
}

// Display содержит итоги, подготовленные к показу.
type Display struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// Present округляет итоги и возвращает их строковое представление.
func Present(t model.OrderTotals) Display {
	return Display{
		Subtotal: FormatUSD(t.Subtotal),
		Discount: FormatUSD(t.DiscountAmount),
		Tax:      FormatUSD(t.TaxAmount),
		Total:    FormatUSD(t.Total),
	}
}
