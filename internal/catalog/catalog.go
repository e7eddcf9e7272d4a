// Package catalog содержит неизменяемый каталог товаров витрины и клиент удалённого каталога.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mmeshcher/storefront/internal/model"
)

//go:embed products.json
var defaultProducts []byte

// Catalog хранит упорядоченный набор товаров с уникальными идентификаторами.
// После создания не изменяется; обновление каталога заменяет снимок целиком.
type Catalog struct {
	products []model.Product
	byID     map[string]int
}

// New создаёт каталог из последовательности товаров.
func New(products []model.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]model.Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return nil, fmt.Errorf("product %q has empty id", p.Name)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("duplicate product id %q", id)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("product %q has negative price", id)
		}
		p.ID = id
		c.byID[id] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Parse разбирает каталог из JSON-массива товаров.
func Parse(data []byte) (*Catalog, error) {
	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(products)
}

// Default возвращает встроенный каталог.
func Default() *Catalog {
	c, err := Parse(defaultProducts)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Find возвращает товар по идентификатору.
func (c *Catalog) Find(id string) (model.Product, bool) {
	if c == nil {
		return model.Product{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return model.Product{}, false
	}
	return c.products[i], true
}

// Products возвращает копию списка товаров в исходном порядке.
func (c *Catalog) Products() []model.Product {
	if c == nil {
		return nil
	}
	out := make([]model.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len возвращает количество товаров.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// Featured возвращает n товаров с наибольшим рейтингом. При равном рейтинге сохраняется порядок каталога.
func (c *Catalog) Featured(n int) []model.Product {
	out := c.Products()
	sort.SliceStable(out, func(i, j int) bool {
		return rating(out[i]) > rating(out[j])
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

func rating(p model.Product) float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}
