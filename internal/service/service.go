// Package service реализует сценарии витрины поверх корзины, расчёта цен и заказов.
package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/catalog"
	"github.com/mmeshcher/storefront/internal/metrics"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/order"
	"github.com/mmeshcher/storefront/internal/pricing"
	"github.com/mmeshcher/storefront/internal/validation"
)

// FeaturedCount задаёт число товаров в подборке на главной странице.
const FeaturedCount = 4

// CatalogSource загружает каталог целиком.
type CatalogSource interface {
	Fetch(ctx context.Context) (*catalog.Catalog, time.Duration, error)
}

// CheckoutRequest содержит данные формы оформления заказа.
type CheckoutRequest struct {
	Customer     model.Customer
	Shipping     model.Shipping
	Method       string
	Card         string
	DiscountCode string
}

// Config содержит параметры сервиса.
type Config struct {
	StrictCardCheck bool
	RefreshInterval time.Duration
}

// Service содержит бизнес-логику витрины.
type Service struct {
	carts   *cart.Store
	orders  *order.Service
	pricing *pricing.Engine
	logger  *zap.Logger
	cfg     Config

	catalog       atomic.Pointer[catalog.Catalog]
	catalogSource CatalogSource
}

// NewService создаёт сервис витрины. catalogSource может быть nil, тогда используется только initial.
func NewService(
	carts *cart.Store,
	orders *order.Service,
	engine *pricing.Engine,
	initial *catalog.Catalog,
	catalogSource CatalogSource,
	logger *zap.Logger,
	cfg Config,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}

	s := &Service{
		carts:         carts,
		orders:        orders,
		pricing:       engine,
		logger:        logger,
		cfg:           cfg,
		catalogSource: catalogSource,
	}
	s.setCatalog(initial)

	carts.Subscribe(func(c model.Cart) {
		metrics.CartItems.Set(float64(c.Count()))
	})

	return s
}

func (s *Service) setCatalog(c *catalog.Catalog) {
	s.catalog.Store(c)
	metrics.CatalogProducts.Set(float64(c.Len()))
}

// Catalog возвращает текущий снимок каталога.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog.Load()
}

// Products возвращает товары каталога в исходном порядке.
func (s *Service) Products() []model.Product {
	return s.Catalog().Products()
}

// Featured возвращает подборку товаров с наибольшим рейтингом.
func (s *Service) Featured() []model.Product {
	return s.Catalog().Featured(FeaturedCount)
}

// Product возвращает товар по идентификатору.
func (s *Service) Product(id string) (model.Product, error) {
	p, ok := s.Catalog().Find(id)
	if !ok {
		return model.Product{}, model.ErrNotFound
	}
	return p, nil
}

// Cart возвращает текущую корзину.
func (s *Service) Cart(ctx context.Context) model.Cart {
	return s.carts.Get(ctx)
}

// AddToCart добавляет товар из каталога в корзину.
func (s *Service) AddToCart(ctx context.Context, productID string, quantity int) (model.Cart, error) {
	if _, ok := s.Catalog().Find(productID); !ok {
		return nil, model.ErrNotFound
	}
	c, err := s.carts.AddItem(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}
	metrics.CartMutationsTotal.WithLabelValues("add").Inc()
	return c, nil
}

// UpdateCartQuantity задаёт количество позиции; неположительное количество удаляет её.
func (s *Service) UpdateCartQuantity(ctx context.Context, productID string, quantity int) (model.Cart, error) {
	c, err := s.carts.UpdateQuantity(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}
	metrics.CartMutationsTotal.WithLabelValues("update").Inc()
	return c, nil
}

// RemoveFromCart удаляет позицию из корзины.
func (s *Service) RemoveFromCart(ctx context.Context, productID string) (model.Cart, error) {
	c, err := s.carts.RemoveItem(ctx, productID)
	if err != nil {
		return nil, err
	}
	metrics.CartMutationsTotal.WithLabelValues("remove").Inc()
	return c, nil
}

// ClearCart очищает корзину.
func (s *Service) ClearCart(ctx context.Context) error {
	if err := s.carts.Clear(ctx); err != nil {
		return err
	}
	metrics.CartMutationsTotal.WithLabelValues("clear").Inc()
	return nil
}

// Totals рассчитывает итоги текущей корзины с необязательным кодом скидки.
func (s *Service) Totals(ctx context.Context, discountCode string) model.OrderTotals {
	return s.pricing.CalcTotals(s.carts.Get(ctx), s.Catalog(), discountCode)
}

// ValidateDiscount возвращает каноническое имя кода и долю скидки.
// Пустой или неизвестный код даёт ValidationError для показа покупателю.
func (s *Service) ValidateDiscount(code string) (string, decimal.Decimal, error) {
	if strings.TrimSpace(code) == "" {
		return "", decimal.Zero, &model.ValidationError{Field: "code", Message: "is required"}
	}
	canonical, fraction, ok := s.pricing.Lookup(code)
	if !ok {
		return "", decimal.Zero, &model.ValidationError{Field: "code", Message: "invalid discount code"}
	}
	return canonical, fraction, nil
}

// Checkout оформляет заказ из текущей корзины и очищает корзину после успешного создания заказа.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*model.Order, error) {
	c := s.carts.Get(ctx)
	if len(c) == 0 {
		metrics.CheckoutRejectedTotal.WithLabelValues("cart").Inc()
		return nil, model.ErrEmptyCart
	}

	if err := validation.Checkout(req.Customer, req.Shipping, req.Method, req.Card, s.cfg.StrictCardCheck); err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			metrics.CheckoutRejectedTotal.WithLabelValues(vErr.Field).Inc()
		}
		return nil, err
	}

	totals := s.pricing.CalcTotals(c, s.Catalog(), req.DiscountCode)

	o, err := s.orders.CreateOrder(ctx, c, totals, order.CheckoutInput{
		Customer: req.Customer,
		Shipping: req.Shipping,
		Method:   req.Method,
		Card:     req.Card,
	})
	if err != nil {
		return nil, err
	}
	metrics.OrdersCreatedTotal.Inc()

	// Заказ уже сохранён; ошибка очистки корзины не отменяет его.
	if err := s.carts.Clear(ctx); err != nil {
		s.logger.Error("clear cart after checkout", zap.Error(err), zap.String("order", o.OrderID))
	}

	return o, nil
}

// LastOrder возвращает последний заказ, если он совпадает с ожидаемым идентификатором.
func (s *Service) LastOrder(ctx context.Context, expectedOrderID string) (*model.Order, error) {
	return s.orders.GetLastOrder(ctx, expectedOrderID)
}

// LookupOrder ищет заказ по номеру и email.
func (s *Service) LookupOrder(ctx context.Context, orderID, email string) (*model.OrderIndexEntry, error) {
	return s.orders.LookupOrder(ctx, orderID, email)
}

// RecentOrders возвращает последние заказы для страницы поиска.
func (s *Service) RecentOrders(ctx context.Context) []model.OrderIndexEntry {
	return s.orders.RecentOrders(ctx, order.RecentLimit)
}

// StartCatalogUpdates запускает фоновое обновление каталога из внешнего источника.
func (s *Service) StartCatalogUpdates(ctx context.Context) {
	if s.catalogSource == nil {
		return
	}

	go func() {
		s.refreshCatalog(ctx)

		ticker := time.NewTicker(s.cfg.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.refreshCatalog(ctx)
			}
		}
	}()
}

func (s *Service) refreshCatalog(ctx context.Context) {
	retryAfter, err := s.fetchCatalog(ctx)
	if err == nil || retryAfter <= 0 {
		return
	}

	// Источник попросил подождать: одна повторная попытка до следующего тика.
	timer := time.NewTimer(retryAfter)
	select {
	case <-ctx.Done():
		timer.Stop()
		return
	case <-timer.C:
	}
	_, _ = s.fetchCatalog(ctx)
}

func (s *Service) fetchCatalog(ctx context.Context) (time.Duration, error) {
	c, retryAfter, err := s.catalogSource.Fetch(ctx)
	if err != nil {
		metrics.CatalogRefreshTotal.WithLabelValues("error").Inc()
		s.logger.Warn("catalog refresh failed, keeping current snapshot", zap.Error(err))
		return retryAfter, err
	}

	s.setCatalog(c)
	metrics.CatalogRefreshTotal.WithLabelValues("ok").Inc()
	s.logger.Info("catalog refreshed", zap.Int("products", c.Len()))
	return 0, nil
}
