// Package handler содержит HTTP-обработчики API витрины.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/pricing"
	"github.com/mmeshcher/storefront/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Products() []model.Product
	Featured() []model.Product
	Product(id string) (model.Product, error)

	Cart(ctx context.Context) model.Cart
	AddToCart(ctx context.Context, productID string, quantity int) (model.Cart, error)
	UpdateCartQuantity(ctx context.Context, productID string, quantity int) (model.Cart, error)
	RemoveFromCart(ctx context.Context, productID string) (model.Cart, error)
	ClearCart(ctx context.Context) error
	Totals(ctx context.Context, discountCode string) model.OrderTotals
	ValidateDiscount(code string) (string, decimal.Decimal, error)

	Checkout(ctx context.Context, req service.CheckoutRequest) (*model.Order, error)
	LastOrder(ctx context.Context, expectedOrderID string) (*model.Order, error)
	LookupOrder(ctx context.Context, orderID, email string) (*model.OrderIndexEntry, error)
	RecentOrders(ctx context.Context) []model.OrderIndexEntry
}

// Handler реализует HTTP-обработчики API витрины.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: s,
		logger:  logger,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

type errorResponse struct {
	Field string `json:"field,omitempty"`
	Error string `json:"error"`
}

func (h *Handler) writeValidationError(w http.ResponseWriter, status int, vErr *model.ValidationError) {
	h.writeJSON(w, status, errorResponse{Field: vErr.Field, Error: vErr.Message})
}

// GetProducts возвращает каталог в исходном порядке.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Products())
}

// GetFeatured возвращает подборку товаров для главной страницы.
func (h *Handler) GetFeatured(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Featured())
}

type productResponse struct {
	model.Product
	SavePercent int64 `json:"savePercent,omitempty"`
}

// GetProduct возвращает карточку товара.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Product(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, productResponse{Product: p, SavePercent: p.SavePercent()})
}

type cartResponse struct {
	Items model.Cart `json:"items"`
	Count int        `json:"count"`
}

func newCartResponse(c model.Cart) cartResponse {
	if c == nil {
		c = model.Cart{}
	}
	return cartResponse{Items: c, Count: c.Count()}
}

// GetCart возвращает содержимое корзины.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, newCartResponse(h.service.Cart(r.Context())))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

// AddCartItem добавляет товар в корзину. Без количества добавляется одна единица.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.ProductID) == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	c, err := h.service.AddToCart(r.Context(), req.ProductID, qty)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("add to cart error", zap.Error(err), zap.String("product", req.ProductID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, newCartResponse(c))
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

// UpdateCartItem задаёт количество позиции корзины.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	c, err := h.service.UpdateCartQuantity(r.Context(), id, *req.Quantity)
	if err != nil {
		h.logger.Error("update cart error", zap.Error(err), zap.String("product", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, newCartResponse(c))
}

// RemoveCartItem удаляет позицию из корзины.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.service.RemoveFromCart(r.Context(), id)
	if err != nil {
		h.logger.Error("remove from cart error", zap.Error(err), zap.String("product", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, newCartResponse(c))
}

// ClearCart очищает корзину.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCart(r.Context()); err != nil {
		h.logger.Error("clear cart error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type totalsResponse struct {
	model.OrderTotals
	Display pricing.Display `json:"display"`
}

// GetTotals возвращает итоги корзины, округлённые до центов.
func (h *Handler) GetTotals(w http.ResponseWriter, r *http.Request) {
	totals := h.service.Totals(r.Context(), r.URL.Query().Get("code"))
	h.writeJSON(w, http.StatusOK, totalsResponse{
		OrderTotals: totals.Rounded(),
		Display:     pricing.Present(totals),
	})
}

type discountRequest struct {
	Code string `json:"code"`
}

type discountResponse struct {
	Code     string          `json:"code"`
	Fraction decimal.Decimal `json:"fraction"`
}

// ValidateDiscount проверяет код скидки.
func (h *Handler) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Code) == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	code, fraction, err := h.service.ValidateDiscount(req.Code)
	if err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			h.writeValidationError(w, http.StatusUnprocessableEntity, vErr)
			return
		}
		h.logger.Error("validate discount error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, discountResponse{Code: code, Fraction: fraction})
}

type checkoutRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	Method       string `json:"method"`
	Card         string `json:"card"`
	DiscountCode string `json:"discountCode"`
}

type checkoutResponse struct {
	OrderID string `json:"orderId"`
}

// Checkout оформляет заказ из текущей корзины.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	o, err := h.service.Checkout(r.Context(), service.CheckoutRequest{
		Customer:     model.Customer{Name: req.Name, Email: req.Email},
		Shipping:     model.Shipping{Address: req.Address, City: req.City, State: req.State, Zip: req.Zip},
		Method:       req.Method,
		Card:         req.Card,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			h.writeValidationError(w, http.StatusUnprocessableEntity, vErr)
			return
		}
		h.logger.Error("checkout error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, checkoutResponse{OrderID: o.OrderID})
}

// GetLastOrder возвращает последний заказ для страницы подтверждения.
func (h *Handler) GetLastOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.LastOrder(r.Context(), r.URL.Query().Get("orderId"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get last order error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	o.Totals = o.Totals.Rounded()
	h.writeJSON(w, http.StatusOK, o)
}

type lookupRequest struct {
	OrderID string `json:"orderId"`
	Email   string `json:"email"`
}

// LookupOrder ищет заказ по номеру и email.
func (h *Handler) LookupOrder(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	entry, err := h.service.LookupOrder(r.Context(), req.OrderID, req.Email)
	if err != nil {
		var vErr *model.ValidationError
		switch {
		case errors.As(err, &vErr):
			h.writeValidationError(w, http.StatusBadRequest, vErr)
		case errors.Is(err, model.ErrNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("lookup order error", zap.Error(err), zap.String("order", req.OrderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, entry)
}

// GetRecentOrders возвращает последние оформленные заказы.
func (h *Handler) GetRecentOrders(w http.ResponseWriter, r *http.Request) {
	recent := h.service.RecentOrders(r.Context())
	if len(recent) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, recent)
}
