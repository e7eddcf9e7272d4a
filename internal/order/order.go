// Package order создаёт заказы, хранит последний заказ и ограниченный индекс для поиска.
package order

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/validation"
)

const (
	// IndexCapacity ограничивает число записей в индексе заказов.
	IndexCapacity = 25
	// RecentLimit задаёт число заказов, показываемых на странице поиска.
	RecentLimit = 8

	idPrefix      = "PS-"
	maxIDAttempts = 5
)

// Storage описывает контракт постоянного хранилища, используемый сервисом заказов.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// IDGenerator возвращает новый идентификатор заказа.
type IDGenerator func() (string, error)

// CheckoutInput содержит данные, отправленные покупателем при оформлении.
type CheckoutInput struct {
	Customer model.Customer
	Shipping model.Shipping
	Method   string
	// Из номера карты сохраняются только последние четыре символа.
	Card string
}

// Service владеет записями заказа и индекса заказов.
type Service struct {
	storage Storage
	logger  *zap.Logger
	now     func() time.Time
	newID   IDGenerator

	mu sync.Mutex
}

// Option настраивает Service.
type Option func(*Service)

// WithClock задаёт источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator задаёт генератор идентификаторов заказа.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) { s.newID = g }
}

// NewService создаёт сервис заказов.
func NewService(storage Storage, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		storage: storage,
		logger:  logger,
		now:     time.Now,
		newID:   NewOrderID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOrderID возвращает идентификатор вида PS-XXXXXX из шести шестнадцатеричных символов.
func NewOrderID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate order id: %w", err)
	}
	return idPrefix + strings.ToUpper(hex.EncodeToString(u[:3])), nil
}

// CreateOrder записывает заказ как последний и добавляет его в начало индекса.
// Корзину не очищает: это делает вызывающая сторона после успешного создания.
func (s *Service) CreateOrder(ctx context.Context, c model.Cart, totals model.OrderTotals, in CheckoutInput) (*model.Order, error) {
	if len(c) == 0 {
		return nil, model.ErrEmptyCart
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, prevIndex := s.readIndex(ctx)

	id, err := s.uniqueID(index)
	if err != nil {
		return nil, err
	}

	o := &model.Order{
		OrderID:   id,
		CreatedAt: s.now().UTC(),
		Customer: model.Customer{
			Name:  strings.TrimSpace(in.Customer.Name),
			Email: strings.TrimSpace(in.Customer.Email),
		},
		Shipping: model.Shipping{
			Address: strings.TrimSpace(in.Shipping.Address),
			City:    strings.TrimSpace(in.Shipping.City),
			State:   strings.TrimSpace(in.Shipping.State),
			Zip:     strings.TrimSpace(in.Shipping.Zip),
		},
		Payment: model.Payment{
			Method: strings.TrimSpace(in.Method),
			Last4:  MaskCard(in.Card),
		},
		Totals: totals,
		Status: model.OrderStatusProcessing,
	}

	orderData, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}

	entry := model.OrderIndexEntry{
		OrderID:   o.OrderID,
		Email:     o.Customer.Email,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
	}
	index = append([]model.OrderIndexEntry{entry}, index...)
	if len(index) > IndexCapacity {
		index = index[:IndexCapacity]
	}

	indexData, err := json.Marshal(index)
	if err != nil {
		return nil, fmt.Errorf("encode order index: %w", err)
	}

	// Индекс пишется первым и откатывается, если не удалось записать заказ.
	if err := s.storage.Set(ctx, repository.KeyOrderIndex, string(indexData)); err != nil {
		return nil, fmt.Errorf("save order index: %w", err)
	}
	if err := s.storage.Set(ctx, repository.KeyLastOrder, string(orderData)); err != nil {
		if restoreErr := s.storage.Set(ctx, repository.KeyOrderIndex, prevIndex); restoreErr != nil {
			s.logger.Warn("restore order index failed", zap.Error(restoreErr), zap.String("order", o.OrderID))
		}
		return nil, fmt.Errorf("save last order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order", o.OrderID),
		zap.Int("items", len(c)),
		zap.String("total", o.Totals.Total.StringFixed(2)),
	)

	return o, nil
}

// uniqueID генерирует идентификатор, которого ещё нет в индексе.
func (s *Service) uniqueID(index []model.OrderIndexEntry) (string, error) {
	var id string
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		var err error
		id, err = s.newID()
		if err != nil {
			return "", err
		}
		if !containsID(index, id) {
			return id, nil
		}
		s.logger.Warn("order id collision, regenerating", zap.String("order", id))
	}
	return "", fmt.Errorf("generate unique order id: %d attempts collided", maxIDAttempts)
}

func containsID(index []model.OrderIndexEntry, id string) bool {
	for _, e := range index {
		if strings.EqualFold(e.OrderID, id) {
			return true
		}
	}
	return false
}

// MaskCard возвращает последние четыре символа номера карты или "0000", если символов меньше четырёх.
func MaskCard(card string) string {
	r := []rune(strings.TrimSpace(card))
	if len(r) < 4 {
		return "0000"
	}
	return string(r[len(r)-4:])
}

// LookupOrder ищет запись индекса по номеру заказа и email без учёта регистра.
// Возвращает самую свежую запись, если совпадений несколько.
func (s *Service) LookupOrder(ctx context.Context, orderID, email string) (*model.OrderIndexEntry, error) {
	orderID = strings.TrimSpace(orderID)
	email = strings.TrimSpace(email)
	if orderID == "" {
		return nil, &model.ValidationError{Field: "orderId", Message: "is required"}
	}
	if email == "" {
		return nil, &model.ValidationError{Field: "email", Message: "is required"}
	}
	if !validation.IsValidEmail(email) {
		return nil, &model.ValidationError{Field: "email", Message: "must be a valid email address"}
	}

	for _, e := range s.loadIndex(ctx) {
		if strings.EqualFold(e.OrderID, orderID) && strings.EqualFold(e.Email, email) {
			found := e
			return &found, nil
		}
	}
	return nil, model.ErrNotFound
}

// GetLastOrder возвращает последний заказ. Если указан expectedOrderID, он должен совпадать
// с идентификатором последнего заказа, иначе возвращается ErrNotFound.
func (s *Service) GetLastOrder(ctx context.Context, expectedOrderID string) (*model.Order, error) {
	raw, ok, err := s.storage.Get(ctx, repository.KeyLastOrder)
	if err != nil {
		s.logger.Warn("read last order failed", zap.Error(err))
		return nil, model.ErrNotFound
	}
	if !ok {
		return nil, model.ErrNotFound
	}

	var o model.Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		s.logger.Warn("corrupt last order state", zap.Error(err))
		return nil, model.ErrNotFound
	}

	expectedOrderID = strings.TrimSpace(expectedOrderID)
	if expectedOrderID != "" && o.OrderID != expectedOrderID {
		return nil, model.ErrNotFound
	}
	return &o, nil
}

// RecentOrders возвращает до limit последних записей индекса, самые свежие первыми.
func (s *Service) RecentOrders(ctx context.Context, limit int) []model.OrderIndexEntry {
	index := s.loadIndex(ctx)
	if limit >= 0 && limit < len(index) {
		index = index[:limit]
	}
	return index
}

func (s *Service) loadIndex(ctx context.Context) []model.OrderIndexEntry {
	index, _ := s.readIndex(ctx)
	return index
}

// readIndex возвращает индекс и его сохранённое представление для отката.
// Отсутствующий или повреждённый индекс считается пустым.
func (s *Service) readIndex(ctx context.Context) ([]model.OrderIndexEntry, string) {
	const empty = "[]"

	raw, ok, err := s.storage.Get(ctx, repository.KeyOrderIndex)
	if err != nil {
		s.logger.Warn("read order index failed, using empty index", zap.Error(err))
		return []model.OrderIndexEntry{}, empty
	}
	if !ok {
		return []model.OrderIndexEntry{}, empty
	}

	var index []model.OrderIndexEntry
	if err := json.Unmarshal([]byte(raw), &index); err != nil {
		s.logger.Warn("corrupt order index state, using empty index", zap.Error(err))
		return []model.OrderIndexEntry{}, empty
	}
	if len(index) > IndexCapacity {
		index = index[:IndexCapacity]
	}
	return index, raw
}
