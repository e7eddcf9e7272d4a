// Package cart реализует хранилище корзины посетителя поверх постоянного хранилища ключ-значение.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
)

// MaxQuantity ограничивает количество одной позиции.
const MaxQuantity = 99

// Storage описывает контракт постоянного хранилища, используемый корзиной.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Listener получает корзину после каждого сохранённого изменения.
// Вызывается синхронно под блокировкой корзины и не должен обращаться к Store.
type Listener func(model.Cart)

// Store владеет сохранённым представлением корзины.
type Store struct {
	storage Storage
	logger  *zap.Logger

	mu        sync.Mutex
	listeners []Listener
}

// NewStore создаёт хранилище корзины.
func NewStore(storage Storage, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		storage: storage,
		logger:  logger,
	}
}

// Subscribe регистрирует обработчик изменений корзины.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Get возвращает текущую корзину. Отсутствующее или повреждённое значение даёт пустую корзину.
func (s *Store) Get(ctx context.Context) model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Count возвращает суммарное количество единиц товара.
func (s *Store) Count(ctx context.Context) int {
	return s.Get(ctx).Count()
}

// AddItem увеличивает количество товара или добавляет новую позицию в конец корзины.
func (s *Store) AddItem(ctx context.Context, productID string, quantity int) (model.Cart, error) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.load(ctx)
	found := false
	for i := range c {
		if c[i].ProductID == productID {
			c[i].Quantity = clamp(c[i].Quantity + quantity)
			found = true
			break
		}
	}
	if !found {
		c = append(c, model.CartItem{ProductID: productID, Quantity: clamp(quantity)})
	}

	return c, s.save(ctx, c)
}

// RemoveItem удаляет позицию товара. Отсутствие позиции не считается ошибкой.
func (s *Store) RemoveItem(ctx context.Context, productID string) (model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := without(s.load(ctx), productID)
	return c, s.save(ctx, c)
}

// UpdateQuantity устанавливает количество позиции. Количество меньше единицы удаляет позицию,
// отсутствующая позиция оставляет корзину без изменений.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) (model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.load(ctx)
	idx := -1
	for i := range c {
		if c[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return c, nil
	}

	if quantity <= 0 {
		c = without(c, productID)
	} else {
		c[idx].Quantity = clamp(quantity)
	}
	return c, s.save(ctx, c)
}

// Clear заменяет корзину пустой.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, model.Cart{})
}

func (s *Store) load(ctx context.Context) model.Cart {
	raw, ok, err := s.storage.Get(ctx, repository.KeyCart)
	if err != nil {
		s.logger.Warn("read cart failed, using empty cart", zap.Error(err))
		return model.Cart{}
	}
	if !ok {
		return model.Cart{}
	}

	var c model.Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		s.logger.Warn("corrupt cart state, using empty cart", zap.Error(err))
		return model.Cart{}
	}

	// Позиции с неположительным количеством и дубликаты в корзине не хранятся.
	out := make(model.Cart, 0, len(c))
	seen := make(map[string]int, len(c))
	for _, it := range c {
		if it.Quantity <= 0 || it.ProductID == "" {
			continue
		}
		if i, dup := seen[it.ProductID]; dup {
			out[i].Quantity = clamp(out[i].Quantity + it.Quantity)
			continue
		}
		seen[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}

func (s *Store) save(ctx context.Context, c model.Cart) error {
	if c == nil {
		c = model.Cart{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.storage.Set(ctx, repository.KeyCart, string(data)); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}

	for _, l := range s.listeners {
		l(c)
	}
	return nil
}

func without(c model.Cart, productID string) model.Cart {
	out := make(model.Cart, 0, len(c))
	for _, it := range c {
		if it.ProductID != productID {
			out = append(out, it)
		}
	}
	return out
}

func clamp(q int) int {
	if q > MaxQuantity {
		return MaxQuantity
	}
	if q < 1 {
		return 1
	}
	return q
}
