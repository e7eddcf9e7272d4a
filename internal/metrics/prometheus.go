// Package metrics содержит prometheus-метрики витрины.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal считает HTTP-запросы по маршруту и коду ответа.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration измеряет длительность обработки HTTP-запросов.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// CartMutationsTotal считает изменения корзины по типу операции.
	CartMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Total number of cart mutations",
		},
		[]string{"op"},
	)

	// CartItems показывает текущее количество единиц товара в корзине.
	CartItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_cart_items",
			Help: "Number of units currently in the cart",
		},
	)

	// OrdersCreatedTotal считает оформленные заказы.
	OrdersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Total number of created orders",
		},
	)

	// CheckoutRejectedTotal считает отклонённые попытки оформления по полю.
	CheckoutRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_rejected_total",
			Help: "Total number of rejected checkout attempts",
		},
		[]string{"field"},
	)

	// CatalogRefreshTotal считает обновления каталога по результату.
	CatalogRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_catalog_refresh_total",
			Help: "Total number of catalog refresh attempts",
		},
		[]string{"result"},
	)

	// CatalogProducts показывает количество товаров в текущем снимке каталога.
	CatalogProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_catalog_products",
			Help: "Number of products in the active catalog snapshot",
		},
	)

	// CatalogBreakerState показывает состояние автомата удалённого каталога (0=closed, 1=open, 2=half-open).
	CatalogBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_catalog_breaker_state",
			Help: "Catalog circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
	)
)
