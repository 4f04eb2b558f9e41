package metrics

import "github.com/prometheus/client_golang/prometheus"

// InventoryMetrics counts stock mutations and their side effects.
type InventoryMetrics struct {
	mutations    *prometheus.CounterVec
	reservations *prometheus.CounterVec
	cache        *prometheus.CounterVec
	alerts       *prometheus.CounterVec
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_stock_mutations_total",
		Help: "Ledger rows written, by transaction type.",
	}, []string{"type"})
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_reservation_outcomes_total",
		Help: "Reservation lifecycle outcomes.",
	}, []string{"outcome"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_cache_lookups_total",
		Help: "Availability cache lookups by result.",
	}, []string{"result"})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_low_stock_alerts_total",
		Help: "Low-stock alerts by delivery result.",
	}, []string{"result"})
	reg.MustRegister(mutations, reservations, cache, alerts)
	return &InventoryMetrics{
		mutations:    mutations,
		reservations: reservations,
		cache:        cache,
		alerts:       alerts,
	}
}

// IncMutation counts one ledger row of the given type.
func (m *InventoryMetrics) IncMutation(txType string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(txType)).Inc()
}

// IncReservation counts a reservation outcome (created, fulfilled, cancelled, expired, rejected).
func (m *InventoryMetrics) IncReservation(outcome string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *InventoryMetrics) CacheHit() {
	m.incCache("hit")
}

func (m *InventoryMetrics) CacheMiss() {
	m.incCache("miss")
}

func (m *InventoryMetrics) CacheError() {
	m.incCache("error")
}

func (m *InventoryMetrics) incCache(result string) {
	if m == nil || m.cache == nil {
		return
	}
	m.cache.WithLabelValues(result).Inc()
}

// AlertSent counts a delivered low-stock alert.
func (m *InventoryMetrics) AlertSent() {
	m.incAlert("sent")
}

// AlertFailed counts a low-stock alert that could not be delivered.
func (m *InventoryMetrics) AlertFailed() {
	m.incAlert("failed")
}

func (m *InventoryMetrics) incAlert(result string) {
	if m == nil || m.alerts == nil {
		return
	}
	m.alerts.WithLabelValues(result).Inc()
}
