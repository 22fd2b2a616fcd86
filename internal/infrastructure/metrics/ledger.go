// Package metrics exposes Prometheus collectors for the inventory engine.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"backoffice/internal/core/entity"
)

// Ledger implements inventory.Metrics.
type Ledger struct {
	movements    *prometheus.CounterVec
	recalculated prometheus.Counter
	transactions *prometheus.CounterVec
	propagations *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

var (
	defaultOnce   sync.Once
	defaultLedger *Ledger
)

// NewLedger registers the ledger metrics against registerer. A nil registerer
// uses the default Prometheus registerer, registered once per process.
func NewLedger(registerer prometheus.Registerer) *Ledger {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultLedger = buildLedger(prometheus.DefaultRegisterer)
		})
		return defaultLedger
	}
	return buildLedger(registerer)
}

func buildLedger(registerer prometheus.Registerer) *Ledger {
	m := &Ledger{
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_stock_movements_total",
			Help: "Stock movements appended to the ledger, by movement type.",
		}, []string{"type"}),
		recalculated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_ledger_recalculated_total",
			Help: "Ledger rows whose running balance was rewritten by recalculation.",
		}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_account_transactions_total",
			Help: "Current account transactions appended, by transaction type.",
		}, []string{"type"}),
		propagations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_cost_propagations_total",
			Help: "Recipe cost propagation runs, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_ledger_operation_seconds",
			Help:    "Duration of inventory engine operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
	}
	registerer.MustRegister(m.movements, m.recalculated, m.transactions, m.propagations, m.duration)
	return m
}

func (m *Ledger) MovementRecorded(t entity.MovementType) {
	m.movements.WithLabelValues(string(t)).Inc()
}

func (m *Ledger) BalancesRecalculated(n int) {
	if n > 0 {
		m.recalculated.Add(float64(n))
	}
}

func (m *Ledger) AccountTransactionRecorded(t entity.AccountTransactionType) {
	m.transactions.WithLabelValues(string(t)).Inc()
}

// CostPropagated counts a propagation run as "updated", "unchanged" or "failure".
func (m *Ledger) CostPropagated(updatedRecipes int, err error) {
	outcome := "unchanged"
	switch {
	case err != nil:
		outcome = "failure"
	case updatedRecipes > 0:
		outcome = "updated"
	}
	m.propagations.WithLabelValues(outcome).Inc()
}

func (m *Ledger) ObserveOperation(op string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.duration.WithLabelValues(op, status).Observe(d.Seconds())
}
