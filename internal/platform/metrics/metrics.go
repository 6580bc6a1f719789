package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger process.
type Metrics struct {
	PartnersRegistered    prometheus.Counter
	PartnershipsCreated   prometheus.Counter
	PartnershipsCompleted prometheus.Counter
	PartnershipsCancelled prometheus.Counter
	EscrowHeld            prometheus.Gauge
	EventsPublished       prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		PartnersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "partnerd_partners_registered_total",
			Help: "Total number of partner registrations accepted",
		}),
		PartnershipsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "partnerd_partnerships_created_total",
			Help: "Total number of partnerships created",
		}),
		PartnershipsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "partnerd_partnerships_completed_total",
			Help: "Total number of partnerships completed",
		}),
		PartnershipsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "partnerd_partnerships_cancelled_total",
			Help: "Total number of partnerships cancelled",
		}),
		EscrowHeld: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "partnerd_escrow_held_units",
			Help: "Value currently held in escrow, in smallest units",
		}),
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "partnerd_events_published_total",
			Help: "Total number of ledger events published to the broker",
		}),
	}
}
