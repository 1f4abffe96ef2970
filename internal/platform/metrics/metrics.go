package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the application.
type Metrics struct {
	LoginsTotal          *prometheus.CounterVec
	ComplaintsCreated    prometheus.Counter
	StatusTransitions    *prometheus.CounterVec
	NotificationsCreated prometheus.Counter
	TransactionAborts    prometheus.Counter
}

var (
	instance *Metrics
	once     sync.Once
)

// New returns the process-wide metrics set, registering the instruments with
// the default registry on first call.
func New() *Metrics {
	once.Do(func() {
		instance = register()
	})
	return instance
}

func register() *Metrics {
	return &Metrics{
		LoginsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sayit_logins_total",
			Help: "Successful logins by actor kind",
		}, []string{"kind"}),
		ComplaintsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sayit_complaints_created_total",
			Help: "Total number of complaints filed",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sayit_complaint_transitions_total",
			Help: "Complaint status transitions by resulting status",
		}, []string{"to"}),
		NotificationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sayit_notifications_created_total",
			Help: "Total number of inbox notifications created",
		}),
		TransactionAborts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sayit_lifecycle_tx_aborts_total",
			Help: "Lifecycle three-way writes that rolled back",
		}),
	}
}

func (m *Metrics) ObserveLogin(kind string) {
	m.LoginsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveTransition(to string) {
	m.StatusTransitions.WithLabelValues(to).Inc()
}
