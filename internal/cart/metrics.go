package cart

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Adds *prometheus.CounterVec
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Adds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_add_total",
				Help: "Add-to-cart calls by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.Adds)
	return m
}

func (m *Metrics) observe(r Result) {
	result := "success"
	if !r.Success {
		result = "failure"
	}
	m.Adds.WithLabelValues(result).Inc()
}
