package catalog

import "github.com/prometheus/client_golang/prometheus"

type ResolverMetrics struct {
	References *prometheus.CounterVec
}

func NewResolverMetrics(reg *prometheus.Registry) *ResolverMetrics {
	m := &ResolverMetrics{
		References: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_references_total",
				Help: "Catalog references by resolution outcome",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(m.References)
	return m
}
