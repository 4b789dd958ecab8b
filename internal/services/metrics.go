package services

import "github.com/prometheus/client_golang/prometheus"

var (
	assessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delay_assessments_total",
			Help: "Delay risk assessments by risk tier.",
		},
		[]string{"tier"},
	)
	issuanceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compensation_evaluations_total",
			Help: "Compensation evaluations by outcome.",
		},
		[]string{"outcome"},
	)
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compensation_transitions_total",
			Help: "Compensation status transitions by target status and result.",
		},
		[]string{"to", "result"},
	)
)

func init() {
	prometheus.MustRegister(assessmentsTotal, issuanceTotal, transitionsTotal)
}
