// Package metrics exposes Prometheus collectors for authentication outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	ResultOK      = "ok"
	ResultMiss    = "miss"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Auth groups the coordinator's collectors. A nil *Auth records nothing.
type Auth struct {
	Register *prometheus.CounterVec
	Login    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewAuth creates the collectors and registers them on reg when reg is non-nil.
func NewAuth(reg prometheus.Registerer) *Auth {
	m := &Auth{
		Register: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "predicta",
			Subsystem: "auth",
			Name:      "register_total",
			Help:      "Registration attempts by result.",
		}, []string{"result"}),
		Login: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "predicta",
			Subsystem: "auth",
			Name:      "login_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "predicta",
			Subsystem: "auth",
			Name:      "op_duration_seconds",
			Help:      "Duration of coordinator operations.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.Register, m.Login, m.Duration)
	}
	return m
}

// ObserveRegister counts a registration outcome.
func (m *Auth) ObserveRegister(result string, started time.Time) {
	if m == nil {
		return
	}
	m.Register.WithLabelValues(result).Inc()
	m.Duration.WithLabelValues("register").Observe(time.Since(started).Seconds())
}

// ObserveLogin counts a login outcome.
func (m *Auth) ObserveLogin(result string, started time.Time) {
	if m == nil {
		return
	}
	m.Login.WithLabelValues(result).Inc()
	m.Duration.WithLabelValues("login").Observe(time.Since(started).Seconds())
}
