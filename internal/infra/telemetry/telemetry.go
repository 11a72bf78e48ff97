package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lifeinventory/inventory-identity/internal/infra/config"
)

// Provider holds the business-level collectors the services report into.
// Request-level collectors live in the HTTP metrics middleware.
type Provider struct {
	loginCounter *prometheus.CounterVec
}

// Attach registers the business metrics against the default registerer.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	return NewProvider(prometheus.DefaultRegisterer)
}

// NewProvider registers the login counter, reusing an existing collector when
// one is already registered.
func NewProvider(reg prometheus.Registerer) (*Provider, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "logins_total",
		Help:      "Login attempts by provider and outcome",
	}, []string{"provider", "outcome"})

	if err := reg.Register(logins); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("register login counter: %w", err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("login collector has unexpected type %T", already.ExistingCollector)
		}
		logins = existing
	}

	return &Provider{loginCounter: logins}, nil
}

// CountLogin records a login attempt outcome.
func (p *Provider) CountLogin(provider, outcome string) {
	if p == nil || p.loginCounter == nil {
		return
	}
	p.loginCounter.WithLabelValues(provider, outcome).Inc()
}
