package providers

import (
	"fmt"
	"time"

	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/sony/gobreaker/v2"
)

// Factory dispatches payment methods to registered provider adapters, each
// wrapped with its own circuit breaker.
type Factory struct {
	providers       map[string]Initiator
	circuitBreakers map[string]*gobreaker.CircuitBreaker[*InitiateResult]
	stateHook       func(name string, from, to gobreaker.State)
}

func NewFactory(providersList ...Initiator) *Factory {
	f := &Factory{
		providers:       make(map[string]Initiator),
		circuitBreakers: make(map[string]*gobreaker.CircuitBreaker[*InitiateResult]),
	}
	for _, p := range providersList {
		f.Register(p)
	}
	return f
}

func (f *Factory) Register(p Initiator) {
	f.providers[p.Name()] = p
	f.circuitBreakers[p.Name()] = gobreaker.NewCircuitBreaker[*InitiateResult](gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if f.stateHook != nil {
				f.stateHook(name, from, to)
			}
		},
	})
}

// SetStateChangeHook installs an observer for breaker transitions.
func (f *Factory) SetStateChangeHook(fn func(name string, from, to gobreaker.State)) {
	f.stateHook = fn
}

func (f *Factory) Get(method string) (Initiator, *gobreaker.CircuitBreaker[*InitiateResult], error) {
	p, ok := f.providers[method]
	if !ok {
		return nil, nil, fmt.Errorf("unknown payment method %q: %w", method, domainErrors.ErrProviderNotFound)
	}
	return p, f.circuitBreakers[method], nil
}
