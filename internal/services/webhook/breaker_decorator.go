package webhook

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/NAJJJB/subscription-tracker/internal/models"
)

const defaultBreakerIdleTTL = 24 * time.Hour

type deliverer interface {
	Deliver(ctx context.Context, endpoint string, msg models.Message) error
}

type BreakerConfig struct {
	TimeInterval  time.Duration
	TimeTimeOut   time.Duration
	RepeatNumber  uint32
	// IdleTTL drops the breaker of an endpoint nothing has delivered to for
	// this long, e.g. a webhook its owner replaced.
	IdleTTL       time.Duration
	OnStateChange func(name string, from, to gobreaker.State)
}

type breakerEntry struct {
	cb       *gobreaker.CircuitBreaker
	lastUsed time.Time
}

// BreakerClient keeps one circuit breaker per endpoint, so a dead webhook
// fails fast without affecting deliveries to other users.
type BreakerClient struct {
	cfg     BreakerConfig
	wrapped deliverer
	now     func() time.Time

	mu        sync.Mutex
	breakers  map[string]*breakerEntry
	lastSweep time.Time
}

func NewBreakerClient(cfg BreakerConfig, wrapped deliverer) *BreakerClient {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultBreakerIdleTTL
	}
	return &BreakerClient{
		cfg:      cfg,
		wrapped:  wrapped,
		now:      time.Now,
		breakers: make(map[string]*breakerEntry),
	}
}

func (b *BreakerClient) Deliver(ctx context.Context, endpoint string, msg models.Message) error {
	cb := b.breaker(endpoint)
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, b.wrapped.Deliver(ctx, endpoint, msg)
	})
	if err != nil {
		return fmt.Errorf("%s unavailable: %w", cb.Name(), err)
	}
	return nil
}

func (b *BreakerClient) breaker(endpoint string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.sweep(now)

	if e, ok := b.breakers[endpoint]; ok {
		e.lastUsed = now
		return e.cb
	}

	repeat := b.cfg.RepeatNumber
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:          breakerName(endpoint),
		MaxRequests:   1,
		Interval:      b.cfg.TimeInterval,
		Timeout:       b.cfg.TimeTimeOut,
		OnStateChange: b.cfg.OnStateChange,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= repeat
		},
	})
	b.breakers[endpoint] = &breakerEntry{cb: cb, lastUsed: now}
	return cb
}

// sweep runs at most once per IdleTTL. Callers hold mu.
func (b *BreakerClient) sweep(now time.Time) {
	if b.lastSweep.IsZero() {
		b.lastSweep = now
		return
	}
	if now.Sub(b.lastSweep) < b.cfg.IdleTTL {
		return
	}
	b.lastSweep = now
	for endpoint, e := range b.breakers {
		if now.Sub(e.lastUsed) >= b.cfg.IdleTTL {
			delete(b.breakers, endpoint)
		}
	}
}

// breakerName identifies a breaker by host only; webhook paths carry secrets.
func breakerName(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "webhook"
	}
	return "webhook " + u.Host
}
