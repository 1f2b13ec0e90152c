package bridge

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Fee is a single exchange-reported fee line.
type Fee struct {
	Asset  string
	Amount float64
}

// SubmitRequest is the outbound shape of submit_order. Implementations live
// outside the core.
type SubmitRequest struct {
	ClientOrderID string
	Symbol        string
	Side          string
	OrderType     string
	Quantity      float64
	TimeInForce   string
	ReduceOnly    bool
}

// SubmitResponse is the exchange's reply to submit_order.
type SubmitResponse struct {
	ExchangeOrderID string
	FilledQty       float64
	AvgFillPrice    float64
	Fees            []Fee
}

// ExchangeAdapter is the outbound contract the bridge submits orders
// through. Implementations (REST/FIX/etc) live outside the core.
type ExchangeAdapter interface {
	SubmitOrder(ctx context.Context, req SubmitRequest) (SubmitResponse, error)
	FetchPosition(ctx context.Context, symbol string) (float64, error)
	Ping(ctx context.Context) error
	ServerTime(ctx context.Context) (time.Time, error)
}

// GuardedAdapter wraps an ExchangeAdapter with a circuit breaker and a
// token-bucket rate limiter, so a flaky or rate-limiting venue cannot
// cascade into the pipeline. Grounded on the teacher's gobreaker-based
// provider circuit breaker manager, generalized from market-data providers
// to order submission, and its token-bucket limiter generalized the same
// way.
type GuardedAdapter struct {
	inner   ExchangeAdapter
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewGuardedAdapter wraps inner with a breaker (named for the exchange) and
// a rate limiter allowing ratePerSecond sustained submissions with the
// given burst.
func NewGuardedAdapter(inner ExchangeAdapter, exchangeName string, ratePerSecond float64, burst int) *GuardedAdapter {
	settings := gobreaker.Settings{
		Name:        exchangeName,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &GuardedAdapter{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// SubmitOrder waits for rate-limiter permission then calls the inner
// adapter through the circuit breaker.
func (g *GuardedAdapter) SubmitOrder(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return SubmitResponse{}, err
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.SubmitOrder(ctx, req)
	})
	if err != nil {
		return SubmitResponse{}, err
	}
	return result.(SubmitResponse), nil
}

func (g *GuardedAdapter) FetchPosition(ctx context.Context, symbol string) (float64, error) {
	return g.inner.FetchPosition(ctx, symbol)
}

func (g *GuardedAdapter) Ping(ctx context.Context) error {
	return g.inner.Ping(ctx)
}

func (g *GuardedAdapter) ServerTime(ctx context.Context) (time.Time, error) {
	return g.inner.ServerTime(ctx)
}
