package bridge

import (
	"context"
	"time"
)

// PaperAdapter is a deterministic, no-network ExchangeAdapter that fills
// every order in full immediately at the price fillPrice returns for its
// symbol (zero when fillPrice is nil). It
// backs SHADOW/CANARY runs where no real exchange credentials are
// configured, and lets the bridge's full state machine run end to end in a
// self-contained deployment.
type PaperAdapter struct {
	fillPrice func(symbol string) float64
}

// NewPaperAdapter builds an adapter that fills using fillPrice(symbol) as
// the execution price for every order.
func NewPaperAdapter(fillPrice func(symbol string) float64) *PaperAdapter {
	return &PaperAdapter{fillPrice: fillPrice}
}

func (p *PaperAdapter) SubmitOrder(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	price := 0.0
	if p.fillPrice != nil {
		price = p.fillPrice(req.Symbol)
	}
	return SubmitResponse{
		ExchangeOrderID: "paper-" + req.ClientOrderID,
		FilledQty:       req.Quantity,
		AvgFillPrice:    price,
	}, nil
}

func (p *PaperAdapter) FetchPosition(ctx context.Context, symbol string) (float64, error) {
	return 0, nil
}

func (p *PaperAdapter) Ping(ctx context.Context) error { return nil }

func (p *PaperAdapter) ServerTime(ctx context.Context) (time.Time, error) {
	return time.Now(), nil
}
