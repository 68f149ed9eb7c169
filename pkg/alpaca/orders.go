package alpaca

import (
	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
	"github.com/vignesh-goutham/artemis-capture/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// OrderQuery filters a trade lookup
type OrderQuery struct {
	Symbol string
	Status string
	Limit  int
}

// LookupTrades returns orders for a symbol, newest first, with filled orders
// marked to the latest quote.
func (b *Broker) LookupTrades(q OrderQuery) ([]types.TradeRecord, error) {
	status := q.Status
	if status == "" {
		status = "all"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	orders, err := b.trading.GetOrders(alpaca.GetOrdersRequest{
		Status:    status,
		Limit:     limit,
		Direction: "desc",
		Symbols:   []string{q.Symbol},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting orders for %s", q.Symbol)
	}

	records := make([]types.TradeRecord, 0, len(orders))
	for _, order := range orders {
		records = append(records, toTradeRecord(order))
	}
	b.markToMarket(records)
	return records, nil
}

// LookupTrade returns a single order by id
func (b *Broker) LookupTrade(orderID string) (*types.TradeRecord, error) {
	order, err := b.trading.GetOrder(orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting order %s", orderID)
	}
	records := []types.TradeRecord{toTradeRecord(*order)}
	b.markToMarket(records)
	return &records[0], nil
}

// markToMarket fills in current price and unrealized P/L on filled records.
// A quote failure leaves the records unpriced rather than failing the lookup.
func (b *Broker) markToMarket(records []types.TradeRecord) {
	var symbols []string
	seen := make(map[string]bool)
	for _, r := range records {
		if r.FilledAvgPrice == nil || r.FilledQty.IsZero() || seen[r.Symbol] {
			continue
		}
		seen[r.Symbol] = true
		symbols = append(symbols, r.Symbol)
	}
	if len(symbols) == 0 {
		return
	}

	prices, err := b.GetCurrentPrices(symbols)
	if err != nil {
		logger.Warnw("Skipping mark to market", logger.FieldError, err)
		return
	}

	for i := range records {
		r := &records[i]
		price, ok := prices[r.Symbol]
		if !ok || r.FilledAvgPrice == nil || r.FilledQty.IsZero() {
			continue
		}
		diff := price.Sub(*r.FilledAvgPrice)
		if r.Side == string(alpaca.Sell) {
			diff = diff.Neg()
		}
		pl := diff.Mul(r.FilledQty)
		cost := r.FilledAvgPrice.Mul(r.FilledQty)

		current := price
		r.CurrentPrice = &current
		r.UnrealizedPL = &pl
		if !cost.IsZero() {
			pct := pl.Div(cost).Mul(hundred).Round(2)
			r.UnrealizedPct = &pct
		}
	}
}

func toTradeRecord(o alpaca.Order) types.TradeRecord {
	r := types.TradeRecord{
		OrderID:        o.ID,
		Symbol:         o.Symbol,
		Side:           string(o.Side),
		Type:           string(o.Type),
		Status:         o.Status,
		FilledQty:      o.FilledQty,
		FilledAvgPrice: o.FilledAvgPrice,
		LimitPrice:     o.LimitPrice,
		SubmittedAt:    o.SubmittedAt,
		FilledAt:       o.FilledAt,
	}
	if o.Qty != nil {
		r.Qty = *o.Qty
	}
	return r
}

// IsNotFound reports whether err is a broker 404
func IsNotFound(err error) bool {
	var apiErr *alpaca.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
