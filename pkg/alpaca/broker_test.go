package alpaca

import (
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrading struct {
	clock    *alpaca.Clock
	orders   []alpaca.Order
	err      error
	requests []alpaca.GetOrdersRequest
}

func (f *fakeTrading) GetClock() (*alpaca.Clock, error) {
	return f.clock, f.err
}

func (f *fakeTrading) GetOrders(req alpaca.GetOrdersRequest) ([]alpaca.Order, error) {
	f.requests = append(f.requests, req)
	return f.orders, f.err
}

func (f *fakeTrading) GetOrder(id string) (*alpaca.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, o := range f.orders {
		if o.ID == id {
			o := o
			return &o, nil
		}
	}
	return nil, errors.Newf("order %s not found", id)
}

type fakeQuotes struct {
	quotes map[string]marketdata.Quote
	err    error
}

func (f *fakeQuotes) GetLatestQuotes(symbols []string, _ marketdata.GetLatestQuoteRequest) (map[string]marketdata.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]marketdata.Quote)
	for _, s := range symbols {
		if q, ok := f.quotes[s]; ok {
			out[s] = q
		}
	}
	return out, nil
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestLookupTradesMarksFilledOrders(t *testing.T) {
	trading := &fakeTrading{orders: []alpaca.Order{
		{ID: "o-1", Symbol: "SPY", Side: alpaca.Buy, Type: alpaca.Limit, Status: "filled",
			Qty: dec("10"), FilledQty: decimal.RequireFromString("10"), FilledAvgPrice: dec("500")},
		{ID: "o-2", Symbol: "SPY", Side: alpaca.Buy, Type: alpaca.Limit, Status: "new",
			Qty: dec("5"), LimitPrice: dec("480")},
	}}
	quotes := &fakeQuotes{quotes: map[string]marketdata.Quote{"SPY": {AskPrice: 510, BidPrice: 509.9}}}
	broker := NewBroker(trading, quotes)

	records, err := broker.LookupTrades(OrderQuery{Symbol: "SPY"})
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Len(t, trading.requests, 1)
	req := trading.requests[0]
	assert.Equal(t, "all", req.Status)
	assert.Equal(t, 50, req.Limit)
	assert.Equal(t, []string{"SPY"}, req.Symbols)

	filled := records[0]
	require.NotNil(t, filled.UnrealizedPL)
	assert.True(t, filled.UnrealizedPL.Equal(decimal.NewFromInt(100)), filled.UnrealizedPL.String())
	assert.True(t, filled.UnrealizedPct.Equal(decimal.NewFromInt(2)), filled.UnrealizedPct.String())
	assert.True(t, filled.CurrentPrice.Equal(decimal.NewFromInt(510)))

	open := records[1]
	assert.Nil(t, open.UnrealizedPL)
	assert.True(t, open.Qty.Equal(decimal.NewFromInt(5)))
}

func TestLookupTradesShortSideAndQuoteFailure(t *testing.T) {
	trading := &fakeTrading{orders: []alpaca.Order{
		{ID: "o-3", Symbol: "QQQ", Side: alpaca.Sell, Status: "filled",
			Qty: dec("4"), FilledQty: decimal.RequireFromString("4"), FilledAvgPrice: dec("400")},
	}}

	t.Run("sell side profits when price falls", func(t *testing.T) {
		broker := NewBroker(trading, &fakeQuotes{quotes: map[string]marketdata.Quote{"QQQ": {AskPrice: 390, BidPrice: 389}}})
		rec, err := broker.LookupTrade("o-3")
		require.NoError(t, err)
		require.NotNil(t, rec.UnrealizedPL)
		assert.True(t, rec.UnrealizedPL.Equal(decimal.NewFromInt(40)), rec.UnrealizedPL.String())
	})

	t.Run("quote failure leaves record unpriced", func(t *testing.T) {
		broker := NewBroker(trading, &fakeQuotes{err: errors.New("rate limited")})
		rec, err := broker.LookupTrade("o-3")
		require.NoError(t, err)
		assert.Nil(t, rec.CurrentPrice)
	})
}

func TestGetCurrentPricesSkipsOneSidedQuotes(t *testing.T) {
	broker := NewBroker(&fakeTrading{}, &fakeQuotes{quotes: map[string]marketdata.Quote{
		"SPY": {AskPrice: 510, BidPrice: 509},
		"XYZ": {AskPrice: 12, BidPrice: 0},
	}})

	prices, err := broker.GetCurrentPrices([]string{"SPY", "XYZ"})
	require.NoError(t, err)
	assert.Contains(t, prices, "SPY")
	assert.NotContains(t, prices, "XYZ")
}

func TestIsMarketDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2026, 3, 2, 8, 30, 0, 0, ny)

	tests := []struct {
		name  string
		clock alpaca.Clock
		want  bool
	}{
		{"open now", alpaca.Clock{IsOpen: true}, true},
		{"opens later today", alpaca.Clock{NextOpen: time.Date(2026, 3, 2, 9, 30, 0, 0, ny)}, true},
		{"opens next weekday", alpaca.Clock{NextOpen: time.Date(2026, 3, 3, 9, 30, 0, 0, ny)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := tt.clock
			broker := NewBroker(&fakeTrading{clock: &clock}, &fakeQuotes{})
			got, err := broker.IsMarketDay(now, ny)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
