package alpaca

import (
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// TradingAPI is the subset of the trading client the broker uses
type TradingAPI interface {
	GetClock() (*alpaca.Clock, error)
	GetOrders(req alpaca.GetOrdersRequest) ([]alpaca.Order, error)
	GetOrder(orderID string) (*alpaca.Order, error)
}

// MarketDataAPI is the subset of the market data client the broker uses
type MarketDataAPI interface {
	GetLatestQuotes(symbols []string, req marketdata.GetLatestQuoteRequest) (map[string]marketdata.Quote, error)
}

// Broker answers dashboard questions about orders, prices and market hours
type Broker struct {
	trading TradingAPI
	data    MarketDataAPI
}

// NewBroker returns a Broker over the given clients
func NewBroker(trading TradingAPI, data MarketDataAPI) *Broker {
	return &Broker{trading: trading, data: data}
}

// DefaultBroker returns a Broker over the initialized package clients
func DefaultBroker() *Broker {
	return NewBroker(GetTradingClient(), GetDataClient())
}

// MarketClock reports whether the market is open and when it next opens
func (b *Broker) MarketClock() (*alpaca.Clock, error) {
	clock, err := b.trading.GetClock()
	if err != nil {
		return nil, errors.Wrap(err, "error getting market clock")
	}
	return clock, nil
}

// IsMarketDay reports whether the market opens (or is open) on now's calendar
// day in loc.
func (b *Broker) IsMarketDay(now time.Time, loc *time.Location) (bool, error) {
	clock, err := b.MarketClock()
	if err != nil {
		return false, err
	}
	if clock.IsOpen {
		return true, nil
	}
	y, m, d := now.In(loc).Date()
	ny, nm, nd := clock.NextOpen.In(loc).Date()
	return y == ny && m == nm && d == nd, nil
}

// GetCurrentPrices retrieves current ask prices for multiple tickers. Tickers
// without a two-sided quote are left out.
func (b *Broker) GetCurrentPrices(tickers []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	if len(tickers) == 0 {
		return prices, nil
	}

	quotes, err := b.data.GetLatestQuotes(tickers, marketdata.GetLatestQuoteRequest{
		Feed: marketdata.IEX,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error getting latest quotes")
	}

	for ticker, quote := range quotes {
		if quote.AskPrice <= 0 || quote.BidPrice <= 0 {
			continue
		}
		prices[ticker] = decimal.NewFromFloat(quote.AskPrice)
	}
	return prices, nil
}
