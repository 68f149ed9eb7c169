package alpaca

import (
	"os"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
)

const (
	paperBaseURL = "https://paper-api.alpaca.markets"
	liveBaseURL  = "https://api.alpaca.markets"
)

var (
	tradingClient *alpaca.Client
	dataClient    *marketdata.Client
)

// Credentials are the broker API keys
type Credentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// CredentialsFromEnv reads the keys from ALPACA_API_KEY and ALPACA_SECRET_KEY
func CredentialsFromEnv() Credentials {
	return Credentials{
		APIKey:    os.Getenv("ALPACA_API_KEY"),
		APISecret: os.Getenv("ALPACA_SECRET_KEY"),
	}
}

// Initialize sets up the Alpaca clients
func Initialize(creds Credentials, paper bool) {
	baseURL := liveBaseURL
	if paper {
		baseURL = paperBaseURL
	}

	tradingClient = alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    creds.APIKey,
		APISecret: creds.APISecret,
		BaseURL:   baseURL,
	})

	dataClient = marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    creds.APIKey,
		APISecret: creds.APISecret,
	})
}

// GetTradingClient returns the Alpaca trading client instance
func GetTradingClient() *alpaca.Client {
	if tradingClient == nil {
		logger.Logger.Fatal("Alpaca trading client not initialized")
	}
	return tradingClient
}

// GetDataClient returns the Alpaca market data client instance
func GetDataClient() *marketdata.Client {
	if dataClient == nil {
		logger.Logger.Fatal("Alpaca market data client not initialized")
	}
	return dataClient
}
