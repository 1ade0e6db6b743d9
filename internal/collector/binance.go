package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/adshao/go-binance/v2"
)

const binanceTestnetURL = "https://testnet.binance.vision"

// BinanceFetcher reads spot ticker prices from Binance.
type BinanceFetcher struct {
	client *binance.Client
}

// NewBinanceFetcher creates a spot client. baseURL overrides the endpoint and
// otherwise testnet selects the public test exchange.
func NewBinanceFetcher(apiKey, apiSecret string, testnet bool, baseURL string, httpClient *http.Client) *BinanceFetcher {
	client := binance.NewClient(apiKey, apiSecret)
	switch {
	case baseURL != "":
		client.BaseURL = strings.TrimRight(baseURL, "/")
	case testnet:
		client.BaseURL = binanceTestnetURL
	}
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	return &BinanceFetcher{client: client}
}

func (f *BinanceFetcher) Name() string { return "binance" }

func (f *BinanceFetcher) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := f.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance price %s: %w", symbol, err)
	}
	for _, p := range prices {
		if p != nil && strings.EqualFold(p.Symbol, symbol) {
			return parsePrice(symbol, p.Price)
		}
	}
	return 0, fmt.Errorf("%w: binance has no ticker for %s", ErrNoPrice, symbol)
}
