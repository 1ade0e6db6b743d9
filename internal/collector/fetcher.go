package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"TrendSignal/internal/observability"
)

// ErrNoPrice is returned when a source answers without a usable price.
var ErrNoPrice = errors.New("no price available")

// PriceFetcher looks up the current market price of a symbol.
type PriceFetcher interface {
	FetchCurrentPrice(ctx context.Context, symbol string) (float64, error)
	Name() string
}

// Options selects and configures a PriceFetcher.
type Options struct {
	Source      string // binance, rest, static
	BaseURL     string
	APIKey      string
	APISecret   string
	Testnet     bool
	ProxyURL    string
	Timeout     time.Duration
	StaticPrice float64
}

// NewFetcher builds the fetcher named by opts.Source, wrapped with latency metrics.
func NewFetcher(opts Options) (PriceFetcher, error) {
	var f PriceFetcher
	switch opts.Source {
	case "", "binance":
		f = NewBinanceFetcher(opts.APIKey, opts.APISecret, opts.Testnet, opts.BaseURL, newHTTPClient(opts.ProxyURL, opts.Timeout))
	case "rest":
		if opts.BaseURL == "" {
			return nil, errors.New("rest price source requires a base url")
		}
		f = NewRESTFetcher(opts.BaseURL, opts.APIKey, opts.ProxyURL, opts.Timeout)
	case "static":
		f = &StaticFetcher{Price: opts.StaticPrice}
	default:
		return nil, fmt.Errorf("unknown price source %q", opts.Source)
	}
	return Instrument(f), nil
}

// Instrument records lookup latency and status for f.
func Instrument(f PriceFetcher) PriceFetcher {
	if _, ok := f.(*instrumented); ok {
		return f
	}
	return &instrumented{next: f}
}

type instrumented struct {
	next PriceFetcher
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	start := time.Now()
	price, err := i.next.FetchCurrentPrice(ctx, symbol)
	observability.ObservePriceLookup(i.next.Name(), time.Since(start).Seconds(), err)
	return price, err
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// parsePrice converts an exchange price string, rejecting non-positive values.
func parsePrice(symbol, raw string) (float64, error) {
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q for %s: %w", raw, symbol, err)
	}
	if p <= 0 {
		return 0, fmt.Errorf("%w: %s quoted %v", ErrNoPrice, symbol, p)
	}
	return p, nil
}
