package collector

import (
	"context"
	"fmt"
)

// StaticFetcher returns a fixed price for every symbol, or Err when set.
// Useful for local development and tests.
type StaticFetcher struct {
	Price float64
	Err   error
}

func (s *StaticFetcher) Name() string { return "static" }

func (s *StaticFetcher) FetchCurrentPrice(_ context.Context, symbol string) (float64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	if s.Price <= 0 {
		return 0, fmt.Errorf("%w: static price not set for %s", ErrNoPrice, symbol)
	}
	return s.Price, nil
}
