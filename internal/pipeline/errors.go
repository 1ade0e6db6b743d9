package pipeline

import (
	"errors"
	"strings"
)

var (
	ErrMalformedSignal  = errors.New("malformed signal")
	ErrInvalidSignal    = errors.New("invalid signal")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrPersistence      = errors.New("persistence failure")
)

// RequiredFields lists the webhook fields every signal must carry.
var RequiredFields = []string{"symbol", "plusDI", "minusDI", "adx", "timeframe"}

// MalformedSignalError reports the required fields a signal is missing.
type MalformedSignalError struct {
	Missing []string
}

func (e *MalformedSignalError) Error() string {
	return "missing required signal parameters: " + strings.Join(e.Missing, ", ")
}

func (e *MalformedSignalError) Unwrap() error { return ErrMalformedSignal }

// InvalidSignalError carries the evaluator's explanation for a rejected signal.
type InvalidSignalError struct {
	Explanation string
}

func (e *InvalidSignalError) Error() string {
	return "invalid signal: " + e.Explanation
}

func (e *InvalidSignalError) Unwrap() error { return ErrInvalidSignal }
