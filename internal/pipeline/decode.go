package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"TrendSignal/internal/model"
)

// DecodeSignal parses a webhook body. Indicator values may be JSON numbers or
// numeric strings. Fields that are absent, null or of the wrong type are left
// unset so validation can report them.
func DecodeSignal(body []byte) (*model.TradingSignal, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, &MalformedSignalError{Missing: append([]string(nil), RequiredFields...)}
	}
	// Anything after the object, other than whitespace, is rejected.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &MalformedSignalError{Missing: append([]string(nil), RequiredFields...)}
	}

	return &model.TradingSignal{
		Symbol:    text(raw["symbol"]),
		Timeframe: text(raw["timeframe"]),
		PlusDI:    number(raw["plusDI"]),
		MinusDI:   number(raw["minusDI"]),
		ADX:       number(raw["adx"]),
	}, nil
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	}
	return ""
}

func number(v any) *float64 {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// missingFields returns the required fields sig lacks, in RequiredFields order.
func missingFields(sig *model.TradingSignal) []string {
	if sig == nil {
		return append([]string(nil), RequiredFields...)
	}
	var missing []string
	check := func(name string, ok bool) {
		if !ok {
			missing = append(missing, name)
		}
	}
	check("symbol", sig.Symbol != "")
	check("plusDI", sig.PlusDI != nil)
	check("minusDI", sig.MinusDI != nil)
	check("adx", sig.ADX != nil)
	check("timeframe", sig.Timeframe != "")
	return missing
}

func describe(sig *model.TradingSignal) string {
	f := func(p *float64) string {
		if p == nil {
			return "-"
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	}
	return fmt.Sprintf("%s@%s +DI=%s -DI=%s ADX=%s", sig.Symbol, sig.Timeframe, f(sig.PlusDI), f(sig.MinusDI), f(sig.ADX))
}
