package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an id has no catalog entry. Menu-driven input
// never produces unknown ids, so hitting this signals a catalog mismatch.
var ErrNotFound = errors.New("not found in catalog")

// Asset is a tradable instrument offered for analysis. Symbol is the
// chart-img.com symbol code, distinct from the short ID used in callbacks.
type Asset struct {
	ID     string
	Label  string
	Symbol string
}

// Timeframe is the candle interval requested for the chart.
type Timeframe struct {
	ID       string
	Label    string
	Interval string
}

var assets = []Asset{
	{ID: "xauusd", Label: "XAU/USD (Gold)", Symbol: "XAUUSD"},
	{ID: "btc", Label: "Bitcoin (BTC)", Symbol: "BTCUSD"},
	{ID: "dxy", Label: "USD Index (DXY)", Symbol: "DXY"},
	{ID: "wti", Label: "Crude Oil (WTI)", Symbol: "WTIUSD"},
	{ID: "ndx", Label: "Nasdaq (NDX)", Symbol: "NDX"},
}

var timeframes = []Timeframe{
	{ID: "1m", Label: "1-minute", Interval: "1m"},
	{ID: "5m", Label: "5-minute", Interval: "5m"},
	{ID: "15m", Label: "15-minute", Interval: "15m"},
	{ID: "1h", Label: "1-hour", Interval: "1h"},
	{ID: "1d", Label: "1-day", Interval: "1d"},
}

// Assets returns the supported assets in menu order.
func Assets() []Asset {
	out := make([]Asset, len(assets))
	copy(out, assets)
	return out
}

// Timeframes returns the supported timeframes in menu order.
func Timeframes() []Timeframe {
	out := make([]Timeframe, len(timeframes))
	copy(out, timeframes)
	return out
}

func AssetByID(id string) (Asset, error) {
	for _, a := range assets {
		if a.ID == id {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("asset %q: %w", id, ErrNotFound)
}

func TimeframeByID(id string) (Timeframe, error) {
	for _, tf := range timeframes {
		if tf.ID == id {
			return tf, nil
		}
	}
	return Timeframe{}, fmt.Errorf("timeframe %q: %w", id, ErrNotFound)
}
