package chartimg

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"telegramChartBot/internal/catalog"
)

const (
	baseURL   = "https://api.chart-img.com"
	chartPath = "/v2/tradingview/advanced-chart"

	chartTheme  = "dark"
	chartWidth  = 1200
	chartHeight = 800
)

// UpstreamError is a non-2xx reply from the chart service. Single attempt,
// never retried here.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	preview := e.Body
	if len(preview) > 200 {
		preview = preview[:200]
	}
	return fmt.Sprintf("chart-img returned %d: %s", e.Status, preview)
}

type study struct {
	Name         string         `json:"name"`
	ForceOverlay bool           `json:"forceOverlay,omitempty"`
	Input        map[string]any `json:"input,omitempty"`
	Override     map[string]any `json:"override,omitempty"`
}

type chartRequest struct {
	Symbol   string  `json:"symbol"`
	Interval string  `json:"interval"`
	Theme    string  `json:"theme"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Studies  []study `json:"studies"`
}

// Client fetches rendered charts from the chart-img.com advanced-chart API.
type Client struct {
	http *resty.Client
}

// NewClient builds a client authenticated via the x-api-key header. The key
// never appears in the URL or the request body.
func NewClient(apiKey string) *Client {
	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetTimeout(30 * time.Second)
	c.SetHeader("x-api-key", apiKey)
	return &Client{http: c}
}

// defaultStudies is the fixed overlay set rendered on every chart: translucent
// volume drawn over the price panel, RSI(14) with 70/30 limits, and
// Supertrend(3, 10) with trend-colored segments.
func defaultStudies() []study {
	return []study{
		{
			Name:         "Volume",
			ForceOverlay: true,
			Override: map[string]any{
				"Volume.color.0": "rgba(247,82,95,0.3)",
				"Volume.color.1": "rgba(34,171,148,0.3)",
			},
		},
		{
			Name:  "Relative Strength Index",
			Input: map[string]any{"length": 14},
			Override: map[string]any{
				"Plot.color":       "rgb(33,150,243)",
				"UpperLimit.value": 70,
				"LowerLimit.value": 30,
			},
		},
		{
			Name:  "Supertrend",
			Input: map[string]any{"Factor": 3, "Period": 10},
			Override: map[string]any{
				"Up Trend.color":   "rgb(8,153,129)",
				"Down Trend.color": "rgb(242,54,69)",
			},
		},
	}
}

// FetchChart resolves both ids through the catalog and retrieves one rendered
// chart image. A non-2xx status comes back as *UpstreamError.
func (c *Client) FetchChart(ctx context.Context, assetID, timeframeID string) ([]byte, error) {
	asset, err := catalog.AssetByID(assetID)
	if err != nil {
		return nil, err
	}
	tf, err := catalog.TimeframeByID(timeframeID)
	if err != nil {
		return nil, err
	}

	payload := chartRequest{
		Symbol:   asset.Symbol,
		Interval: tf.Interval,
		Theme:    chartTheme,
		Width:    chartWidth,
		Height:   chartHeight,
		Studies:  defaultStudies(),
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(chartPath)
	if err != nil {
		return nil, fmt.Errorf("chart-img request failed: %w", err)
	}
	if resp.IsError() {
		return nil, &UpstreamError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	return resp.Body(), nil
}
