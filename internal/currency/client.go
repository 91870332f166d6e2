package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"AlphaStore/pkg/kit"
)

const (
	DefaultAPIURL = "https://v6.exchangerate-api.com/v6"
	fetchTimeout  = 5 * time.Second
	maxBodyBytes  = 1 << 20
)

var (
	ErrSourceDisabled = errors.New("exchange rate source disabled")
	ErrBadStatus      = errors.New("exchange rate api bad status")
	ErrNotSuccess     = errors.New("exchange rate api reported failure")
	ErrMissingRate    = errors.New("exchange rate missing from response")
)

// APIClient reads a single conversion rate from an exchangerate-api v6
// compatible endpoint: GET {base}/{key}/latest/{from}.
type APIClient struct {
	BaseURL string
	APIKey  string
	From    string
	To      string
	Client  *http.Client
	Metrics *kit.Metrics
}

func NewAPIClient(baseURL, apiKey string) *APIClient {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		From:    "USD",
		To:      "COP",
		Client:  &http.Client{Timeout: fetchTimeout},
	}
}

type latestResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

func (c *APIClient) FetchRate(ctx context.Context) (rate decimal.Decimal, err error) {
	if c.APIKey == "" {
		return decimal.Zero, ErrSourceDisabled
	}

	start := time.Now()
	defer func() { c.Metrics.ObserveUpstream(metricsComponent, start, err) }()

	u := fmt.Sprintf("%s/%s/latest/%s", c.BaseURL, url.PathEscape(c.APIKey), url.PathEscape(c.From))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return decimal.Zero, fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate: %w", err)
	}
	if body.Result != "success" {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNotSuccess, body.ErrorType)
	}

	r, ok := body.ConversionRates[c.To]
	if !ok || !r.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrMissingRate, c.To)
	}
	return r, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrSourceDisabled):
		return "disabled"
	case errors.Is(err, ErrBadStatus):
		return "bad_status"
	case errors.Is(err, ErrNotSuccess), errors.Is(err, ErrMissingRate):
		return "bad_payload"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}
