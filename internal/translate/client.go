package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"AlphaStore/pkg/kit"
)

const (
	requestTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var ErrBadStatus = errors.New("translation api bad status")

// Client talks to a LibreTranslate compatible API.
type Client struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Metrics *kit.Metrics
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: requestTimeout},
	}
}

type translateReq struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResp struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

func (c *Client) Translate(ctx context.Context, text, source, target string) (out string, err error) {
	start := time.Now()
	defer func() { c.Metrics.ObserveUpstream(metricsComponent, start, err) }()

	body, err := json.Marshal(translateReq{Q: text, Source: source, Target: target, Format: "text", APIKey: c.APIKey})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	defer resp.Body.Close()

	var tr translateResp
	decErr := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&tr)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status=%d %s", ErrBadStatus, resp.StatusCode, tr.Error)
	}
	if decErr != nil {
		return "", fmt.Errorf("decode translation: %w", decErr)
	}
	return tr.TranslatedText, nil
}
