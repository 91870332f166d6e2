package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"AlphaStore/pkg/kit"
)

const (
	DefaultHostURL = "https://api.imgbb.com/1/upload"
	uploadTimeout  = 15 * time.Second
	maxRespBytes   = 1 << 20
)

var (
	ErrHostDisabled  = errors.New("image host disabled")
	ErrHostBadStatus = errors.New("image host bad status")
	ErrHostRejected  = errors.New("image host rejected upload")
)

// HostClient uploads encoded images to an imgbb compatible API.
type HostClient struct {
	URL     string
	APIKey  string
	Client  *http.Client
	Metrics *kit.Metrics
}

func NewHostClient(url, apiKey string) *HostClient {
	if url == "" {
		url = DefaultHostURL
	}
	return &HostClient{
		URL:    url,
		APIKey: apiKey,
		Client: &http.Client{Timeout: uploadTimeout},
	}
}

type uploadResp struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HostClient) Upload(ctx context.Context, name string, jpg []byte) (hosted string, err error) {
	if c.APIKey == "" {
		return "", ErrHostDisabled
	}

	start := time.Now()
	defer func() { c.Metrics.ObserveUpstream(metricsComponent, start, err) }()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("key", c.APIKey); err != nil {
		return "", err
	}
	if err := mw.WriteField("name", name); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("image", name+".jpg")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(jpg); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	var ur uploadResp
	decErr := json.NewDecoder(io.LimitReader(resp.Body, maxRespBytes)).Decode(&ur)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status=%d %s", ErrHostBadStatus, resp.StatusCode, ur.Error.Message)
	}
	if decErr != nil {
		return "", fmt.Errorf("decode upload response: %w", decErr)
	}
	if !ur.Success || ur.Data.URL == "" {
		return "", ErrHostRejected
	}
	return ur.Data.URL, nil
}
