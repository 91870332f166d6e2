package imaging

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"AlphaStore/pkg/kit"
)

const metricsComponent = "imaging"

// Uploader stores encoded JPEG bytes and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, jpg []byte) (string, error)
}

type Ingester struct {
	Host     Uploader
	MaxWidth int
	Quality  int
	Log      *zap.Logger
	Metrics  *kit.Metrics
}

func NewIngester(host Uploader, log *zap.Logger, m *kit.Metrics) *Ingester {
	return &Ingester{
		Host:     host,
		MaxWidth: DefaultMaxWidth,
		Quality:  DefaultQuality,
		Log:      kit.OrNop(log),
		Metrics:  m,
	}
}

// Ingest normalizes one upload and hands it to the host. ok is false when any
// step fails; callers skip the file.
func (in *Ingester) Ingest(ctx context.Context, r io.Reader) (url string, ok bool) {
	jpg, err := Normalize(r, in.MaxWidth, in.Quality)
	if err != nil {
		in.fail("decode", err)
		return "", false
	}

	url, err = in.Host.Upload(ctx, "p_"+uuid.NewString(), jpg)
	if err != nil {
		reason := "upload"
		if errors.Is(err, ErrHostDisabled) {
			reason = "disabled"
		}
		in.fail(reason, err)
		return "", false
	}

	in.Log.Info("image hosted", zap.String("url", url), zap.Int("bytes", len(jpg)))
	return url, true
}

func (in *Ingester) fail(reason string, err error) {
	in.Metrics.Fallback(metricsComponent, reason)
	in.Log.Warn("image ingest failed, skipping file", zap.String("reason", reason), zap.Error(err))
}
