// Package translate localizes catalog text on a best-effort basis. Failures
// never surface to callers: the original text is returned instead.
package translate

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"AlphaStore/pkg/kit"
)

const (
	DefaultLanguage = "es"

	metricsComponent = "translate"
)

var ErrDisabled = errors.New("translation backend disabled")

// Backend is a machine translation service.
type Backend interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type Outcome int

const (
	Translated Outcome = iota
	// Fallback means the original text is returned unchanged.
	Fallback
)

type Result struct {
	Text    string
	Outcome Outcome
}

func (r Result) Translated() bool { return r.Outcome == Translated }

type Adapter struct {
	Backend         Backend
	DefaultLanguage string
	Log             *zap.Logger
	Metrics         *kit.Metrics
}

func NewAdapter(b Backend, defaultLang string, log *zap.Logger, m *kit.Metrics) *Adapter {
	code, ok := BaseCode(defaultLang)
	if !ok {
		code = DefaultLanguage
	}
	return &Adapter{Backend: b, DefaultLanguage: code, Log: kit.OrNop(log), Metrics: m}
}

// IsDefault reports whether lang needs no translation.
func (a *Adapter) IsDefault(lang string) bool {
	if lang == "" {
		return true
	}
	code, ok := BaseCode(lang)
	return ok && code == a.DefaultLanguage
}

// Translate returns text in lang. Empty text and the default language never
// reach the backend.
func (a *Adapter) Translate(ctx context.Context, text, lang string) Result {
	if text == "" || a.IsDefault(lang) {
		return Result{Text: text, Outcome: Fallback}
	}

	target, ok := BaseCode(lang)
	if !ok {
		a.fallback("bad_language", errors.New("unparsable language tag"), lang)
		return Result{Text: text, Outcome: Fallback}
	}
	if a.Backend == nil {
		a.fallback("disabled", ErrDisabled, target)
		return Result{Text: text, Outcome: Fallback}
	}

	out, err := a.Backend.Translate(ctx, text, "auto", target)
	if err != nil {
		a.fallback("error", err, target)
		return Result{Text: text, Outcome: Fallback}
	}
	if out == "" {
		a.fallback("empty", errors.New("empty translation"), target)
		return Result{Text: text, Outcome: Fallback}
	}
	return Result{Text: out, Outcome: Translated}
}

func (a *Adapter) fallback(reason string, err error, lang string) {
	a.Metrics.Fallback(metricsComponent, reason)
	if a.Log != nil {
		a.Log.Debug("translation fell back to original text",
			zap.String("reason", reason),
			zap.String("lang", lang),
			zap.Error(err),
		)
	}
}
