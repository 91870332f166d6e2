package catalog

import (
	"context"

	"go.uber.org/zap"

	"AlphaStore/internal/currency"
	"AlphaStore/internal/translate"
	"AlphaStore/pkg/kit"
)

type RateProvider interface {
	Rate(ctx context.Context) currency.RateResult
	Peek() currency.RateResult
}

type TextTranslator interface {
	Translate(ctx context.Context, text, lang string) translate.Result
	IsDefault(lang string) bool
}

// Pipeline turns stored rows into display records.
type Pipeline struct {
	Rates      RateProvider
	Translator TextTranslator
	Log        *zap.Logger
}

func NewPipeline(rates RateProvider, tr TextTranslator, log *zap.Logger) *Pipeline {
	return &Pipeline{Rates: rates, Translator: tr, Log: kit.OrNop(log)}
}

// Assemble maps rows one to one, keeping their order. The rate is read once
// per call so every row in a page converts with the same value.
func (p *Pipeline) Assemble(ctx context.Context, rows []Row, lang string) ([]Product, currency.RateResult) {
	var rate currency.RateResult
	if len(rows) == 0 {
		rate = p.Rates.Peek()
	} else {
		rate = p.Rates.Rate(ctx)
	}

	localize := p.Translator != nil && !p.Translator.IsDefault(lang)

	out := make([]Product, 0, len(rows))
	for _, r := range rows {
		usd := ParsePrice(r.PriceUSD)
		prod := Product{
			ID:       r.ID,
			Name:     r.Name,
			Category: r.Category,
			Specs:    r.Specs,
			PriceUSD: usd,
			PriceCOP: usd.Mul(rate.Rate),
			Images:   SplitImages(r.ImageURLs),
		}

		if localize {
			prod.Name = p.Translator.Translate(ctx, r.Name, lang).Text
			prod.Specs = p.Translator.Translate(ctx, r.Specs, lang).Text
			prod.Category = p.Translator.Translate(ctx, r.Category, lang).Text
		}
		out = append(out, prod)
	}

	if rate.Stale() && len(rows) > 0 {
		p.Log.Debug("assembled page with stale rate",
			zap.String("rate", rate.Rate.String()),
			zap.Int("rows", len(rows)),
		)
	}
	return out, rate
}
