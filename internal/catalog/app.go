package catalog

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"AlphaStore/internal/session"
	"AlphaStore/internal/translate"
	"AlphaStore/pkg/kit"
)

type Server struct {
	Store           Store
	Pipeline        *Pipeline
	Sessions        *session.Manager
	DefaultLanguage string
	Log             *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			s.log().Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/", s.list)
	r.Get("/products", s.list)
	r.Get("/categories", s.categories)
	r.Get("/lang/{code}", s.setLanguage)

	return r
}

type filters struct {
	Category string           `json:"category,omitempty"`
	Query    string           `json:"q,omitempty"`
	MinPrice *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice *decimal.Decimal `json:"max_price,omitempty"`
}

type catalogPage struct {
	Products   []Product       `json:"products"`
	Categories []string        `json:"categories"`
	Lang       string          `json:"lang"`
	Offers     bool            `json:"offers"`
	Filters    filters         `json:"filters"`
	Rate       decimal.Decimal `json:"rate"`
	RateStale  bool            `json:"rate_stale"`
}

// list always renders: storage failures degrade to an empty page.
func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c := ParseCriteria(r.URL.Query())
	lang := s.language(r)

	rows, err := s.Store.List(ctx, c)
	if err != nil {
		s.log().Error("list products failed", zap.Error(err))
		rows = nil
	}

	products, rate := s.Pipeline.Assemble(ctx, rows, lang)

	kit.WriteJSON(w, http.StatusOK, catalogPage{
		Products:   products,
		Categories: s.loadCategories(ctx),
		Lang:       lang,
		Offers:     c.Offers,
		Filters: filters{
			Category: c.Category,
			Query:    c.Query,
			MinPrice: c.MinPrice,
			MaxPrice: c.MaxPrice,
		},
		Rate:      rate.Rate,
		RateStale: rate.Stale(),
	})
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.loadCategories(r.Context()))
}

func (s *Server) loadCategories(ctx context.Context) []string {
	cats, err := s.Store.Categories(ctx)
	if err != nil {
		s.log().Error("list categories failed", zap.Error(err))
		return []string{}
	}
	if cats == nil {
		return []string{}
	}
	return cats
}

func (s *Server) setLanguage(w http.ResponseWriter, r *http.Request) {
	code, ok := translate.BaseCode(chi.URLParam(r, "code"))
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "unsupported language", map[string]any{"code": chi.URLParam(r, "code")})
		return
	}

	if s.Sessions != nil {
		if err := s.Sessions.SetLanguage(w, r, code); err != nil {
			s.log().Warn("save language failed", zap.Error(err))
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// language resolves the display language: explicit ?lang, then the session,
// then the store default. Browser preferences are ignored so the catalog only
// switches language when the user picks one.
func (s *Server) language(r *http.Request) string {
	if code, ok := translate.BaseCode(r.URL.Query().Get("lang")); ok {
		return code
	}
	if s.Sessions != nil {
		if v := s.Sessions.Language(r); v != "" {
			return v
		}
	}
	if code, ok := translate.BaseCode(s.DefaultLanguage); ok {
		return code
	}
	return translate.DefaultLanguage
}

func (s *Server) log() *zap.Logger {
	return kit.OrNop(s.Log)
}
