package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"AlphaStore/internal/catalog"
	"AlphaStore/internal/session"
	"AlphaStore/pkg/kit"
)

const (
	maxFormBytes   = 64 << 20
	maxFormMemory  = 8 << 20
	maxImageBytes  = 10 << 20
	maxTokenBody   = 1 << 10
	imagesField    = "images"
	imageURLField  = "image_url"
	flashBadLogin  = "incorrect password"
	flashAdded     = "product added"
	flashAddFailed = "could not add product"
)

// ImageIngester turns an upload into a hosted URL; ok=false means skip it.
type ImageIngester interface {
	Ingest(ctx context.Context, r io.Reader) (url string, ok bool)
}

// RateConverter prices the legacy COP column at insert time.
type RateConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal) decimal.Decimal
}

type Server struct {
	Store      catalog.Store
	Images     ImageIngester
	Rates      RateConverter
	Sessions   *session.Manager
	Tokens     *TokenMaker
	Credential *Credential
	Log        *zap.Logger
	// TrustProxy makes the login limiter key on X-Forwarded-For.
	TrustProxy bool
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"logged_in": s.Sessions.IsAdmin(r),
		"flashes":   s.Sessions.Flashes(w, r),
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTokenBody)

	if err := s.Credential.Verify(r.PostFormValue("password")); err != nil {
		s.log().Info("admin login rejected", zap.String("remote", r.RemoteAddr))
		s.flash(w, r, session.FlashError, flashBadLogin)
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	if err := s.Sessions.SetAdmin(w, r, true); err != nil {
		s.log().Error("save admin session failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.SetAdmin(w, r, false); err != nil {
		s.log().Warn("clear admin session failed", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type tokenReq struct {
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTokenBody)

	var req tokenReq
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	if err := s.Credential.Verify(req.Password); err != nil {
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	tok, err := s.Tokens.New("admin", RoleAdmin, tokenTTL)
	if err != nil {
		s.log().Error("token issue", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, tokenResp{AccessToken: tok, ExpiresIn: int(tokenTTL.Seconds())})
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	cats, err := s.Store.Categories(r.Context())
	if err != nil {
		s.log().Warn("list categories failed", zap.Error(err))
		cats = []string{}
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"flashes":    s.Sessions.Flashes(w, r),
		"categories": cats,
	})
}

type createResp struct {
	ID     int64    `json:"id"`
	Images []string `json:"images"`
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.fail(w, r, http.StatusBadRequest, "bad form", err)
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	p, err := parseNewProduct(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}

	p.ImageURLs = append(s.ingestUploads(ctx, r.MultipartForm), p.ImageURLs...)
	p.PriceCOP = s.Rates.Convert(ctx, p.PriceUSD)

	id, err := s.Store.Insert(ctx, p)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, catalog.ErrInvalidProduct) {
			status = http.StatusBadRequest
		}
		s.fail(w, r, status, flashAddFailed, err)
		return
	}

	s.log().Info("product added", zap.Int64("id", id), zap.Int("images", len(p.ImageURLs)))

	if kit.WantsJSON(r) {
		kit.WriteJSON(w, http.StatusCreated, createResp{ID: id, Images: p.ImageURLs})
		return
	}
	s.flash(w, r, session.FlashSuccess, flashAdded)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func parseNewProduct(r *http.Request) (catalog.NewProduct, error) {
	p := catalog.NewProduct{
		Name:      strings.TrimSpace(r.PostFormValue("name")),
		Category:  strings.TrimSpace(r.PostFormValue("category")),
		Specs:     strings.TrimSpace(r.PostFormValue("specs")),
		ImageURLs: catalog.ParseImageURLs(r.PostFormValue(imageURLField)),
	}

	price, err := decimal.NewFromString(strings.TrimSpace(r.PostFormValue("price_usd")))
	if err != nil {
		return catalog.NewProduct{}, errors.Join(catalog.ErrInvalidProduct, errors.New("price_usd must be a number"))
	}
	p.PriceUSD = price

	if err := p.Validate(); err != nil {
		return catalog.NewProduct{}, err
	}
	return p, nil
}

// ingestUploads hosts every uploaded file, in form order, dropping the ones
// that fail.
func (s *Server) ingestUploads(ctx context.Context, form *multipart.Form) []string {
	urls := []string{}
	if form == nil {
		return urls
	}

	for _, fh := range form.File[imagesField] {
		if fh.Size > maxImageBytes {
			s.log().Warn("upload too large, skipping", zap.String("file", fh.Filename), zap.Int64("size", fh.Size))
			continue
		}

		f, err := fh.Open()
		if err != nil {
			s.log().Warn("open upload failed", zap.String("file", fh.Filename), zap.Error(err))
			continue
		}
		url, ok := s.Images.Ingest(ctx, f)
		_ = f.Close()

		if ok {
			urls = append(urls, url)
		}
	}
	return urls
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	s.log().Warn("admin write failed", zap.String("msg", msg), zap.Error(err))

	if kit.WantsJSON(r) {
		kit.WriteError(w, r, status, msg, nil)
		return
	}
	s.flash(w, r, session.FlashError, msg)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) flash(w http.ResponseWriter, r *http.Request, kind session.FlashKind, msg string) {
	if err := s.Sessions.AddFlash(w, r, session.Flash{Kind: kind, Message: msg}); err != nil {
		s.log().Warn("save flash failed", zap.Error(err))
	}
}

func (s *Server) log() *zap.Logger {
	return kit.OrNop(s.Log)
}
