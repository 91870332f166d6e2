package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"AlphaStore/internal/catalog"
	"AlphaStore/internal/session"
)

const testPassword = "1032491753Outlook*"

type fakeIngester struct {
	calls int
}

// Ingest hosts any upload whose content starts with "ok".
func (f *fakeIngester) Ingest(_ context.Context, r io.Reader) (string, bool) {
	f.calls++
	b, _ := io.ReadAll(r)
	if !bytes.HasPrefix(b, []byte("ok")) {
		return "", false
	}
	return "https://img.example/" + string(b) + ".jpg", true
}

type fixedConverter struct{ rate decimal.Decimal }

func (c fixedConverter) Convert(_ context.Context, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(c.rate)
}

type fixture struct {
	ts     *httptest.Server
	store  *catalog.MemStore
	images *fakeIngester
	srv    *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cred, err := NewCredential(testPassword)
	if err != nil {
		t.Fatalf("credential: %v", err)
	}

	f := &fixture{store: catalog.NewMemStore(), images: &fakeIngester{}}
	f.srv = &Server{
		Store:      f.store,
		Images:     f.images,
		Rates:      fixedConverter{rate: decimal.NewFromInt(4150)},
		Sessions:   session.NewManager([]byte("0123456789abcdef0123456789abcdef"), false),
		Tokens:     NewTokenMaker("test-secret-test-secret-test-secret"),
		Credential: cred,
		Log:        zap.NewNop(),
	}

	r := chi.NewRouter()
	r.Mount("/admin", f.srv.Routes())
	f.ts = httptest.NewServer(r)
	t.Cleanup(f.ts.Close)
	return f
}

// browser does not follow redirects so tests can assert on them.
func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, c *http.Client, u string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.PostForm(u, form)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()
	return resp
}

func getJSON(t *testing.T, c *http.Client, u string, out any) *http.Response {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp
}

type flashesResp struct {
	LoggedIn bool            `json:"logged_in"`
	Flashes  []session.Flash `json:"flashes"`
}

func login(t *testing.T, f *fixture, c *http.Client) {
	t.Helper()
	resp := postForm(t, c, f.ts.URL+"/admin/login", url.Values{"password": {testPassword}})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/admin" {
		t.Fatalf("login status=%d location=%q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

type upload struct {
	name    string
	content string
}

func multipartBody(t *testing.T, fields map[string]string, files []upload) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("field: %v", err)
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(imagesField, f.name)
		if err != nil {
			t.Fatalf("file: %v", err)
		}
		_, _ = fw.Write([]byte(f.content))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestLogin_WrongPasswordFlashes(t *testing.T) {
	f := newFixture(t)
	c := browser(t)

	resp := postForm(t, c, f.ts.URL+"/admin/login", url.Values{"password": {"nope"}})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/admin/login" {
		t.Fatalf("status=%d location=%q", resp.StatusCode, resp.Header.Get("Location"))
	}

	var page flashesResp
	getJSON(t, c, f.ts.URL+"/admin/login", &page)
	if page.LoggedIn || len(page.Flashes) != 1 || page.Flashes[0].Message != flashBadLogin {
		t.Fatalf("page=%+v", page)
	}

	if resp := getJSON(t, c, f.ts.URL+"/admin", nil); resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("dashboard without login status=%d", resp.StatusCode)
	}
}

func TestLogin_SessionGrantsDashboardUntilLogout(t *testing.T) {
	f := newFixture(t)
	c := browser(t)
	login(t, f, c)

	if resp := getJSON(t, c, f.ts.URL+"/admin", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status=%d", resp.StatusCode)
	}

	if resp := getJSON(t, c, f.ts.URL+"/admin/logout", nil); resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("logout status=%d", resp.StatusCode)
	}
	if resp := getJSON(t, c, f.ts.URL+"/admin", nil); resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("dashboard after logout status=%d", resp.StatusCode)
	}
}

func TestCreateProduct_BrowserFlow(t *testing.T) {
	f := newFixture(t)
	c := browser(t)
	login(t, f, c)

	body, ct := multipartBody(t, map[string]string{
		"name":      "Rifle M4",
		"category":  "Rifles",
		"specs":     "350 FPS",
		"price_usd": "10",
		"image_url": "https://cdn.example/extra.jpg",
	}, []upload{{"a.png", "ok-a"}, {"bad.png", "junk"}, {"b.png", "ok-b"}})

	resp, err := c.Post(f.ts.URL+"/admin/products", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/admin" {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	row, ok := f.store.Get(1)
	if !ok {
		t.Fatalf("product not stored")
	}
	wantImages := "https://img.example/ok-a.jpg,https://img.example/ok-b.jpg,https://cdn.example/extra.jpg"
	if row.ImageURLs != wantImages {
		t.Fatalf("image_urls=%q", row.ImageURLs)
	}
	if row.PriceCOP != "41500" {
		t.Fatalf("price_cop=%q", row.PriceCOP)
	}
	if f.images.calls != 3 {
		t.Fatalf("ingest calls=%d", f.images.calls)
	}

	var dash flashesResp
	getJSON(t, c, f.ts.URL+"/admin", &dash)
	if len(dash.Flashes) != 1 || dash.Flashes[0].Message != flashAdded {
		t.Fatalf("flashes=%+v", dash.Flashes)
	}
}

func TestCreateProduct_InvalidInputFlashesError(t *testing.T) {
	f := newFixture(t)
	c := browser(t)
	login(t, f, c)

	resp := postForm(t, c, f.ts.URL+"/admin/products", url.Values{"name": {"Scope"}, "price_usd": {"cheap"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	var dash flashesResp
	getJSON(t, c, f.ts.URL+"/admin", &dash)
	if len(dash.Flashes) != 1 || dash.Flashes[0].Kind != session.FlashError {
		t.Fatalf("flashes=%+v", dash.Flashes)
	}
	if _, ok := f.store.Get(1); ok {
		t.Fatalf("invalid product stored")
	}
}

func TestCreateProduct_BearerToken(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.ts.URL+"/admin/token", "application/json",
		strings.NewReader(`{"password":"`+testPassword+`"}`))
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	var tr tokenResp
	_ = json.NewDecoder(resp.Body).Decode(&tr)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || tr.AccessToken == "" {
		t.Fatalf("token status=%d", resp.StatusCode)
	}

	body, ct := multipartBody(t, map[string]string{"name": "Scope", "price_usd": "50"}, nil)
	req, _ := http.NewRequest(http.MethodPost, f.ts.URL+"/admin/products", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+tr.AccessToken)

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer resp.Body.Close()

	var cr createResp
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusCreated || cr.ID != 1 {
		t.Fatalf("status=%d resp=%+v", resp.StatusCode, cr)
	}
	if cr.Images == nil || len(cr.Images) != 0 {
		t.Fatalf("images=%#v", cr.Images)
	}
}

func TestCreateProduct_RequiresAuth(t *testing.T) {
	f := newFixture(t)

	req, _ := http.NewRequest(http.MethodPost, f.ts.URL+"/admin/products", strings.NewReader("name=x&price_usd=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	req.Header.Set("Authorization", "Bearer not-a-token")
	req.Body = io.NopCloser(strings.NewReader("name=x&price_usd=1"))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status=%d", resp.StatusCode)
	}
}

func TestToken_WrongPassword(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.ts.URL+"/admin/token", "application/json", strings.NewReader(`{"password":"x"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	f := newFixture(t)
	c := browser(t)

	var last int
	for i := 0; i < loginLimitPerMin+1; i++ {
		last = postForm(t, c, f.ts.URL+"/admin/login", url.Values{"password": {"nope"}}).StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("status=%d", last)
	}
}
