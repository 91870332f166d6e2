// Package session keeps per-browser state in a signed cookie: the admin flag,
// the chosen display language and one-shot flash messages.
package session

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	cookieName = "alphastore"

	keyAdmin = "logged_in"
	keyLang  = "lang"

	maxAgeSeconds = 7 * 24 * 3600
)

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

func init() {
	gob.Register(Flash{})
}

type Manager struct {
	store sessions.Store
}

func NewManager(secret []byte, secure bool) *Manager {
	cs := sessions.NewCookieStore(secret)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAgeSeconds,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: cs}
}

// get never fails: a missing or tampered cookie yields a fresh session.
func (m *Manager) get(r *http.Request) *sessions.Session {
	s, _ := m.store.Get(r, cookieName)
	return s
}

func (m *Manager) IsAdmin(r *http.Request) bool {
	v, _ := m.get(r).Values[keyAdmin].(bool)
	return v
}

func (m *Manager) SetAdmin(w http.ResponseWriter, r *http.Request, admin bool) error {
	s := m.get(r)
	if admin {
		s.Values[keyAdmin] = true
	} else {
		delete(s.Values, keyAdmin)
	}
	return s.Save(r, w)
}

func (m *Manager) Language(r *http.Request) string {
	v, _ := m.get(r).Values[keyLang].(string)
	return v
}

func (m *Manager) SetLanguage(w http.ResponseWriter, r *http.Request, lang string) error {
	s := m.get(r)
	s.Values[keyLang] = lang
	return s.Save(r, w)
}

func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, f Flash) error {
	s := m.get(r)
	s.AddFlash(f)
	return s.Save(r, w)
}

// Flashes pops all pending flashes. Always returns a non-nil slice.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) []Flash {
	s := m.get(r)
	raw := s.Flashes()
	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	if len(raw) > 0 {
		_ = s.Save(r, w)
	}
	return out
}
