// Package session keeps the per-browser quiz state in a signed cookie.
package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"rccm-quiz/internal/quiz"
)

const (
	CookieName = "rccm_session"
	issuer     = "rccm-quiz"
	keyInfo    = "rccm-quiz session v1"
)

// State is everything the server remembers about one browser between
// requests. Exam is nil when no exam has been started.
type State struct {
	UserID string     `json:"uid"`
	CSRF   string     `json:"csrf"`
	Exam   *quiz.Exam `json:"exam,omitempty"`
}

func NewState() State {
	return State{UserID: uuid.NewString(), CSRF: uuid.NewString()}
}

// ValidCSRF compares a submitted form token with the one in the state.
func (s State) ValidCSRF(token string) bool {
	token = strings.TrimSpace(token)
	if s.CSRF == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.CSRF), []byte(token)) == 1
}

type claims struct {
	State State `json:"st"`
	jwt.RegisteredClaims
}

type Manager struct {
	key      []byte
	lifetime time.Duration
	secure   bool
	now      func() time.Time
}

func NewManager(secret string, lifetime time.Duration, secure bool) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("session: secret is required")
	}
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("session: derive key: %w", err)
	}
	return &Manager{key: key, lifetime: lifetime, secure: secure, now: time.Now}, nil
}

// SetClock replaces the time source used to issue and check cookies.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Load returns the state carried by the request cookie. A missing, tampered
// or expired cookie yields a fresh state and false.
func (m *Manager) Load(r *http.Request) (State, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return NewState(), false
	}
	st, err := m.decode(cookie.Value)
	if err != nil {
		return NewState(), false
	}
	return st, true
}

func (m *Manager) Save(w http.ResponseWriter, st State) error {
	value, err := m.encode(st)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.lifetime / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) encode(st State) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		State: st,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   st.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
		},
	})
	signed, err := token.SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("session: sign: %w", err)
	}
	return signed, nil
}

func (m *Manager) decode(value string) (State, error) {
	parsed := &claims{}
	token, err := jwt.ParseWithClaims(value, parsed, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return State{}, err
	}
	if !token.Valid {
		return State{}, errors.New("session: invalid token")
	}
	st := parsed.State
	if st.UserID == "" || st.CSRF == "" || st.UserID != parsed.Subject {
		return State{}, errors.New("session: incomplete state")
	}
	return st, nil
}
