// Package session keeps the logged-in ERP identity in a sealed cookie.
//
// The cookie value is an HS256 JWT carrying the ERP uid, username and
// password, encrypted with AES-256-GCM. Both keys are derived from one
// configured secret. Nothing is stored server side.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"babettepos/internal/security/secretbox"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid session")
)

// Data is the per-browser session payload.
type Data struct {
	UID      int
	Username string
	Password string
	LoggedIn bool
}

type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	SameSite   http.SameSite
}

type claims struct {
	UID      int    `json:"uid"`
	Username string `json:"username"`
	Password string `json:"pwd"`
	LoggedIn bool   `json:"logged_in"`
	jwt.RegisteredClaims
}

type Manager struct {
	box        *secretbox.Box
	signingKey []byte
	opts       Options
	now        func() time.Time
}

func NewManager(secret string, opts Options) (*Manager, error) {
	box, err := secretbox.New(secret, "pos-session-seal")
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	signingKey, err := secretbox.DeriveKey(secret, "pos-session-sign")
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if opts.CookieName == "" {
		opts.CookieName = "babette_pos_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteLaxMode
	}
	return &Manager{box: box, signingKey: signingKey, opts: opts, now: time.Now}, nil
}

// SetClock overrides the time source used for expiry.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

func (m *Manager) CookieName() string {
	return m.opts.CookieName
}

// Save seals d into the response cookie.
func (m *Manager) Save(w http.ResponseWriter, d Data) error {
	now := m.now()
	c := claims{
		UID:      d.UID,
		Username: d.Username,
		Password: d.Password,
		LoggedIn: d.LoggedIn,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.opts.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.signingKey)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	sealed, err := m.box.Encrypt([]byte(signed))
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}
	http.SetCookie(w, m.cookie(sealed, int(m.opts.TTL/time.Second)))
	return nil
}

// Load returns the session carried by r. A missing cookie yields
// ErrNoSession; anything that fails to unseal or has expired yields
// ErrInvalidSession.
func (m *Manager) Load(r *http.Request) (Data, error) {
	ck, err := r.Cookie(m.opts.CookieName)
	if err != nil || ck.Value == "" {
		return Data{}, ErrNoSession
	}
	raw, err := m.box.Decrypt(ck.Value)
	if err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	var c claims
	_, err = jwt.ParseWithClaims(string(raw), &c, func(*jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !c.LoggedIn || c.UID <= 0 {
		return Data{}, ErrNoSession
	}
	return Data{UID: c.UID, Username: c.Username, Password: c.Password, LoggedIn: true}, nil
}

// Destroy expires the session cookie.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1))
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: m.opts.SameSite,
	}
}
