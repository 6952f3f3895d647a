package preferences

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

type httpKey struct{}

type httpPair struct {
	r *http.Request
	w http.ResponseWriter
}

// WithHTTP attaches the current request and response so the cookie tier can
// read and set cookies.
func WithHTTP(ctx context.Context, r *http.Request, w http.ResponseWriter) context.Context {
	return context.WithValue(ctx, httpKey{}, httpPair{r: r, w: w})
}

func httpFromContext(ctx context.Context) (httpPair, bool) {
	pair, ok := ctx.Value(httpKey{}).(httpPair)
	return pair, ok && pair.r != nil
}

// CookieBackend stores preferences in a browser cookie. It is only active
// when the request carries the functional-consent cookie set to "true".
type CookieBackend struct {
	name          string
	consentCookie string
	maxAge        time.Duration
}

// NewCookieBackend builds the cookie tier.
func NewCookieBackend(name, consentCookie string) *CookieBackend {
	return &CookieBackend{name: name, consentCookie: consentCookie, maxAge: 365 * 24 * time.Hour}
}

// Name implements Backend.
func (c *CookieBackend) Name() string { return "cookie" }

func (c *CookieBackend) consented(r *http.Request) bool {
	cookie, err := r.Cookie(c.consentCookie)
	return err == nil && cookie.Value == "true"
}

// Load implements Backend.
func (c *CookieBackend) Load(ctx context.Context, _ string) (Preferences, bool, error) {
	pair, ok := httpFromContext(ctx)
	if !ok || !c.consented(pair.r) {
		return Preferences{}, false, ErrUnavailable
	}
	cookie, err := pair.r.Cookie(c.name)
	if err != nil {
		return Preferences{}, false, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return Preferences{}, false, fmt.Errorf("decode preference cookie: %w", err)
	}
	return decode(data)
}

// Save implements Backend.
func (c *CookieBackend) Save(ctx context.Context, _ string, prefs Preferences) error {
	pair, ok := httpFromContext(ctx)
	if !ok || pair.w == nil || !c.consented(pair.r) {
		return ErrUnavailable
	}
	data, err := encode(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	http.SetCookie(pair.w, &http.Cookie{
		Name:     c.name,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
