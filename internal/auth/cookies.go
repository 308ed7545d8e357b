package auth

import (
	"net/http"
	"time"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	// RefreshPath scopes the refresh cookie to the refresh endpoint.
	RefreshPath = "/api/auth/refresh-token"
)

// Cookies writes token cookies with flags that depend on the deployment mode.
type Cookies struct {
	Secure bool
}

func NewCookies(production bool) Cookies {
	return Cookies{Secure: production}
}

func (c Cookies) sameSite() http.SameSite {
	if c.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (c Cookies) cookie(name, value, path string, maxAge time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	}
	if maxAge > 0 {
		ck.MaxAge = int(maxAge.Seconds())
		ck.Expires = time.Now().Add(maxAge)
	} else {
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
	}
	return ck
}

// Set writes both token cookies.
func (c Cookies) Set(w http.ResponseWriter, p Pair) {
	http.SetCookie(w, c.cookie(AccessCookie, p.AccessToken, "/", time.Until(p.AccessExpiresAt)))
	http.SetCookie(w, c.cookie(RefreshCookie, p.RefreshToken, RefreshPath, time.Until(p.RefreshExpiresAt)))
}

// Clear expires both token cookies on their original paths.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessCookie, "", "/", 0))
	http.SetCookie(w, c.cookie(RefreshCookie, "", RefreshPath, 0))
}

// SetState stores the OAuth state for the callback to compare against.
func (c Cookies) SetState(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, c.cookie(name, value, "/", ttl))
}

// ClearState removes the OAuth state cookie.
func (c Cookies) ClearState(w http.ResponseWriter, name string) {
	http.SetCookie(w, c.cookie(name, "", "/", 0))
}
