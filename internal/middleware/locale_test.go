package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/auth"
	"github.com/sudo-init-do/taskhub/internal/i18n"
)

func localeProxyFixture(t *testing.T) echo.MiddlewareFunc {
	t.Helper()
	cat, err := i18n.Load("en")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return LocaleProxy(cat, []string{"/dashboard"})
}

func runProxy(mw echo.MiddlewareFunc, req *http.Request) (echo.Context, *httptest.ResponseRecorder, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return c, rec, handler(c)
}

func TestLocaleProxyStripsPrefix(t *testing.T) {
	mw := localeProxyFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/es/services", nil)

	c, rec, err := runProxy(mw, req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := req.URL.Path; got != "/services" {
		t.Fatalf("path = %q, want /services", got)
	}
	if got := c.Get("locale"); got != "es" {
		t.Fatalf("locale = %v, want es", got)
	}
}

func TestLocaleProxyNegotiatesFromHeader(t *testing.T) {
	mw := localeProxyFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/services", nil)
	req.Header.Set("Accept-Language", "fr-CA,fr;q=0.9")

	c, _, err := runProxy(mw, req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got := req.URL.Path; got != "/services" {
		t.Fatalf("path rewritten to %q", got)
	}
	if got := c.Get("locale"); got != "fr" {
		t.Fatalf("locale = %v, want fr", got)
	}
}

func TestLocaleProxyRedirectsProtectedWithoutSession(t *testing.T) {
	mw := localeProxyFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/es/dashboard", nil)

	_, rec, err := runProxy(mw, req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/es/login" {
		t.Fatalf("redirect = %q, want /es/login", loc)
	}
}

func TestLocaleProxyAllowsProtectedWithSession(t *testing.T) {
	auth.Init("test-secret", time.Hour)
	token, err := auth.IssueToken("u1", "customer")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	mw := localeProxyFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, rec, err := runProxy(mw, req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
