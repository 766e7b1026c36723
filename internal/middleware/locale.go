package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/auth"
	"github.com/sudo-init-do/taskhub/internal/i18n"
)

// LocaleProxy inspects the request path for a locale prefix, negotiates the
// locale when no prefix is present, and requires a session for a fixed set of
// protected path prefixes. Unauthenticated requests to protected paths are
// redirected to the locale-qualified login path.
//
// Registered with e.Pre so the locale prefix is stripped before routing.
func LocaleProxy(cat *i18n.Catalog, protectedPrefixes []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			p := req.URL.Path

			locale := ""
			if seg, rest, ok := firstSegment(p); ok && cat.Has(seg) {
				locale = seg
				req.URL.Path = rest
				p = rest
			}
			if locale == "" {
				locale = cat.Match(req.Header.Get("Accept-Language"))
			}
			c.Set("locale", locale)

			for _, prefix := range protectedPrefixes {
				if strings.HasPrefix(p, prefix) {
					if !hasValidSession(c) {
						return c.Redirect(http.StatusFound, "/"+locale+"/login")
					}
					break
				}
			}

			return next(c)
		}
	}
}

func firstSegment(p string) (seg, rest string, ok bool) {
	trimmed := strings.TrimPrefix(p, "/")
	if trimmed == "" {
		return "", "", false
	}
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i], "/" + trimmed[i+1:], true
	}
	return trimmed, "/", true
}

func hasValidSession(c echo.Context) bool {
	header := c.Request().Header.Get("Authorization")
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		return false
	}
	claims, err := auth.ParseToken(tokenStr)
	if err != nil {
		return false
	}
	return !auth.IsRevoked(c.Request().Context(), claims.TokenID)
}
