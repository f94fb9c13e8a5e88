package mw

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"bottle-tracking-backend/internal/auth"
	"bottle-tracking-backend/internal/response"
)

const sessionKey = "auth.session"

// Session resolves the caller's session from a bearer token or the session
// cookie and stores it on the context. Invalid credentials yield the anonymous session.
func Session(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := auth.Anonymous
		if tok := tokenFrom(c, cookieName); tok != "" {
			if claims, err := auth.ValidateToken(secret, tok); err == nil {
				s = auth.SessionFromClaims(claims)
			}
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}

func tokenFrom(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

// SessionFrom returns the session stored by Session.
func SessionFrom(c *gin.Context) (auth.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return auth.Anonymous, false
	}
	s, ok := v.(auth.Session)
	return s, ok
}

// Gate protects a page route. Unauthenticated callers are redirected to
// loginPath, callers with the wrong role to unauthorizedPath.
func Gate(loginPath, unauthorizedPath string, required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, _ := SessionFrom(c)
		switch auth.Decide(s, required...) {
		case auth.DecisionRender:
			c.Next()
		case auth.DecisionRedirectLogin:
			c.Redirect(http.StatusFound, loginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
		case auth.DecisionRedirectUnauthorized:
			c.Redirect(http.StatusFound, unauthorizedPath)
			c.Abort()
		default:
			response.Error(c, http.StatusServiceUnavailable, "session is loading")
		}
	}
}

// RequireRole protects an API route, answering 401 or 403 instead of redirecting.
func RequireRole(required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, _ := SessionFrom(c)
		switch auth.Decide(s, required...) {
		case auth.DecisionRender:
			c.Next()
		case auth.DecisionRedirectUnauthorized:
			response.Error(c, http.StatusForbidden, "insufficient permissions")
		case auth.DecisionRedirectLogin:
			response.Error(c, http.StatusUnauthorized, "not authenticated")
		default:
			response.Error(c, http.StatusServiceUnavailable, "session is loading")
		}
	}
}
