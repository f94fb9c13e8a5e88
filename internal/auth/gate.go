package auth

import (
	"slices"

	"bottle-tracking-backend/internal/model"
)

// SessionUser is the authenticated user as seen by the gate.
type SessionUser struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	RoleID  int    `json:"roleId"`
	Account string `json:"account"`
}

// Session is the authentication state a gate decision is made from.
type Session struct {
	User       *SessionUser `json:"user"`
	IsLoggedIn bool         `json:"isLoggedIn"`
	Loading    bool         `json:"loading"`
}

// Anonymous is the session of a request without valid credentials.
var Anonymous = Session{}

// SessionFromClaims builds a logged-in session from validated token claims.
func SessionFromClaims(c *Claims) Session {
	return SessionFromUser(model.User{
		ID:      c.UserID,
		Name:    c.Name,
		Email:   c.Email,
		RoleID:  c.RoleID,
		Account: c.Account,
	})
}

// SessionFromUser builds a logged-in session for a user.
func SessionFromUser(u model.User) Session {
	return Session{
		User: &SessionUser{
			ID:      u.ID,
			Name:    u.Name,
			Email:   u.Email,
			Role:    u.RoleName(),
			RoleID:  u.RoleID,
			Account: u.Account,
		},
		IsLoggedIn: true,
	}
}

// Decision is the outcome of gating a protected resource.
type Decision int

const (
	// DecisionRender allows the protected resource.
	DecisionRender Decision = iota
	// DecisionLoading withholds content until the session is resolved.
	DecisionLoading
	// DecisionRedirectLogin sends an unauthenticated caller to the login route.
	DecisionRedirectLogin
	// DecisionRedirectUnauthorized sends a caller with the wrong role away.
	DecisionRedirectUnauthorized
)

func (d Decision) String() string {
	switch d {
	case DecisionRender:
		return "render"
	case DecisionLoading:
		return "loading"
	case DecisionRedirectLogin:
		return "redirect_login"
	case DecisionRedirectUnauthorized:
		return "redirect_unauthorized"
	}
	return "unknown"
}

// Decide gates a resource on the session. With no required roles any logged-in
// user passes; otherwise the user's role must be one of them.
func Decide(s Session, required ...string) Decision {
	if s.Loading {
		return DecisionLoading
	}
	if !s.IsLoggedIn || s.User == nil {
		return DecisionRedirectLogin
	}
	if len(required) > 0 && !slices.Contains(required, s.User.Role) {
		return DecisionRedirectUnauthorized
	}
	return DecisionRender
}
