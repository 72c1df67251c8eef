// Package handler exposes the REST API: post CRUD and feed, auth, uploads.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"inkwell/auth"
	"inkwell/domain"
	"inkwell/posts"
)

// UserStore is the account persistence the handlers need; store.DB and
// store.Memory both implement it.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	UserByID(ctx context.Context, id string) (*domain.User, error)
}

type Handler struct {
	Posts        *posts.Service
	Users        UserStore
	JWTSecret    string
	Environment  string
	EnableSignup bool
	UploadDir    string
}

// Validator adapts go-playground/validator to echo's Validator interface.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// RequireAuth rejects requests without a valid bearer token or session
// cookie. The bearer header wins when both are present.
func (h *Handler) RequireAuth() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(h.JWTSecret),
		TokenLookup: "header:Authorization:Bearer ,cookie:" + auth.CookieName,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		},
	})
}

// userID reads the authenticated user's id set by RequireAuth.
func userID(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(*auth.Claims)
	if !ok {
		return ""
	}
	return claims.UserID
}

// currentUser resolves the request identity to a live account. A token
// referencing a deleted account does not authenticate.
func (h *Handler) currentUser(c echo.Context) (*domain.User, error) {
	id := userID(c)
	if id == "" {
		return nil, domain.ErrUnauthorized
	}
	u, err := h.Users.UserByID(c.Request().Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	return u, err
}

// optionalUserID resolves the identity if one is presented, and proceeds
// anonymously otherwise. Used on routes that never require auth.
func (h *Handler) optionalUserID(c echo.Context) string {
	raw := ""
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		raw = strings.TrimSpace(authz[7:])
	}
	if raw == "" {
		if cookie, err := c.Cookie(auth.CookieName); err == nil {
			raw = cookie.Value
		}
	}
	if raw == "" {
		return ""
	}
	id, err := auth.UserIDFromToken(raw, []byte(h.JWTSecret))
	if err != nil {
		return ""
	}
	return id
}

func (h *Handler) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.Environment != "dev",
		Expires:  time.Now().Add(auth.TokenTTL),
	}
}

func expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(-time.Second),
		MaxAge:   -1,
	}
}
