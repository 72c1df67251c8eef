package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"inkwell/auth"
	"inkwell/domain"
)

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type signupRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Signup registers an account and signs the caller in.
// POST /api/auth/signup
func (h *Handler) Signup(c echo.Context) error {
	if h.Environment != "dev" && !h.EnableSignup {
		return echo.NewHTTPError(http.StatusForbidden, "Sign up has been disabled")
	}

	req := new(signupRequest)
	if err := c.Bind(req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := h.Users.CreateUser(c.Request().Context(), user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return echo.NewHTTPError(http.StatusConflict, "Email already in use")
		}
		return err
	}

	token, err := auth.GenerateToken(user.ID, []byte(h.JWTSecret), auth.TokenTTL)
	if err != nil {
		return err
	}
	c.SetCookie(h.sessionCookie(token))
	return c.JSON(http.StatusCreated, echo.Map{"user": toUserResponse(user), "token": token})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords are indistinguishable to the caller.
// POST /api/auth/login
func (h *Handler) Login(c echo.Context) error {
	req := new(loginRequest)
	if err := c.Bind(req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	user, err := h.Users.UserByEmail(c.Request().Context(), req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	token, err := auth.GenerateToken(user.ID, []byte(h.JWTSecret), auth.TokenTTL)
	if err != nil {
		return err
	}
	c.SetCookie(h.sessionCookie(token))
	return c.JSON(http.StatusOK, echo.Map{"user": toUserResponse(user), "token": token})
}

// Logout clears the session cookie.
// POST /api/auth/logout
func (h *Handler) Logout(c echo.Context) error {
	c.SetCookie(expiredCookie())
	return c.NoContent(http.StatusNoContent)
}

// Me reports the caller's account, or null when anonymous.
// GET /api/auth/me
func (h *Handler) Me(c echo.Context) error {
	id := h.optionalUserID(c)
	if id == "" {
		return c.JSON(http.StatusOK, echo.Map{"user": nil})
	}
	user, err := h.Users.UserByID(c.Request().Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusOK, echo.Map{"user": nil})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserResponse(user)})
}
