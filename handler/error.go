package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"inkwell/domain"
)

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Message string       `json:"message"`
	Errors  []fieldError `json:"errors,omitempty"`
	Detail  string       `json:"detail,omitempty"`
}

// HTTPErrorHandler maps domain and validation errors onto the API's status
// taxonomy and a uniform JSON payload. Diagnostic detail is exposed only
// outside production.
func (h *Handler) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := errorResponse{Message: "Internal Server Error"}

	var httpErr *echo.HTTPError
	var valErrs validator.ValidationErrors
	var domErr *domain.ValidationError

	switch {
	case errors.As(err, &httpErr):
		status = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			body.Message = msg
		} else {
			body.Message = http.StatusText(status)
		}
	case errors.As(err, &valErrs):
		status = http.StatusBadRequest
		body.Message = "Validation failed"
		for _, fe := range valErrs {
			body.Errors = append(body.Errors, fieldError{Field: fe.Field(), Message: "failed " + fe.Tag() + " validation"})
		}
	case errors.As(err, &domErr):
		status = http.StatusBadRequest
		body.Message = "Validation failed"
		body.Errors = []fieldError{{Field: domErr.Field, Message: domErr.Message}}
	case errors.Is(err, domain.ErrUnauthorized):
		status, body.Message = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		status, body.Message = http.StatusForbidden, "Forbidden"
	case errors.Is(err, domain.ErrNotFound):
		status, body.Message = http.StatusNotFound, "Not Found"
	case errors.Is(err, domain.ErrConflict):
		status, body.Message = http.StatusConflict, "Conflict"
	case errors.Is(err, domain.ErrSlugExhausted):
		body.Message = "Could not allocate a unique slug"
	}

	if status >= http.StatusInternalServerError {
		c.Logger().Error(err)
		if h.Environment == "dev" {
			body.Detail = err.Error()
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}
