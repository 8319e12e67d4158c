package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
)

const (
	msgUnavailable        = "Backend service unavailable"
	msgInvalidCredentials = "Invalid credentials. Please try again."
	msgSessionExpired     = "Your session has expired. Please log in again."
	msgForbidden          = "You don't have permission to perform this action."
	msgNotFound           = "The requested resource was not found."
	msgServerError        = "Server error. Please try again later."
	msgServiceUnavailable = "Service temporarily unavailable. Please try again later."
	msgGeneric            = "An error occurred. Please try again."
)

// transportError classifies a failed round trip. Caller cancellation is kept
// distinct from connectivity failures so it never triggers a fallback.
func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "Request timed out. Please try again.")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "Request was canceled.")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, msgUnavailable)
}

// statusError maps a non-2xx backend response to an AppError.
func statusError(status int, op opKind, body []byte) error {
	switch status {
	case http.StatusUnauthorized:
		msg := msgSessionExpired
		if op == opCredentials {
			msg = msgInvalidCredentials
		}
		return &apperrors.AppError{Code: apperrors.ErrCodeUnauthorized, Message: msg, Status: status}
	case http.StatusForbidden:
		return &apperrors.AppError{Code: apperrors.ErrCodeForbidden, Message: msgForbidden, Status: status}
	case http.StatusNotFound:
		return apperrors.Remote(status, msgNotFound)
	case http.StatusInternalServerError:
		return apperrors.Remote(status, msgServerError)
	case http.StatusServiceUnavailable:
		return apperrors.Remote(status, msgServiceUnavailable)
	}
	if detail := backendDetail(body); detail != "" {
		return apperrors.Remote(status, detail)
	}
	return apperrors.Remote(status, msgGeneric)
}

// backendDetail extracts a human message from common error payload shapes.
func backendDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var detail string
	if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil && strings.TrimSpace(detail) != "" {
		return strings.TrimSpace(detail)
	}
	for _, s := range []string{payload.Message, payload.Error} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
