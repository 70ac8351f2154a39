// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package) and the translation of
// service errors into them. Clients are expected to branch on the code; the
// "error" field is for humans.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "conflict",
//	  "error": "email already registered"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/chatproxy/internal/http/middleware"
	"github.com/tbourn/chatproxy/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"

	// ErrCodeModel reports a failed upstream language model call.
	ErrCodeModel = "model_error"
)

// failErr maps a service error onto the error envelope.
//
//	validation            -> 400 bad_request
//	bad credentials/login -> 401 unauthorized
//	duplicate email       -> 409 conflict
//	model failure         -> 502 model_error
//	anything else         -> 500 internal_error
func failErr(c *gin.Context, err error) {
	switch {
	case services.IsValidation(err):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrUnauthenticated):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
	case errors.Is(err, services.ErrEmailExists):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrModel):
		middleware.LoggerFrom(c).Error().Err(err).Msg("model call failed")
		fail(c, http.StatusBadGateway, ErrCodeModel, "model request failed")
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("request failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
