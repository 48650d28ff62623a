package api

import (
	"errors"
	"net/http"

	"giftmarket/internal/account"
	"giftmarket/internal/engine"
	"giftmarket/internal/notification"
	"giftmarket/internal/order"
)

// ErrorCode represents unified API error codes
type ErrorCode string

const (
	ErrorCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrorCodeInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
	ErrorCodeMissingRequisites  ErrorCode = "MISSING_REQUISITES"
	ErrorCodeSelfTradeForbidden ErrorCode = "SELF_TRADE_FORBIDDEN"
	ErrorCodeAlreadyJoined      ErrorCode = "ALREADY_JOINED"
	ErrorCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrorCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrorCodeCodeSpaceExhausted ErrorCode = "CODE_SPACE_EXHAUSTED"
	ErrorCodeStoreUnavailable   ErrorCode = "STORE_UNAVAILABLE"
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse is the uniform error body
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MapErrorToHTTP maps errors to HTTP status codes and error responses
func MapErrorToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusOK, ErrorResponse{}
	}

	switch {
	case errors.Is(err, account.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, notification.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{
			Code:    string(ErrorCodeNotFound),
			Message: err.Error(),
		}

	case errors.Is(err, engine.ErrMissingRequisites):
		return http.StatusBadRequest, ErrorResponse{
			Code:    string(ErrorCodeMissingRequisites),
			Message: err.Error(),
		}

	case errors.Is(err, engine.ErrSelfTradeForbidden):
		return http.StatusBadRequest, ErrorResponse{
			Code:    string(ErrorCodeSelfTradeForbidden),
			Message: err.Error(),
		}

	case errors.Is(err, engine.ErrAlreadyJoined):
		return http.StatusConflict, ErrorResponse{
			Code:    string(ErrorCodeAlreadyJoined),
			Message: err.Error(),
		}

	case errors.Is(err, account.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{
			Code:    string(ErrorCodeForbidden),
			Message: err.Error(),
		}

	case errors.Is(err, engine.ErrInvalidTransition):
		return http.StatusConflict, ErrorResponse{
			Code:    string(ErrorCodeInvalidTransition),
			Message: err.Error(),
		}

	case errors.Is(err, order.ErrCodeSpaceExhausted):
		return http.StatusServiceUnavailable, ErrorResponse{
			Code:    string(ErrorCodeCodeSpaceExhausted),
			Message: err.Error(),
		}

	case errors.Is(err, engine.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{
			Code:    string(ErrorCodeStoreUnavailable),
			Message: "store unavailable",
		}

	case errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrCurrencyMismatch),
		errors.Is(err, engine.ErrUnknownMode):
		return http.StatusBadRequest, ErrorResponse{
			Code:    string(ErrorCodeInvalidArgument),
			Message: err.Error(),
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Code:    string(ErrorCodeInternalError),
		Message: err.Error(),
	}
}

func invalidArgument(message string) (int, ErrorResponse) {
	return http.StatusBadRequest, ErrorResponse{
		Code:    string(ErrorCodeInvalidArgument),
		Message: message,
	}
}
