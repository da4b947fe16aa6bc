package internal

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized     ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden        ErrorType = "FORBIDDEN"
	ErrorTypeConflict         ErrorType = "CONFLICT"
	ErrorTypeInternal         ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal         ErrorType = "EXTERNAL_ERROR"
	ErrorTypeSignatureInvalid ErrorType = "SIGNATURE_INVALID"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidID        ErrorCode = "INVALID_ID"

	// checkout
	ErrCodePricingConfigIDRequired ErrorCode = "pricing_config_id_required"
	ErrCodeCustomerEmailRequired   ErrorCode = "customer_email_required"
	ErrCodeCustomerNameRequired    ErrorCode = "customer_name_required"
	ErrCodeInvalidCurrency         ErrorCode = "invalid_currency_only_eur_supported"
	ErrCodePricingConfigNotFound   ErrorCode = "pricing_config_not_found"
	ErrCodePaymentRecordNotFound   ErrorCode = "payment_record_not_found"
	ErrCodeSessionAlreadyCompleted ErrorCode = "session_already_completed"
	ErrCodePaymentProvider         ErrorCode = "payment_provider_error"

	// routing
	ErrCodeOriginMissing         ErrorCode = "origin_or_referer_missing"
	ErrCodeUnknownFrontendDomain ErrorCode = "unknown_frontend_domain"
	ErrCodeUnknownVertical       ErrorCode = "unknown_vertical"

	// webhooks
	ErrCodeSignatureInvalid ErrorCode = "signature_invalid"
	ErrCodeEventParseFailed ErrorCode = "event_parse_failed"

	// catalog
	ErrCodePresentationTypeNotFound ErrorCode = "presentation_type_not_found"
	ErrCodeAccommodationNotFound    ErrorCode = "accommodation_not_found"
	ErrCodeAccommodationInUse       ErrorCode = "accommodation_in_use"

	// admin
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeAdminOnly    ErrorCode = "ADMIN_ONLY"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			messages := make([]string, len(validationErrors.Errors))
			for i, err := range validationErrors.Errors {
				messages[i] = err.Message
			}
			return strings.Join(messages, "; ")
		}
	}
	return e.Message
}

// FirstCode returns the code of the first field error, or the error's own code.
func (e *AppError) FirstCode() ErrorCode {
	if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
		return ErrorCode(validationErrors.Errors[0].Code)
	}
	return e.Code
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewPaymentProviderError reports a failed or timed-out call to the payment provider.
// Nothing has been persisted when it is returned, so the whole operation can be retried.
func NewPaymentProviderError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       ErrCodePaymentProvider,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

func NewSignatureInvalidError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeSignatureInvalid,
		Code:       ErrCodeSignatureInvalid,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

var (
	ErrPricingConfigNotFound = NewNotFoundError("Pricing config not found", ErrCodePricingConfigNotFound)
	ErrPaymentRecordNotFound = NewNotFoundError("Payment record not found", ErrCodePaymentRecordNotFound)
	ErrSessionCompleted      = NewConflictError("Checkout session already completed", ErrCodeSessionAlreadyCompleted)
	ErrOriginMissing         = NewValidationError("origin_or_referer_missing", ErrCodeOriginMissing)
	ErrUnknownFrontendDomain = NewValidationError("unknown_frontend_domain", ErrCodeUnknownFrontendDomain)
	ErrUnknownVertical       = NewValidationError("unknown_vertical", ErrCodeUnknownVertical)

	ErrInvalidToken = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrAdminOnly    = NewForbiddenError("Admin role required", ErrCodeAdminOnly)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Type == t
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
