package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidToken      = errors.New("INVALID_TOKEN")
	ErrInvalidSupplier   = errors.New("INVALID_SUPPLIER")
	ErrValidation        = errors.New("VALIDATION_ERROR")
	ErrInvalidType       = errors.New("INVALID_TYPE")
	ErrNotFound          = errors.New("NOT_FOUND")
	ErrForbidden         = errors.New("FORBIDDEN")
	ErrAlreadyReplied    = errors.New("ALREADY_REPLIED")
	ErrInvalidAmount     = errors.New("INVALID_AMOUNT")
	ErrPlanNotFound      = errors.New("PLAN_NOT_FOUND")
	ErrPlanInactive      = errors.New("PLAN_INACTIVE")
	ErrGateway           = errors.New("GATEWAY_ERROR")
	ErrPaymentURLMissing = errors.New("PAYMENT_URL_MISSING")
)
