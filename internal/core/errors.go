package core

import "errors"

// Errors shared by the services. Handlers map them to HTTP statuses with
// errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrUpstream           = errors.New("upstream service failed")
	ErrAuthenticity       = errors.New("request authenticity could not be verified")
	ErrUserNotFound       = errors.New("user not found")
	ErrPrepNotFound       = errors.New("prep not found")
	ErrProfileDataMissing = errors.New("profile data not found")
	ErrForbidden          = errors.New("user does not have permission for this action")
	ErrPrepLimitReached   = errors.New("monthly prep limit reached for the free plan")
	ErrNoBillingCustomer  = errors.New("user does not have a billing customer")
	ErrPromptNotFound     = errors.New("system prompt not found")
)

// ValidationError carries a message that is returned to the client verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// UpstreamError wraps a failure of the payments provider, the document store
// or the analysis webhook. Message is safe to show to the client.
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }
