// Package businessflow contains the conversation engine and call handling use cases
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Configuration errors. Fatal to call initiation and never retried.
	ErrConfiguration         = errors.New("configuration error")
	ErrCallerIDNotConfigured = fmt.Errorf("%w: caller id is not configured", ErrConfiguration)
	ErrBaseURLNotConfigured  = fmt.Errorf("%w: public base url is not configured", ErrConfiguration)

	// Not-found errors
	ErrLeadNotFound   = errors.New("lead not found")
	ErrScriptNotFound = errors.New("script not found")

	// Request errors
	ErrLeadIDRequired       = errors.New("lead id is required")
	ErrScriptUpdateRequired = errors.New("at least one field must be provided for update")

	// Dependency errors
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrTelephonyFailed        = errors.New("telephony provider request failed")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsScriptNotFound(err error) bool {
	return errors.Is(err, ErrScriptNotFound)
}

func IsPersistenceUnavailable(err error) bool {
	return errors.Is(err, ErrPersistenceUnavailable)
}

func IsScriptUpdateEmpty(err error) bool {
	return errors.Is(err, ErrScriptUpdateRequired)
}

func IsTelephonyFailed(err error) bool {
	return errors.Is(err, ErrTelephonyFailed)
}

// unavailable tags a store failure so every caller can degrade the same way
func unavailable(err error) error {
	if err == nil || errors.Is(err, ErrPersistenceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
}
