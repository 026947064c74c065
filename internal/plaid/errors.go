package plaid

import (
	"fmt"

	"github.com/Veraticus/plaid-viewer/internal/common"
	"github.com/plaid/plaid-go/v20/plaid"
)

// Plaid error codes that change client behavior.
const (
	codeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// ProviderError is an error reported by the Plaid API.
type ProviderError struct {
	Type      string
	Code      string
	Message   string
	RequestID string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("plaid API error: %s - %s", e.Code, e.Message)
}

// Unwrap exposes the provider sentinel, the rate limit sentinel when it
// applies, and the raw client error.
func (e *ProviderError) Unwrap() []error {
	errs := []error{common.ErrProviderCall}
	if e.RateLimited() {
		errs = append(errs, common.ErrProviderRateLimit)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// RateLimited reports whether the provider rejected the call for rate limiting.
func (e *ProviderError) RateLimited() bool {
	return e.Code == codeRateLimitExceeded
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *ProviderError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &ProviderError{
		Type:      string(plaidErr.ErrorType),
		Code:      plaidErr.ErrorCode,
		Message:   plaidErr.ErrorMessage,
		RequestID: plaidErr.GetRequestId(),
		Err:       err,
	}
}

// wrapError converts a plaid-go error into the application's error taxonomy.
// Rate limited calls are marked retryable.
func wrapError(err error, action string) error {
	if providerErr := extractPlaidError(err); providerErr != nil {
		if providerErr.RateLimited() {
			return &common.RetryableError{Err: providerErr, Retryable: true}
		}
		return providerErr
	}
	return fmt.Errorf("%w: failed to %s: %w", common.ErrProviderCall, action, err)
}
