package helpers

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type CryptoFolioError struct {
	Message string
	Cause   error
}

func (e *CryptoFolioError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CryptoFolioError) Unwrap() error {
	return e.Cause
}

// Helper to define distinct error types for type assertions if needed
type AuthError struct{ CryptoFolioError }
type NetworkError struct{ CryptoFolioError }
type StreamError struct{ CryptoFolioError }
type StorageError struct{ CryptoFolioError }
type ValidationError struct{ CryptoFolioError }

// -----------------------------------------------------------------------------

func NewAuthError(message string, cause error) *AuthError {
	return &AuthError{CryptoFolioError{Message: message, Cause: cause}}
}

func NewNetworkError(message string, cause error) *NetworkError {
	return &NetworkError{CryptoFolioError{Message: message, Cause: cause}}
}

func NewStreamError(message string, cause error) *StreamError {
	return &StreamError{CryptoFolioError{Message: message, Cause: cause}}
}

func NewStorageError(message string, cause error) *StorageError {
	return &StorageError{CryptoFolioError{Message: message, Cause: cause}}
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{CryptoFolioError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		fmt.Printf("Warning: Attempt %d/%d failed for %s: %v. Retrying in %v\n", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return nil, lastErr
}
