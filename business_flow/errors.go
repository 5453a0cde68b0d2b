// Package businessflow contains the business logic for ad selection storage.
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Ad selection lookup errors
	ErrAdSelectionNotFound      = errors.New("ad selection not found")
	ErrAdSelectionIDTaken       = errors.New("ad selection id already exists")
	ErrReportingDataNotFound    = errors.New("reporting data not found")
	ErrWinningBuyerNotFound     = errors.New("winning buyer not found")
	ErrHistogramInfoNotFound    = errors.New("histogram info not found")
	ErrInitializationNotFound   = errors.New("ad selection initialization not found")
	ErrResultWithoutInitialized = errors.New("result persisted without initialization")
)

// BusinessError represents a structured business logic error
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

// Error checking helper functions

func IsAdSelectionNotFound(err error) bool {
	return errors.Is(err, ErrAdSelectionNotFound)
}

func IsAdSelectionIDTaken(err error) bool {
	return errors.Is(err, ErrAdSelectionIDTaken)
}

func IsReportingDataNotFound(err error) bool {
	return errors.Is(err, ErrReportingDataNotFound)
}

func IsHistogramInfoNotFound(err error) bool {
	return errors.Is(err, ErrHistogramInfoNotFound)
}

func IsInitializationNotFound(err error) bool {
	return errors.Is(err, ErrInitializationNotFound)
}

func IsResultWithoutInitialized(err error) bool {
	return errors.Is(err, ErrResultWithoutInitialized)
}
