// Package models contains domain entities and persistence models for the ad selection storage system
package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validation error constants. These are raised at construction or validation
// time, before an entity ever reaches storage.
var (
	ErrMissingAdSelectionID             = errors.New("ad selection id is required and must be nonzero")
	ErrMissingCallerPackageName         = errors.New("caller package name is required")
	ErrMissingBiddingLogicURI           = errors.New("bidding logic uri is required")
	ErrMissingAdSelection               = errors.New("ad selection record is required")
	ErrContextualEntryWithDecisionLogic = errors.New("contextual entry must not carry buyer decision logic")
	ErrMissingSeller                    = errors.New("seller is required")
	ErrMissingReportingURIs             = errors.New("reporting data needs reporting uris or computation data")
	ErrMissingDebugToken                = errors.New("debug token is required")
	ErrMissingCoordinatorURL            = errors.New("coordinator url is required")
	ErrMissingKeyIdentifier             = errors.New("key identifier is required")
	ErrMissingInteractionKey            = errors.New("interaction key is required")
	ErrMissingReportingURI              = errors.New("interaction reporting uri is required")
)

var validate = validator.New()

// ValidateAdSelection enforces the construction-time invariants of an
// AdSelection record. Field-level requirements come from the validate tags;
// the tag failures are mapped onto the sentinel errors above so callers can
// classify them with errors.Is.
func ValidateAdSelection(adSelection *AdSelection) error {
	if adSelection == nil {
		return ErrMissingAdSelection
	}
	if err := validate.Struct(adSelection); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				switch fe.Field() {
				case "AdSelectionID":
					return ErrMissingAdSelectionID
				case "CallerPackageName":
					return ErrMissingCallerPackageName
				case "BiddingLogicURI":
					return ErrMissingBiddingLogicURI
				}
			}
		}
		return fmt.Errorf("invalid ad selection: %w", err)
	}
	return nil
}

func IsMissingCallerPackageName(err error) bool {
	return errors.Is(err, ErrMissingCallerPackageName)
}

func IsMissingBiddingLogicURI(err error) bool {
	return errors.Is(err, ErrMissingBiddingLogicURI)
}

func IsContextualEntryWithDecisionLogic(err error) bool {
	return errors.Is(err, ErrContextualEntryWithDecisionLogic)
}
