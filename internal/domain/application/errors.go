package application

import "errors"

var (
	ErrNotFound             = errors.New("application not found")
	ErrDuplicateApplication = errors.New("applicant already has an active application")
	ErrPhaseNotReady        = errors.New("predecessor phase not completed")
	ErrPhaseInProgress      = errors.New("phase is already in progress")
	ErrPhaseFrozen          = errors.New("application progression is frozen")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrUnknownPhase         = errors.New("unknown phase")
	ErrNoDecision           = errors.New("phase has no decision payload")
	ErrValidation           = errors.New("validation failed")
)
