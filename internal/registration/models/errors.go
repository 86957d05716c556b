package models

import dErrors "misiones/pkg/domain-errors"

var (
	ErrSiteInactive          = dErrors.New(dErrors.CodeConflict, "site is not accepting registrations")
	ErrDuplicateRegistration = dErrors.New(dErrors.CodeConflict, "a registration with this document number already exists for the site")
	ErrRegistrationNotFound  = dErrors.New(dErrors.CodeNotFound, "registration not found")
	ErrAlreadyCancelled      = dErrors.New(dErrors.CodeConflict, "registration is already cancelled")
	ErrRegistrationCancelled = dErrors.New(dErrors.CodeConflict, "registration is cancelled")
	ErrNotWaitlisted         = dErrors.New(dErrors.CodeInvariantViolation, "only waitlisted registrations can be promoted")
	ErrNotCancelled          = dErrors.New(dErrors.CodeInvariantViolation, "registration must be cancelled before deletion")
)
