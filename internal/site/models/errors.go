package models

import dErrors "misiones/pkg/domain-errors"

var (
	ErrSiteNotFound           = dErrors.New(dErrors.CodeNotFound, "site not found")
	ErrSiteNameTaken          = dErrors.New(dErrors.CodeConflict, "site name must be unique")
	ErrCapacityBelowConfirmed = dErrors.New(dErrors.CodeConflict, "capacity cannot be lower than the confirmed registrations")
)
