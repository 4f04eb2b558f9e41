package inventory

import (
	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
)

// Sentinel errors returned by the inventory service. Callers match them with
// errors.Is; copies carrying details still match.
var (
	ErrNotFound                   = pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	ErrReservationNotFound        = pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
	ErrDuplicateSKU               = pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
	ErrDuplicateProduct           = pkgerrors.New(pkgerrors.CodeConflict, "inventory item already exists for product")
	ErrInsufficientStock          = pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for deduction")
	ErrInsufficientAvailableStock = pkgerrors.New(pkgerrors.CodeConflict, "insufficient available stock for reservation")
	ErrReservationNotActive       = pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not active")
	ErrUpstreamValidation         = pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
)

func withDetails(sentinel *pkgerrors.Error, details map[string]any) *pkgerrors.Error {
	return sentinel.Clone().WithDetails(details)
}

func validationError(msg string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg)
}
