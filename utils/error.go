package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

var ErrorAlreadyExists = errors.New("record already exists")

// Lifecycle failures. Every rejected operation surfaces one of these
// verbatim; the engine never partially applies an operation.
var (
	// ErrorInvalidState: the UPL exists but is no longer Active (merged away
	// or consumed), so it cannot be mutated.
	ErrorInvalidState = errors.New("upl is not active")

	// ErrorInvalidQuantity: creation quantity must be strictly positive.
	ErrorInvalidQuantity = errors.New("quantity must be greater than zero")

	// ErrorInvalidSplit: divide requires 0 < target quantity < source
	// quantity. Dividing the full remaining quantity away is a merge,
	// not a divide.
	ErrorInvalidSplit = errors.New("divide quantity must be positive and less than the source quantity")

	// ErrorLocationMismatch: merging UPLs that sit in different locations
	// is a modeling error; move them together first.
	ErrorLocationMismatch = errors.New("upls are not in the same location")

	// ErrorLocationConflict: the caller's location_from is stale; the UPL
	// moved since the caller last read it. Retry with refreshed state.
	ErrorLocationConflict = errors.New("upl is not at the given source location")

	// ErrorNoOpMove: source and destination locations are identical.
	ErrorNoOpMove = errors.New("move source and destination are the same location")

	// ErrorPriceInconsistent: gross != net * (1 + vat) within tolerance.
	ErrorPriceInconsistent = errors.New("net price, vat and gross price do not reconcile")

	// ErrorVersionConflict: optimistic version check failed at commit.
	// Should not happen while a single process owns the UPL; indicates a
	// concurrent writer outside this process.
	ErrorVersionConflict = errors.New("upl was modified concurrently")

	// ErrorInvalidUplCode: a numeric UPL code failed its check-digit
	// validation (mistyped or mislabelled).
	ErrorInvalidUplCode = errors.New("upl code check digit is invalid")
)
