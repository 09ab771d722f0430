package tours

import "errors"

var (
	ErrTourNotFound      = errors.New("tour not found")
	ErrMissingLsIDs      = errors.New("lemon squeezy product and variant ids are required")
	ErrInvalidSeatCount  = errors.New("available seats must be at least 0")
	ErrInvalidPriceCents = errors.New("price must be greater than 0")
)
