package booking

import "errors"

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrTourNotFound      = errors.New("tour not found")
	ErrNotEnoughSeats    = errors.New("not enough available seats for this tour")
	ErrPaidBookingDelete = errors.New("paid bookings cannot be deleted")
	ErrAlreadyCompleted  = errors.New("booking is already completed")
	ErrNotConfirmed      = errors.New("only confirmed bookings can be completed")
	ErrInvalidPeople     = errors.New("number of people must be at least 1")
	ErrBookingFinalized  = errors.New("cancelled or completed bookings cannot be modified")
)
