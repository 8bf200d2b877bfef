package service

import "errors"

// Domain errors surfaced to the HTTP layer. The api package maps these
// to status codes; none of them abort request handling.
var (
	// validation
	ErrValidation          = errors.New("invalid input")
	ErrInvalidParticipants = errors.New("participants must be at least 1")
	ErrInvalidPhone        = errors.New("phone number must look like 07XXXXXXXX, 7XXXXXXXX or 2547XXXXXXXX")

	// booking ledger
	ErrTourNotAvailable = errors.New("tour is not open for booking")
	ErrCapacityExceeded = errors.New("not enough spots left on this tour")
	ErrAlreadyPaid      = errors.New("booking has already been paid")
	ErrNotBookingOwner  = errors.New("booking belongs to another user")

	// gateway
	ErrGatewayAuth     = errors.New("payment gateway authentication failed")
	ErrGatewayRejected = errors.New("payment gateway rejected the push request")

	// auth
	ErrUsernameTaken      = errors.New("username is already registered")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("incorrect username or password")
)
