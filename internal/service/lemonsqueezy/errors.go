package lemonsqueezy

import "errors"

var (
	ErrMissingLsIDs        = errors.New("tour is missing lemon squeezy product or variant id")
	ErrPaymentNotCompleted = errors.New("payment has not completed")
	ErrInvalidOrderData    = errors.New("invalid order data in webhook")
)

// errInvalidSubscriptionShape is recorded on the event row, not returned:
// a malformed subscription payload is accepted and logged so the provider
// does not retry it forever.
var errInvalidSubscriptionShape = errors.New("Invalid subscription webhook payload structure")
