package reconcile

import "errors"

var (
	ErrMutationInFlight  = errors.New("mutation_in_flight")
	ErrNoLocalPlayer     = errors.New("no_local_player")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrAlreadyOwned      = errors.New("already_owned")
	ErrRetriesExhausted  = errors.New("retries_exhausted")
	ErrStaleEpoch        = errors.New("stale_epoch")
)
