package sales

import "errors"

// Error taxonomy for the sale and payment paths. Handlers map these onto
// HTTP statuses so the client can tell "fix your input" from "provider is
// down, try again" from "internal failure".
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrUpstream    = errors.New("payment provider unavailable")
	ErrPersistence = errors.New("storage failure")
)
