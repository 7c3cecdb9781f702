package services

import "errors"

// Error categories surfaced to the API layer. Handlers map these onto HTTP
// statuses; everything else is treated as an internal failure.
var (
	// ErrNotFound marks lookups for products, groups, users or
	// subscriptions that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks requests that would violate a uniqueness rule,
	// such as a second open subscription for the same user and product
	// or a group already mapped to another product.
	ErrConflict = errors.New("conflict")

	// ErrNoGroupMapping is returned when a subscription is requested for
	// a product that has no active Telegram group mapped to it.
	ErrNoGroupMapping = errors.New("product is not mapped to a Telegram group")

	// ErrGateway marks Telegram platform calls that failed or timed out.
	// Synchronous callers surface these as an upstream failure, distinct
	// from local persistence errors.
	ErrGateway = errors.New("gateway failure")
)
