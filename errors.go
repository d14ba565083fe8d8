package lnproxy

import "errors"

// Errors that fail the synchronous wrap operation. They are surfaced to the
// caller verbatim and never retried: a failure before the hold invoice exists
// puts no funds at risk.
var (
	// ErrAmpNotSupported is returned when the invoice to wrap advertises
	// the AMP feature bit.
	ErrAmpNotSupported = errors.New("cannot wrap AMP invoice")

	// ErrConflictingDescription is returned when both a description and a
	// description hash override are supplied.
	ErrConflictingDescription = errors.New(
		"cannot set both description and description hash")

	// ErrMissingAmount is returned when the invoice to wrap has no amount.
	ErrMissingAmount = errors.New("invoice must have a value")

	// ErrCltvTooHigh is returned when the estimated route requires a time
	// lock beyond the maximum this node is willing to commit to.
	ErrCltvTooHigh = errors.New(
		"cltv expiry too high from estimate of routing fees")

	// ErrValueOverflow is returned when adding the fee budget to the
	// invoice amount wraps around.
	ErrValueOverflow = errors.New("wrapped invoice value overflow")

	// ErrRoutingBudgetTooLow is returned when a caller-specified routing
	// budget does not cover the routing fee plus the minimum margin.
	ErrRoutingBudgetTooLow = errors.New("routing fee budget too low")

	// ErrExpirationTooClose is returned when the invoice to wrap expires
	// too soon to safely issue an outer invoice for it.
	ErrExpirationTooClose = errors.New(
		"payment request expiration is too close")
)
