package model

import (
	"fmt"
	"time"
)

// ValidationError is returned before any network call is attempted.
type ValidationError struct {
	Field  string
	Reason string
	Value  string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// TimeoutError reports that a strategy deadline elapsed. It is unrelated to
// HTTP timeouts, which surface as transport errors.
type TimeoutError struct {
	Strategy string
	Symbol   string
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s: no leg resolved within %s", e.Strategy, e.Symbol, e.After)
}

// CompensationFailure wraps a failed best-effort cleanup (a cancel). It is
// logged and never returned as the primary error of a strategy.
type CompensationFailure struct {
	Symbol string
	Leg    string
	Handle OrderHandle
	Err    error
}

func (e *CompensationFailure) Error() string {
	return fmt.Sprintf("cancel %s leg %s (orderId=%d clientOrderId=%s): %v",
		e.Symbol, e.Leg, e.Handle.OrderID, e.Handle.ClientOrderID, e.Err)
}

func (e *CompensationFailure) Unwrap() error { return e.Err }
