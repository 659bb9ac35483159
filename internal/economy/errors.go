package economy

import (
	"errors"
	"fmt"
	"strings"
)

// Kind buckets every failure the ledger boundary can produce. The session
// routes on the kind, never on raw status codes: Exhausted opens the payment
// flow, Transient becomes a retryable notice, the rest are user-facing
// messages or blocking states.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindExhausted    Kind = "exhausted"
	KindTransient    Kind = "transient"
	KindConflict     Kind = "conflict"
)

type APIError struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("ledger: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("ledger: %s (status %d): %s", e.Kind, e.Status, e.Message)
}

// classify maps a ledger failure to a Kind. Status drives the bucket, with
// one exception: the ledger reports an empty balance as a plain 400 with
// detail "Insufficient balance", so that detail is what marks Exhausted.
func classify(status int, detail string) Kind {
	switch {
	case status == 401 || status == 403:
		return KindUnauthorized
	case status == 402:
		return KindExhausted
	case status == 400 && strings.EqualFold(detail, "insufficient balance"):
		return KindExhausted
	case status == 404 || status == 409:
		return KindConflict
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindTransient
	}
}

// KindOf extracts the Kind from an error chain. Anything that is not an
// APIError (connectivity loss, timeout, bad payload) counts as Transient.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransient
}

func IsExhausted(err error) bool { return KindOf(err) == KindExhausted }
