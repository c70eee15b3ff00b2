package consensus

import "github.com/pkg/errors"

// Sentinel errors returned by Context's Make* methods or logged by
// Service's inbound handlers. They are returned and logged as-is, without
// wrapping.
var (
	errNoPrepareRequest = errors.New("no accepted prepare-request for this slot")
	errNoHeader         = errors.New("slot header not resolved yet")

	// ErrProtocolViolation marks a message whose fields are internally
	// consistent but whose sender broke the protocol (e.g. two distinct
	// prepare-requests for the same slot from the same primary). The
	// service logs these and may later use them to build evidence; it
	// never returns them to the caller as fatal.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrVerificationFailure marks an envelope that failed signature or
	// business-rule verification and must be dropped silently.
	ErrVerificationFailure = errors.New("verification failure")

	// ErrStaleRound marks a message for a (height, view) the local
	// validator has already moved past.
	ErrStaleRound = errors.New("stale round")

	// ErrIrrecoverable marks a failure the service cannot continue past,
	// e.g. the recovery log or ledger store returning an I/O error.
	ErrIrrecoverable = errors.New("irrecoverable consensus failure")
)
