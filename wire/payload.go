// Package wire implements the six dBFT payload kinds and their signed
// envelope, generalizing this codebase's ad-hoc tmjson-encoded Proposal/Vote
// messages (consensus/reactor.go) into one deterministic binary codec.
package wire

import (
	"time"

	tmjson "github.com/tendermint/tendermint/libs/json"

	"dualbft/types"
)

// Registered so the recovery log (which persists *Envelope values keyed by
// the Payload interface) can round-trip them through tmjson, the same way
// blskey registers its key types.
func init() {
	tmjson.RegisterType(&PrepareRequestPayload{}, "dualbft/PrepareRequest")
	tmjson.RegisterType(&PrepareResponsePayload{}, "dualbft/PrepareResponse")
	tmjson.RegisterType(&ChangeViewPayload{}, "dualbft/ChangeView")
	tmjson.RegisterType(&CommitPayload{}, "dualbft/Commit")
	tmjson.RegisterType(&RecoveryRequestPayload{}, "dualbft/RecoveryRequest")
	tmjson.RegisterType(&RecoveryMessagePayload{}, "dualbft/RecoveryMessage")
}

// PayloadKind tags the six dBFT message bodies.
type PayloadKind byte

const (
	KindPrepareRequest PayloadKind = iota + 1
	KindPrepareResponse
	KindChangeView
	KindCommit
	KindRecoveryRequest
	KindRecoveryMessage
)

func (k PayloadKind) String() string {
	switch k {
	case KindPrepareRequest:
		return "PrepareRequest"
	case KindPrepareResponse:
		return "PrepareResponse"
	case KindChangeView:
		return "ChangeView"
	case KindCommit:
		return "Commit"
	case KindRecoveryRequest:
		return "RecoveryRequest"
	case KindRecoveryMessage:
		return "RecoveryMessage"
	default:
		return "Unknown"
	}
}

// ChangeViewReason explains why a validator asked to move to the next view.
type ChangeViewReason byte

const (
	ReasonTimeout ChangeViewReason = iota + 1
	ReasonTxInvalid
	ReasonTxRejectedByPolicy
)

func (r ChangeViewReason) String() string {
	switch r {
	case ReasonTimeout:
		return "Timeout"
	case ReasonTxInvalid:
		return "TxInvalid"
	case ReasonTxRejectedByPolicy:
		return "TxRejectedByPolicy"
	default:
		return "Unknown"
	}
}

// Payload is the kind-specific body of an envelope.
type Payload interface {
	Kind() PayloadKind
}

type PrepareRequestPayload struct {
	SlotID    types.SlotID
	Timestamp time.Time
	Nonce     uint64
	TxHashes  []types.Hash
}

func (PrepareRequestPayload) Kind() PayloadKind { return KindPrepareRequest }

type PrepareResponsePayload struct {
	SlotID             types.SlotID
	PrepareRequestHash types.Hash
}

func (PrepareResponsePayload) Kind() PayloadKind { return KindPrepareResponse }

type ChangeViewPayload struct {
	Reason    ChangeViewReason
	NewView   types.View
	Timestamp time.Time
}

func (ChangeViewPayload) Kind() PayloadKind { return KindChangeView }

type CommitPayload struct {
	SlotID    types.SlotID
	Signature []byte
}

func (CommitPayload) Kind() PayloadKind { return KindCommit }

type RecoveryRequestPayload struct {
	Timestamp time.Time
}

func (RecoveryRequestPayload) Kind() PayloadKind { return KindRecoveryRequest }

// RecoveryMessagePayload bundles enough proofs from the sender's own view
// of (H,*) to bootstrap a lagging peer.
type RecoveryMessagePayload struct {
	ChangeViews      []*Envelope
	PrepareRequest   *Envelope
	PrepareResponses []*Envelope
	Commits          []*Envelope
}

func (RecoveryMessagePayload) Kind() PayloadKind { return KindRecoveryMessage }
