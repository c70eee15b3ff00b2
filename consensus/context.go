// Package consensus is the dBFT state machine: round Context, Timer,
// RecoveryLog and the Service that drives them. It generalizes
// ConsensusState/RoundState (consensus/state.go,
// consensus/types/round_state.go) from a single proposal slot keyed by a
// logical "Slot" counter into a dual-primary (priority + fallback) round
// context keyed by (Height, View).
package consensus

import (
	"time"

	"github.com/tendermint/tendermint/libs/log"

	"dualbft/types"
	"dualbft/wire"
)

// Params are the consensus engine's configuration knobs.
type Params struct {
	IgnoreRecoveryLogs     bool
	MillisecondsPerBlock   uint32
	PrimaryTimerMultiplier uint32 // fallback primary's delay factor, >= 1
	MaxTxPerBlock          int
	MaxBlockSize           int64
	MaxBlockSystemFee      int64
}

func (p Params) BlockTime() time.Duration {
	return time.Duration(p.MillisecondsPerBlock) * time.Millisecond
}

// SlotState is the per-slot half of a round context: one proposal track,
// its prepare-responses and the transactions resolved so far.
type SlotState struct {
	PrepareRequest     *wire.Envelope
	PrepareRequestHash types.Hash
	Responses          map[int32]*wire.Envelope // by origin validator index
	TxHashes           []types.Hash
	Txs                map[types.TxKey]types.Tx
	Header             *types.Header
}

func newSlotState() *SlotState {
	return &SlotState{
		Responses: make(map[int32]*wire.Envelope),
		Txs:       make(map[types.TxKey]types.Tx),
	}
}

// Resolved reports whether every hash the prepare-request committed to has
// a matching transaction on hand.
func (s *SlotState) Resolved() bool {
	if s.PrepareRequest == nil {
		return false
	}
	return len(s.Txs) == len(s.TxHashes)
}

func (s *SlotState) hasHash(h types.Hash) bool {
	for _, want := range s.TxHashes {
		if want.String() == h.String() {
			return true
		}
	}
	return false
}

// Context is the per-round state: a single owner (the service) mutates it
// directly between handler invocations, with no locking — the service's
// single-threaded event loop excludes concurrent access by construction.
type Context struct {
	ChainID    string
	Validators *types.ValidatorSet
	MyIndex    int32 // -1 when WatchOnly

	Wallet  Wallet
	Clock   Clock
	Mempool Mempool
	Ledger  Ledger
	Params  Params
	Logger  log.Logger

	Height types.Height
	View   types.View
	Role   types.Role

	PrevHash types.Hash

	// PrevHeaderTimestamp is the timestamp of the last committed block's
	// header, the lower bound a prepare-request's own timestamp must
	// clear.
	PrevHeaderTimestamp time.Time

	Slots [2]*SlotState

	Commits         map[int32]*wire.Envelope // by origin validator index
	ChangeViews     map[int32]*wire.Envelope // by origin validator index
	LastSeenMessage map[int32]uint64         // recovery dedup sequence, never reset

	CommitSent                        bool
	BlockSent                         bool
	RequestSentOrReceived             bool
	ResponseSent                      bool
	ViewChanging                      bool
	NotAcceptingPayloadsDueToViewChg  bool

	CountCommitted int
	CountFailed    int

	IsRecovering bool
}

func NewContext(chainID string, validators *types.ValidatorSet, myIndex int32, wallet Wallet, clock Clock, mempool Mempool, ledger Ledger, params Params, logger log.Logger) *Context {
	return &Context{
		ChainID:         chainID,
		Validators:      validators,
		MyIndex:         myIndex,
		Wallet:          wallet,
		Clock:           clock,
		Mempool:         mempool,
		Ledger:          ledger,
		Params:          params,
		Logger:          logger,
		ChangeViews:     make(map[int32]*wire.Envelope),
		Commits:         make(map[int32]*wire.Envelope),
		LastSeenMessage: make(map[int32]uint64),
	}
}

func (c *Context) M() int { return c.Validators.M() }
func (c *Context) F() int { return c.Validators.F() }
func (c *Context) N() int { return c.Validators.Size() }

// Reset rebuilds slot state for (height, newView). When the caller passes
// view 0 this is a new-height transition and commits/change-views are
// cleared; any view > 0 is a same-height view change and the safety-
// critical commit tally survives.
func (c *Context) Reset(height types.Height, view types.View, prevHash types.Hash) {
	newHeight := view == 0
	c.Height = height
	c.View = view

	if newHeight {
		c.PrevHash = prevHash
		c.Commits = make(map[int32]*wire.Envelope)
		c.ChangeViews = make(map[int32]*wire.Envelope)
		c.CommitSent = false
		c.BlockSent = false
		c.CountCommitted = 0
		c.CountFailed = 0
	}

	c.Slots[SlotPriorityIdx] = newSlotState()
	c.Slots[SlotFallbackIdx] = newSlotState()
	c.RequestSentOrReceived = false
	c.ResponseSent = false
	c.ViewChanging = false
	c.NotAcceptingPayloadsDueToViewChg = false

	c.computeRole()
}

const (
	SlotPriorityIdx = 0
	SlotFallbackIdx = 1
)

func (c *Context) slot(id types.SlotID) *SlotState {
	return c.Slots[id]
}

func (c *Context) computeRole() {
	if c.MyIndex < 0 {
		c.Role = types.RoleWatchOnly
		return
	}
	n := c.N()
	p := types.PrimaryIndex(c.Height, c.View, n)
	f := types.FallbackPrimaryIndex(c.Height, c.View, n)
	switch int(c.MyIndex) {
	case p:
		c.Role = types.RolePriorityPrimary
	case f:
		c.Role = types.RoleFallbackPrimary
	default:
		c.Role = types.RoleBackup
	}
}

// MySlot reports which slot (if any) the local validator is primary for
// this view.
func (c *Context) MySlot() (types.SlotID, bool) {
	switch c.Role {
	case types.RolePriorityPrimary:
		return types.SlotPriority, true
	case types.RoleFallbackPrimary:
		return types.SlotFallback, true
	default:
		return 0, false
	}
}

func (c *Context) expectedPrimary(pId types.SlotID) int {
	return types.IndexForSlot(c.Height, c.View, c.N(), pId)
}

// MakePrepareRequest builds and signs a prepare-request for the slot the
// local validator is primary for. The caller must have already checked
// MySlot() matches pId.
func (c *Context) MakePrepareRequest(pId types.SlotID) (*wire.Envelope, error) {
	now := c.Clock.UtcNow()
	minTime := c.Ledger.MedianTime().Add(time.Nanosecond)
	if now.Before(minTime) {
		now = minTime
	}

	txs := c.Mempool.GetOrderedTxs(c.Params.MaxTxPerBlock)
	hashes := make([]types.Hash, len(txs))
	slot := c.slot(pId)
	for i, tx := range txs {
		h := tx.Hash()
		hashes[i] = h
		slot.Txs[types.KeyFromHash(h)] = tx
	}
	slot.TxHashes = hashes

	env := &wire.Envelope{
		Height:         c.Height,
		ValidatorIndex: uint16(c.MyIndex),
		View:           c.View,
		Body: &wire.PrepareRequestPayload{
			SlotID:    pId,
			Timestamp: now,
			Nonce:     uint64(now.UnixNano()),
			TxHashes:  hashes,
		},
	}
	if err := env.Sign(c.Wallet); err != nil {
		return nil, err
	}

	slot.PrepareRequest = env
	slot.PrepareRequestHash = env.BodyHash()
	c.RequestSentOrReceived = true
	c.EnsureHeader(pId)
	return env, nil
}

// MakePrepareResponse signs agreement with slot pId's already-accepted
// prepare-request.
func (c *Context) MakePrepareResponse(pId types.SlotID) (*wire.Envelope, error) {
	slot := c.slot(pId)
	if slot.PrepareRequest == nil {
		return nil, errNoPrepareRequest
	}
	env := &wire.Envelope{
		Height:         c.Height,
		ValidatorIndex: uint16(c.MyIndex),
		View:           c.View,
		Body: &wire.PrepareResponsePayload{
			SlotID:             pId,
			PrepareRequestHash: slot.PrepareRequestHash,
		},
	}
	if err := env.Sign(c.Wallet); err != nil {
		return nil, err
	}
	slot.Responses[c.MyIndex] = env
	c.ResponseSent = true
	return env, nil
}

// MakeChangeView signs a request to move past the current view.
func (c *Context) MakeChangeView(reason wire.ChangeViewReason) (*wire.Envelope, error) {
	env := &wire.Envelope{
		Height:         c.Height,
		ValidatorIndex: uint16(c.MyIndex),
		View:           c.View,
		Body: &wire.ChangeViewPayload{
			Reason:    reason,
			NewView:   c.View + 1,
			Timestamp: c.Clock.UtcNow(),
		},
	}
	if err := env.Sign(c.Wallet); err != nil {
		return nil, err
	}
	c.ChangeViews[c.MyIndex] = env
	c.ViewChanging = true
	return env, nil
}

// MakeCommit signs the resolved header of slot pId, the validator's final
// vote for this round.
func (c *Context) MakeCommit(pId types.SlotID) (*wire.Envelope, error) {
	slot := c.slot(pId)
	if slot.Header == nil {
		return nil, errNoHeader
	}
	sig, err := c.Wallet.Sign(slot.Header.Hash())
	if err != nil {
		return nil, err
	}
	env := &wire.Envelope{
		Height:         c.Height,
		ValidatorIndex: uint16(c.MyIndex),
		View:           c.View,
		Body: &wire.CommitPayload{
			SlotID:    pId,
			Signature: sig,
		},
	}
	if err := env.Sign(c.Wallet); err != nil {
		return nil, err
	}
	c.Commits[c.MyIndex] = env
	c.CommitSent = true
	return env, nil
}

// MakeRecoveryRequest asks peers to bring the local validator up to date.
func (c *Context) MakeRecoveryRequest() (*wire.Envelope, error) {
	env := &wire.Envelope{
		Height:         c.Height,
		ValidatorIndex: uint16(c.MyIndex),
		View:           c.View,
		Body:           &wire.RecoveryRequestPayload{Timestamp: c.Clock.UtcNow()},
	}
	if err := env.Sign(c.Wallet); err != nil {
		return nil, err
	}
	return env, nil
}

// MakeRecoveryMessage bundles the local validator's own proofs of record
// for the current round to answer an inbound recovery request.
func (c *Context) MakeRecoveryMessage() (*wire.Envelope, error) {
	payload := &wire.RecoveryMessagePayload{}
	for _, e := range c.ChangeViews {
		payload.ChangeViews = append(payload.ChangeViews, e)
	}
	if mySlot, ok := c.MySlot(); ok {
		if s := c.slot(mySlot); s.PrepareRequest != nil {
			payload.PrepareRequest = s.PrepareRequest
		}
	} else {
		for _, s := range c.Slots {
			if s.PrepareRequest != nil && s.PrepareRequest.ValidatorIndex == uint16(c.expectedPrimary(s.PrepareRequest.Body.(*wire.PrepareRequestPayload).SlotID)) {
				payload.PrepareRequest = s.PrepareRequest
				break
			}
		}
	}
	for _, s := range c.Slots {
		for _, e := range s.Responses {
			payload.PrepareResponses = append(payload.PrepareResponses, e)
		}
	}
	for _, e := range c.Commits {
		payload.Commits = append(payload.Commits, e)
	}

	env := &wire.Envelope{
		Height:         c.Height,
		ValidatorIndex: uint16(c.MyIndex),
		View:           c.View,
		Body:           payload,
	}
	if err := env.Sign(c.Wallet); err != nil {
		return nil, err
	}
	return env, nil
}

// EnsureHeader derives slot pId's block header once its prepare-request is
// set, memoizing the merkle root over the committed transaction order.
func (c *Context) EnsureHeader(pId types.SlotID) *types.Header {
	slot := c.slot(pId)
	if slot.PrepareRequest == nil {
		return nil
	}
	if slot.Header != nil {
		return slot.Header
	}
	req := slot.PrepareRequest.Body.(*wire.PrepareRequestPayload)
	slot.Header = &types.Header{
		ChainID:      c.ChainID,
		Height:       c.Height,
		View:         c.View,
		PrimaryIndex: int32(slot.PrepareRequest.ValidatorIndex),
		PrevHash:     c.PrevHash,
		MerkleRoot:   types.TxsRoot(req.TxHashes),
		Timestamp:    req.Timestamp,
		Nonce:        req.Nonce,
	}
	return slot.Header
}
