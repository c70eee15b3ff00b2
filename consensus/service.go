package consensus

import (
	"sort"
	"time"

	"github.com/tendermint/tendermint/libs/events"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/libs/service"

	"dualbft/types"
	"dualbft/wire"
)

// Events published on the Service's event switch, generalizing
// consensus/reactor.go's notion of outbound round events.
const (
	EventBlockCommitted = "dualbft:block_committed"
	EventNewRound       = "dualbft:new_round"
	EventViewChanged    = "dualbft:view_changed"
)

type eventKind int

const (
	evStart eventKind = iota
	evTick
	evInboundPayload
	evInboundTx
	evPersistCompleted
	evRelayResult
)

type queuedEvent struct {
	kind    eventKind
	tick    Tick
	env     *wire.Envelope
	tx      types.Tx
	block   *types.Block
	payload wire.Payload
	verdict error
}

// Service is the event-driven dBFT state machine. It owns one Context, one
// Timer and a single serialized event queue — handlers run to completion
// before the next event is dequeued, so nothing inside them needs a lock
// (consensus/state.go's receiveRoutine collapsed from three channels to
// one event queue plus the timer's tick channel, since this core has no
// separate reactor-facing message type).
type Service struct {
	service.BaseService

	ctx       *Context
	timer     *Timer
	recovery  Recovery
	transport Transport

	eventSwitch events.EventSwitch

	queue chan queuedEvent

	knownHashes       map[string]struct{}
	blockReceivedTime time.Time
	roundStartedAt    time.Time

	// future holds inbound payloads for a (height, view) strictly ahead of
	// the current round, replayed once the service catches up instead of
	// being dropped on arrival.
	future map[roundKey][]*wire.Envelope

	roundMetric *roundMetric
	counters    *counters
}

type roundKey struct {
	height types.Height
	view   types.View
}

func NewService(ctx *Context, recovery Recovery, transport Transport) *Service {
	s := &Service{
		ctx:         ctx,
		timer:       NewTimer(),
		recovery:    recovery,
		transport:   transport,
		eventSwitch: events.NewEventSwitch(),
		queue:       make(chan queuedEvent, 64),
		knownHashes: make(map[string]struct{}),
		future:      make(map[roundKey][]*wire.Envelope),
		roundMetric: newRoundMetric(),
		counters:    newCounters(),
	}
	s.BaseService = *service.NewBaseService(nil, "Consensus", s)
	return s
}

func (s *Service) SetLogger(logger log.Logger) {
	s.BaseService.Logger = logger
	s.ctx.Logger = logger
	s.timer.SetLogger(logger)
}

func (s *Service) EventSwitch() events.EventSwitch { return s.eventSwitch }

func (s *Service) OnStart() error {
	if err := s.eventSwitch.Start(); err != nil {
		return err
	}
	go s.loop()
	s.enqueue(queuedEvent{kind: evStart})
	return nil
}

func (s *Service) OnStop() {
	s.timer.Stop()
	if err := s.eventSwitch.Stop(); err != nil {
		s.Logger.Error("stopping event switch", "err", err)
	}
}

func (s *Service) enqueue(e queuedEvent) {
	select {
	case s.queue <- e:
	default:
		s.Logger.Debug("event queue full; spilling to goroutine")
		go func() { s.queue <- e }()
	}
}

// InboundPayload delivers an envelope transport has already signature-
// verified.
func (s *Service) InboundPayload(env *wire.Envelope) {
	s.enqueue(queuedEvent{kind: evInboundPayload, env: env})
}

// InboundTx delivers a transaction the mempool learned about.
func (s *Service) InboundTx(tx types.Tx) {
	s.enqueue(queuedEvent{kind: evInboundTx, tx: tx})
}

// PersistCompleted notifies the service a block was durably appended to
// the ledger.
func (s *Service) PersistCompleted(block *types.Block) {
	s.enqueue(queuedEvent{kind: evPersistCompleted, block: block})
}

// RelayResult delivers a late, asynchronous verification outcome from the
// ledger for a transaction the core had already tentatively accepted.
func (s *Service) RelayResult(payload wire.Payload, verdict error) {
	s.enqueue(queuedEvent{kind: evRelayResult, payload: payload, verdict: verdict})
}

func (s *Service) loop() {
	for {
		select {
		case <-s.Quit():
			return
		case e := <-s.queue:
			s.dispatch(e)
		case t := <-s.timer.Chan():
			s.dispatch(queuedEvent{kind: evTick, tick: t})
		}
	}
}

func (s *Service) dispatch(e queuedEvent) {
	switch e.kind {
	case evStart:
		s.handleStart()
	case evTick:
		s.handleTick(e.tick)
	case evInboundPayload:
		s.handleInboundPayload(e.env)
	case evInboundTx:
		s.handleInboundTx(e.tx, true)
	case evPersistCompleted:
		s.handlePersistCompleted(e.block)
	case evRelayResult:
		s.handleRelayResult(e.payload, e.verdict)
	}
}

// ---- Start ----

func (s *Service) handleStart() {
	var snap *Snapshot
	if s.recovery != nil && !s.ctx.Params.IgnoreRecoveryLogs {
		loaded, err := s.recovery.Load()
		if err != nil {
			s.Logger.Error("loading recovery log", "err", err)
		} else {
			snap = loaded
		}
	}

	view := types.View(0)
	if snap != nil {
		view = snap.View
		s.ctx.Reset(snap.Height, view, s.ctx.PrevHash)
		s.ctx.RestoreFrom(snap)
	}

	if snap != nil && snap.CommitSent {
		// A restart must not lose the one vote this validator already cast:
		// re-announce the stored commit so peers who missed it the first
		// time (or who also just restarted) can still reach quorum.
		if own, ok := s.ctx.Commits[s.ctx.MyIndex]; ok {
			s.transport.Broadcast(own)
		}
		s.checkCommits(types.SlotPriority)
		s.checkCommits(types.SlotFallback)
		s.sendRecoveryRequest()
		return
	}

	s.initializeConsensus(view)
	if s.ctx.Role != types.RoleWatchOnly {
		s.sendRecoveryRequest()
	}
}

// ---- InitializeConsensus ----

func (s *Service) initializeConsensus(v types.View) {
	s.ctx.Reset(s.ctx.Height, v, s.ctx.PrevHash)
	s.roundStartedAt = s.ctx.Clock.UtcNow()
	s.replayFuture()

	if s.ctx.Role == types.RoleWatchOnly {
		s.timer.Stop()
		return
	}

	blockTime := s.ctx.Params.BlockTime()

	var delay time.Duration
	switch s.ctx.Role {
	case types.RolePriorityPrimary, types.RoleFallbackPrimary:
		mult := time.Duration(1)
		if s.ctx.Role == types.RoleFallbackPrimary {
			mult = time.Duration(s.ctx.Params.PrimaryTimerMultiplier)
			if mult < 1 {
				mult = 1
			}
		}
		if v > 0 {
			delay = mult * blockTime * time.Duration(viewScale(v))
		} else {
			delay = mult * blockTime
		}
		if !s.ctx.IsRecovering && !s.blockReceivedTime.IsZero() {
			elapsed := s.ctx.Clock.UtcNow().Sub(s.blockReceivedTime)
			delay -= elapsed
			if delay < 0 {
				delay = 0
			}
		}
	default: // Backup
		delay = blockTime * time.Duration(viewScale(v))
	}

	if s.ctx.IsRecovering {
		delay *= 2
	}

	s.timer.Reset(delay, s.ctx.Height, v)
	s.eventSwitch.FireEvent(EventNewRound, s.ctx)
}

// viewScale is 2^(v+1), clamped so the shift never overflows.
func viewScale(v types.View) int64 {
	n := uint(v) + 1
	if n > 32 {
		n = 32
	}
	return int64(1) << n
}

// ---- Tick ----

func (s *Service) handleTick(t Tick) {
	if s.ctx.Role == types.RoleWatchOnly || s.ctx.BlockSent {
		return
	}
	if t.Height != s.ctx.Height || t.View != s.ctx.View {
		return
	}

	if pId, ok := s.ctx.MySlot(); ok && !s.ctx.RequestSentOrReceived {
		env, err := s.ctx.MakePrepareRequest(pId)
		if err != nil {
			s.Logger.Error("making prepare-request", "err", err)
			return
		}
		s.transport.Broadcast(env)
		s.persist()
		s.checkPreparations(pId)
		return
	}

	if s.ctx.CommitSent {
		if env, err := s.ctx.MakeRecoveryMessage(); err != nil {
			s.Logger.Error("making recovery message", "err", err)
		} else {
			s.transport.Broadcast(env)
		}
		s.timer.Reset(s.ctx.Params.BlockTime()*2, s.ctx.Height, s.ctx.View)
		return
	}

	s.requestChangeView(wire.ReasonTimeout)
}

// ---- Inbound payload dispatch ----

func (s *Service) handleInboundPayload(env *wire.Envelope) {
	if env == nil || env.Body == nil {
		return
	}
	if int(env.ValidatorIndex) >= s.ctx.N() {
		return
	}

	// RecoveryRequest/RecoveryMessage are answered or replayed regardless of
	// round, so only prepare/response/change-view/commit get cached ahead.
	switch env.Body.(type) {
	case *wire.RecoveryRequestPayload, *wire.RecoveryMessagePayload:
	default:
		if env.Height > s.ctx.Height || (env.Height == s.ctx.Height && env.View > s.ctx.View) {
			key := roundKey{height: env.Height, view: env.View}
			s.future[key] = append(s.future[key], env)
			return
		}
	}

	switch body := env.Body.(type) {
	case *wire.PrepareRequestPayload:
		s.handlePrepareRequest(env, body)
	case *wire.PrepareResponsePayload:
		s.handlePrepareResponse(env, body)
	case *wire.ChangeViewPayload:
		s.handleChangeView(env, body)
	case *wire.CommitPayload:
		s.handleCommit(env, body)
	case *wire.RecoveryRequestPayload:
		s.handleRecoveryRequest(env)
	case *wire.RecoveryMessagePayload:
		s.handleRecoveryMessage(env, body)
	}
}

func (s *Service) handlePrepareRequest(env *wire.Envelope, body *wire.PrepareRequestPayload) {
	if env.Height != s.ctx.Height || env.View != s.ctx.View {
		return
	}
	if s.ctx.NotAcceptingPayloadsDueToViewChg {
		return
	}
	if int(env.ValidatorIndex) != s.ctx.expectedPrimary(body.SlotID) {
		return
	}

	slot := s.ctx.slot(body.SlotID)
	if slot.PrepareRequest != nil {
		s.Logger.Error("duplicate prepare-request from primary", "slot", body.SlotID, "err", ErrProtocolViolation)
		return
	}

	now := s.ctx.Clock.UtcNow()
	if !body.Timestamp.After(s.ctx.PrevHeaderTimestamp) {
		return
	}
	if body.Timestamp.After(now.Add(s.ctx.Params.BlockTime())) {
		return
	}
	if len(body.TxHashes) > s.ctx.Params.MaxTxPerBlock {
		return
	}
	seen := make(map[string]struct{}, len(body.TxHashes))
	for _, h := range body.TxHashes {
		key := h.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
	}

	slot.PrepareRequest = env
	slot.PrepareRequestHash = env.BodyHash()
	slot.TxHashes = body.TxHashes
	s.ctx.RequestSentOrReceived = true
	s.ctx.EnsureHeader(body.SlotID)

	for _, h := range body.TxHashes {
		if tx, ok := s.ctx.Mempool.Lookup(h); ok {
			s.handleInboundTx(tx, false)
			continue
		}
		s.transport.RequestTx(int(env.ValidatorIndex), h)
	}

	if resp, err := s.ctx.MakePrepareResponse(body.SlotID); err == nil {
		s.transport.Broadcast(resp)
	}

	s.persist()
	s.checkPreparations(body.SlotID)
}

func (s *Service) handlePrepareResponse(env *wire.Envelope, body *wire.PrepareResponsePayload) {
	if env.Height != s.ctx.Height || env.View != s.ctx.View {
		return
	}
	slot := s.ctx.slot(body.SlotID)
	if slot.PrepareRequestHash == nil || !hashEqual(body.PrepareRequestHash, slot.PrepareRequestHash) {
		return
	}
	slot.Responses[int32(env.ValidatorIndex)] = env
	s.checkPreparations(body.SlotID)
}

func (s *Service) handleChangeView(env *wire.Envelope, body *wire.ChangeViewPayload) {
	if env.Height != s.ctx.Height {
		return
	}
	s.ctx.ChangeViews[int32(env.ValidatorIndex)] = env
	s.checkExpectedView(body.NewView)
}

func (s *Service) handleCommit(env *wire.Envelope, body *wire.CommitPayload) {
	if env.Height != s.ctx.Height {
		return
	}
	s.ctx.Commits[int32(env.ValidatorIndex)] = env
	s.checkCommits(body.SlotID)
}

func (s *Service) handleRecoveryRequest(env *wire.Envelope) {
	msg, err := s.ctx.MakeRecoveryMessage()
	if err != nil {
		s.Logger.Error("making recovery message", "err", err)
		return
	}
	s.transport.SendDirect(int(env.ValidatorIndex), msg)
}

func (s *Service) handleRecoveryMessage(env *wire.Envelope, body *wire.RecoveryMessagePayload) {
	s.ctx.IsRecovering = true
	defer func() { s.ctx.IsRecovering = false }()

	for _, cv := range body.ChangeViews {
		if !s.dedup(cv) {
			continue
		}
		if p, ok := cv.Body.(*wire.ChangeViewPayload); ok {
			s.handleChangeView(cv, p)
		}
	}
	if body.PrepareRequest != nil && s.dedup(body.PrepareRequest) {
		if p, ok := body.PrepareRequest.Body.(*wire.PrepareRequestPayload); ok {
			s.handlePrepareRequest(body.PrepareRequest, p)
		}
	}
	for _, pr := range body.PrepareResponses {
		if !s.dedup(pr) {
			continue
		}
		if p, ok := pr.Body.(*wire.PrepareResponsePayload); ok {
			s.handlePrepareResponse(pr, p)
		}
	}
	for _, c := range body.Commits {
		if !s.dedup(c) {
			continue
		}
		if p, ok := c.Body.(*wire.CommitPayload); ok {
			s.handleCommit(c, p)
		}
	}
}

// replayFuture re-dispatches any payload cached by handleInboundPayload for
// the round the service has just moved into, then drops every stale entry
// for rounds now strictly behind.
func (s *Service) replayFuture() {
	key := roundKey{height: s.ctx.Height, view: s.ctx.View}
	envs := s.future[key]
	delete(s.future, key)
	for k := range s.future {
		if k.height < s.ctx.Height || (k.height == s.ctx.Height && k.view < s.ctx.View) {
			delete(s.future, k)
		}
	}
	for _, env := range envs {
		s.handleInboundPayload(env)
	}
}

// dedup reports whether env has not been processed via recovery replay
// before, recording it if so.
func (s *Service) dedup(env *wire.Envelope) bool {
	key := string(env.BodyHash()) + ":" + env.Kind().String()
	if _, ok := s.knownHashes[key]; ok {
		return false
	}
	s.knownHashes[key] = struct{}{}
	return true
}

func hashEqual(a, b types.Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ---- Transactions ----

// handleInboundTx runs AddTransaction against every slot whose TxHashes
// references tx. verify selects whether the ledger's business-rule check
// runs (skipped for a tx that handlePrepareRequest resolved from the local
// mempool).
func (s *Service) handleInboundTx(tx types.Tx, verify bool) {
	h := tx.Hash()
	for _, pId := range []types.SlotID{types.SlotPriority, types.SlotFallback} {
		slot := s.ctx.slot(pId)
		if slot.PrepareRequest == nil || !slot.hasHash(h) {
			continue
		}
		if _, already := slot.Txs[types.KeyFromHash(h)]; already {
			continue
		}
		if conflicts(slot, tx) {
			s.requestChangeView(wire.ReasonTxInvalid)
			continue
		}
		if verify {
			if err := s.ctx.Ledger.Verify(tx, pId); err != nil {
				s.Logger.Error("transaction rejected", "err", err)
				s.requestChangeView(wire.ReasonTxRejectedByPolicy)
				continue
			}
		}
		s.installTx(pId, tx)
	}
}

func conflicts(slot *SlotState, tx types.Tx) bool {
	for _, existing := range slot.Txs {
		for _, c := range existing.Conflicts() {
			if hashEqual(c, tx.Hash()) {
				return true
			}
		}
	}
	for _, c := range tx.Conflicts() {
		if _, ok := slot.Txs[types.KeyFromHash(c)]; ok {
			return true
		}
	}
	return false
}

func (s *Service) installTx(pId types.SlotID, tx types.Tx) {
	slot := s.ctx.slot(pId)
	slot.Txs[types.KeyFromHash(tx.Hash())] = tx
	if slot.Resolved() {
		s.checkPrepareResponse(pId)
	}
}

// checkPrepareResponse broadcasts our own PrepareResponse once every
// referenced transaction has arrived, for the case where the prepare-
// request was accepted before all of its transactions were.
func (s *Service) checkPrepareResponse(pId types.SlotID) {
	slot := s.ctx.slot(pId)
	if _, already := slot.Responses[s.ctx.MyIndex]; already {
		s.checkPreparations(pId)
		return
	}
	if resp, err := s.ctx.MakePrepareResponse(pId); err == nil {
		s.transport.Broadcast(resp)
	}
	s.checkPreparations(pId)
}

// ---- Quorum checks ----

func (s *Service) checkPreparations(pId types.SlotID) {
	slot := s.ctx.slot(pId)
	if slot.PrepareRequest == nil || !slot.Resolved() {
		return
	}
	if len(slot.Responses) < s.ctx.M()-1 {
		return
	}
	if s.ctx.CommitSent {
		return
	}

	s.ctx.EnsureHeader(pId)
	commit, err := s.ctx.MakeCommit(pId)
	if err != nil {
		s.Logger.Error("making commit", "err", err)
		return
	}
	s.transport.Broadcast(commit)
	s.counters.commitsSent.Inc(1)
	s.persist()
	s.checkCommits(pId)
}

func (s *Service) checkCommits(pId types.SlotID) {
	// Height, view and pId together fix the committed header hash (View is
	// part of Header.Hash()'s preimage), so filtering commits to the
	// current view is what makes every counted commit agree on the exact
	// header being submitted; a commit recorded for an earlier view of
	// this height never signs the same hash and must not count.
	signers := make([]int32, 0, s.ctx.N())
	for idx, c := range s.ctx.Commits {
		if c.View != s.ctx.View {
			continue
		}
		if p, ok := c.Body.(*wire.CommitPayload); ok && p.SlotID == pId {
			signers = append(signers, idx)
		}
	}
	if len(signers) < s.ctx.M() {
		return
	}
	if s.ctx.BlockSent {
		return
	}

	slot := s.ctx.slot(pId)
	header := s.ctx.EnsureHeader(pId)
	if header == nil {
		return
	}

	txs := make([]types.Tx, len(slot.TxHashes))
	for i, h := range slot.TxHashes {
		txs[i] = slot.Txs[types.KeyFromHash(h)]
	}
	block := &types.Block{
		Header:     *header,
		Txs:        txs,
		Signatures: commitSignatures(s.ctx.Commits, signers),
	}

	if err := s.ctx.Ledger.SubmitBlock(block); err != nil {
		s.Logger.Error("submitting block", "err", err)
		s.ctx.CountFailed++
		return
	}
	s.ctx.CountCommitted++
	s.ctx.BlockSent = true
	s.timer.Stop()
	s.persist()
	s.counters.blocksCommitted.Inc(1)
	if !s.roundStartedAt.IsZero() {
		s.counters.roundDuration.Update(s.ctx.Clock.UtcNow().Sub(s.roundStartedAt))
	}
	s.eventSwitch.FireEvent(EventBlockCommitted, block)
}

// commitSignatures assembles the signing validators' commit signatures in
// validator-index order, the proof a submitted block carries alongside its
// header.
func commitSignatures(commits map[int32]*wire.Envelope, signers []int32) []types.CommitSignature {
	sort.Slice(signers, func(i, j int) bool { return signers[i] < signers[j] })
	sigs := make([]types.CommitSignature, 0, len(signers))
	for _, idx := range signers {
		body := commits[idx].Body.(*wire.CommitPayload)
		sigs = append(sigs, types.CommitSignature{ValidatorIndex: idx, Signature: body.Signature})
	}
	return sigs
}

// ---- View changes ----

func (s *Service) checkExpectedView(newView types.View) {
	count := 0
	for _, cv := range s.ctx.ChangeViews {
		if p, ok := cv.Body.(*wire.ChangeViewPayload); ok && p.NewView >= newView {
			count++
		}
	}
	if count < s.ctx.M() {
		return
	}
	s.eventSwitch.FireEvent(EventViewChanged, newView)
	s.initializeConsensus(newView)
}

func (s *Service) requestChangeView(reason wire.ChangeViewReason) {
	expectedView := s.ctx.View + 1

	if s.ctx.CountCommitted+s.ctx.CountFailed > s.ctx.F() {
		s.sendRecoveryRequest()
		return
	}

	s.timer.Reset(s.ctx.Params.BlockTime()*time.Duration(viewScale(expectedView)), s.ctx.Height, s.ctx.View)

	if cv, err := s.ctx.MakeChangeView(reason); err != nil {
		s.Logger.Error("making change-view", "err", err)
	} else {
		s.transport.Broadcast(cv)
		s.counters.viewChangesSent.Inc(1)
	}
	s.checkExpectedView(expectedView)
}

func (s *Service) sendRecoveryRequest() {
	req, err := s.ctx.MakeRecoveryRequest()
	if err != nil {
		s.Logger.Error("making recovery request", "err", err)
		return
	}
	s.transport.Broadcast(req)
	s.counters.recoveryMsgsSent.Inc(1)
}

// ---- PersistCompleted / RelayResult ----

func (s *Service) handlePersistCompleted(block *types.Block) {
	s.knownHashes = make(map[string]struct{})
	s.blockReceivedTime = s.ctx.Clock.UtcNow()
	s.ctx.Height = block.Header.Height + 1
	s.ctx.PrevHash = block.Header.Hash()
	s.ctx.PrevHeaderTimestamp = block.Header.Timestamp
	s.initializeConsensus(0)
}

func (s *Service) handleRelayResult(payload wire.Payload, verdict error) {
	if verdict == nil {
		return
	}
	s.Logger.Error("late verification failed", "kind", payload.Kind(), "err", verdict)
	s.requestChangeView(wire.ReasonTxRejectedByPolicy)
}

// ---- Persistence ----

func (s *Service) persist() {
	if s.recovery == nil || s.ctx.Params.IgnoreRecoveryLogs {
		return
	}
	if err := s.recovery.Save(s.ctx.ToSnapshot()); err != nil {
		s.Logger.Error("persisting recovery log", "err", err)
	}
}
