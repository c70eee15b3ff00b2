// Package transport moves signed envelopes between validators over
// tendermint's p2p layer, adapted from consensus/reactor.go: the
// proposal/vote channel split collapses into a single envelope channel
// since wire.Envelope already carries its own payload kind, and
// Switch.Broadcast / Peer.Send are reused unchanged.
package transport

import (
	"fmt"

	"github.com/tendermint/tendermint/p2p"

	"dualbft/types"
	"dualbft/wire"
)

const (
	// EnvelopeChannel carries every dBFT payload kind; TxChannel carries
	// raw transaction bytes and tx-request lookups.
	EnvelopeChannel = byte(0x20)
	TxChannel       = byte(0x21)

	maxMsgSize = 1 << 20
)

// Receiver is the subset of consensus.Service the reactor delivers inbound
// traffic to, kept narrow so this package does not import consensus.
type Receiver interface {
	InboundPayload(env *wire.Envelope)
	InboundTx(tx types.Tx)
}

// TxResolver looks up a transaction by hash for a peer's TxChannel request.
type TxResolver interface {
	Lookup(h types.Hash) (types.Tx, bool)
}

// Reactor is a consensus.Transport implementation built on p2p.Reactor.
type Reactor struct {
	p2p.BaseReactor

	receiver Receiver
	resolver TxResolver

	validatorPeers map[int]p2p.ID // validator index -> peer ID, set by node wiring
}

func NewReactor(receiver Receiver, resolver TxResolver) *Reactor {
	r := &Reactor{
		receiver:       receiver,
		resolver:       resolver,
		validatorPeers: make(map[int]p2p.ID),
	}
	r.BaseReactor = *p2p.NewBaseReactor("Consensus", r)
	return r
}

// BindValidatorPeer records which peer ID carries a given validator index's
// traffic, so SendDirect can address it without a broadcast.
func (r *Reactor) BindValidatorPeer(index int, id p2p.ID) {
	r.validatorPeers[index] = id
}

// SetReceiver wires the consensus service in after construction, breaking
// the cycle where the reactor is itself the service's Transport.
func (r *Reactor) SetReceiver(receiver Receiver) {
	r.receiver = receiver
}

func (r *Reactor) GetChannels() []*p2p.ChannelDescriptor {
	return []*p2p.ChannelDescriptor{
		{ID: EnvelopeChannel, Priority: 10, SendQueueCapacity: 100, RecvBufferCapacity: maxMsgSize},
		{ID: TxChannel, Priority: 5, SendQueueCapacity: 100, RecvBufferCapacity: maxMsgSize},
	}
}

func (r *Reactor) AddPeer(peer p2p.Peer) {
	r.Logger.Info("consensus peer connected", "peer", peer.ID())
}

func (r *Reactor) RemovePeer(peer p2p.Peer, reason interface{}) {
	r.Logger.Info("consensus peer disconnected", "peer", peer.ID(), "reason", reason)
}

func (r *Reactor) Receive(chID byte, src p2p.Peer, msgBytes []byte) {
	switch chID {
	case EnvelopeChannel:
		env, err := wire.Unmarshal(msgBytes)
		if err != nil {
			r.Logger.Error("dropping malformed envelope", "peer", src.ID(), "err", err)
			return
		}
		r.receiver.InboundPayload(env)
	case TxChannel:
		// a message naming a tx we hold is a RequestTx lookup: answer it
		if r.resolver != nil {
			if tx, ok := r.resolver.Lookup(types.Hash(msgBytes)); ok {
				src.Send(TxChannel, tx.Bytes())
				return
			}
		}
		tx := types.RawTx(msgBytes)
		r.receiver.InboundTx(tx)
	default:
		r.Logger.Error(fmt.Sprintf("unknown channel %X", chID))
	}
}

// ---- consensus.Transport ----

func (r *Reactor) Broadcast(env *wire.Envelope) {
	r.Switch.Broadcast(EnvelopeChannel, env.Marshal())
}

func (r *Reactor) SendDirect(peerIndex int, env *wire.Envelope) {
	id, ok := r.validatorPeers[peerIndex]
	if !ok {
		r.Logger.Debug("no bound peer for validator index, broadcasting instead", "index", peerIndex)
		r.Broadcast(env)
		return
	}
	peer := r.Switch.Peers().Get(id)
	if peer == nil {
		return
	}
	peer.Send(EnvelopeChannel, env.Marshal())
}

func (r *Reactor) RequestTx(peerIndex int, hash types.Hash) {
	id, ok := r.validatorPeers[peerIndex]
	if !ok {
		return
	}
	peer := r.Switch.Peers().Get(id)
	if peer == nil {
		return
	}
	if r.resolver != nil {
		if tx, ok := r.resolver.Lookup(hash); ok {
			peer.Send(TxChannel, tx.Bytes())
			return
		}
	}
	peer.Send(TxChannel, hash)
}
