package consensus

import (
	"dualbft/types"
	"dualbft/wire"
)

// Snapshot is the durable slice of Context that must survive a restart:
// enough to resume the current round without re-deriving it from a replay
// of every message ever seen. Mirrors the fields store/kv_store.go persists
// per height, generalized to the dual-primary round shape.
type Snapshot struct {
	Height types.Height
	View   types.View

	PriorityRequest   *wire.Envelope
	FallbackRequest   *wire.Envelope
	PriorityResponses []*wire.Envelope
	FallbackResponses []*wire.Envelope
	Commits           []*wire.Envelope
	ChangeViews       []*wire.Envelope

	CommitSent bool
	BlockSent  bool
}

// ToSnapshot captures the durable half of c for persistence.
func (c *Context) ToSnapshot() *Snapshot {
	s := &Snapshot{
		Height:     c.Height,
		View:       c.View,
		CommitSent: c.CommitSent,
		BlockSent:  c.BlockSent,
	}
	if ps := c.Slots[SlotPriorityIdx]; ps != nil {
		s.PriorityRequest = ps.PrepareRequest
		for _, e := range ps.Responses {
			s.PriorityResponses = append(s.PriorityResponses, e)
		}
	}
	if fs := c.Slots[SlotFallbackIdx]; fs != nil {
		s.FallbackRequest = fs.PrepareRequest
		for _, e := range fs.Responses {
			s.FallbackResponses = append(s.FallbackResponses, e)
		}
	}
	for _, e := range c.Commits {
		s.Commits = append(s.Commits, e)
	}
	for _, e := range c.ChangeViews {
		s.ChangeViews = append(s.ChangeViews, e)
	}
	return s
}

// RestoreFrom repopulates c's round state from a previously saved snapshot
// for the same (Height, View). The caller must have already called Reset
// for that round so slot maps exist.
func (c *Context) RestoreFrom(s *Snapshot) {
	if s == nil || s.Height != c.Height || s.View != c.View {
		return
	}
	ps := c.Slots[SlotPriorityIdx]
	if s.PriorityRequest != nil {
		ps.PrepareRequest = s.PriorityRequest
		ps.PrepareRequestHash = s.PriorityRequest.BodyHash()
	}
	for _, e := range s.PriorityResponses {
		ps.Responses[int32(e.ValidatorIndex)] = e
	}
	fs := c.Slots[SlotFallbackIdx]
	if s.FallbackRequest != nil {
		fs.PrepareRequest = s.FallbackRequest
		fs.PrepareRequestHash = s.FallbackRequest.BodyHash()
	}
	for _, e := range s.FallbackResponses {
		fs.Responses[int32(e.ValidatorIndex)] = e
	}
	for _, e := range s.Commits {
		c.Commits[int32(e.ValidatorIndex)] = e
	}
	for _, e := range s.ChangeViews {
		c.ChangeViews[int32(e.ValidatorIndex)] = e
	}
	c.CommitSent = s.CommitSent
	c.BlockSent = s.BlockSent
}
