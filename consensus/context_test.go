package consensus

import (
	"testing"

	"dualbft/types"
	"dualbft/wire"
)

func newTestContext(t *testing.T, n int, myIndex int32) *Context {
	t.Helper()
	net := newNetwork(n, testNow)
	return net.node(int(myIndex)).ctx
}

func TestResetNewHeightClearsCommitsAndChangeViews(t *testing.T) {
	c := newTestContext(t, 4, 0)
	c.Reset(1, 1, nil)
	if _, err := c.MakeChangeView(wire.ReasonTimeout); err != nil {
		t.Fatalf("MakeChangeView: %v", err)
	}
	c.CountCommitted = 1

	c.Reset(2, 0, types.Hash{})

	if len(c.ChangeViews) != 0 {
		t.Fatalf("Reset(view=0) left %d stale change-views, want 0", len(c.ChangeViews))
	}
	if c.CountCommitted != 0 {
		t.Fatalf("Reset(view=0) left CountCommitted = %d, want 0", c.CountCommitted)
	}
	if c.CommitSent || c.BlockSent {
		t.Fatalf("Reset(view=0) left CommitSent/BlockSent set")
	}
}

func TestResetSameHeightViewChangePreservesCommitTally(t *testing.T) {
	c := newTestContext(t, 4, 0)
	c.Reset(5, 0, nil)
	c.CountCommitted = 1
	if _, err := c.MakeChangeView(wire.ReasonTimeout); err != nil {
		t.Fatalf("MakeChangeView: %v", err)
	}

	c.Reset(5, 1, nil)

	if c.CountCommitted != 1 {
		t.Fatalf("Reset(view>0) reset CountCommitted to %d, want 1 preserved", c.CountCommitted)
	}
	if len(c.ChangeViews) != 1 {
		t.Fatalf("Reset(view>0) dropped prior change-views, want 1 preserved")
	}
	if c.Slots[SlotPriorityIdx].PrepareRequest != nil {
		t.Fatalf("Reset did not clear slot state for the new view")
	}
}

func TestMySlotMatchesComputedRole(t *testing.T) {
	n := 4
	net := newNetwork(n, testNow)
	for h := types.Height(1); h < 6; h++ {
		for _, node := range net.nodes {
			node.ctx.Reset(h, 0, nil)
		}
		p := types.PrimaryIndex(h, 0, n)
		f := types.FallbackPrimaryIndex(h, 0, n)
		for i, node := range net.nodes {
			slot, ok := node.ctx.MySlot()
			switch i {
			case p:
				if !ok || slot != types.SlotPriority {
					t.Fatalf("height %d: priority primary %d: MySlot() = (%v,%v)", h, i, slot, ok)
				}
			case f:
				if !ok || slot != types.SlotFallback {
					t.Fatalf("height %d: fallback primary %d: MySlot() = (%v,%v)", h, i, slot, ok)
				}
			default:
				if ok {
					t.Fatalf("height %d: backup %d unexpectedly has a slot", h, i)
				}
			}
		}
	}
}

func TestMakePrepareRequestRecordsSlotAndHeader(t *testing.T) {
	net := newNetwork(4, testNow)
	p := types.PrimaryIndex(1, 0, 4)
	node := net.node(p)

	env, err := node.ctx.MakePrepareRequest(types.SlotPriority)
	if err != nil {
		t.Fatalf("MakePrepareRequest: %v", err)
	}

	slot := node.ctx.Slots[SlotPriorityIdx]
	if slot.PrepareRequest != env {
		t.Fatalf("slot.PrepareRequest was not recorded")
	}
	if slot.Header == nil {
		t.Fatalf("EnsureHeader was not called by MakePrepareRequest")
	}
	if !node.ctx.RequestSentOrReceived {
		t.Fatalf("RequestSentOrReceived was not set")
	}
}

func TestEnsureHeaderMemoizes(t *testing.T) {
	net := newNetwork(4, testNow)
	p := types.PrimaryIndex(1, 0, 4)
	node := net.node(p)

	if _, err := node.ctx.MakePrepareRequest(types.SlotPriority); err != nil {
		t.Fatalf("MakePrepareRequest: %v", err)
	}

	h1 := node.ctx.EnsureHeader(types.SlotPriority)
	h2 := node.ctx.EnsureHeader(types.SlotPriority)
	if h1 != h2 {
		t.Fatalf("EnsureHeader returned a different *Header on the second call")
	}
}

func TestEnsureHeaderNilWithoutPrepareRequest(t *testing.T) {
	net := newNetwork(4, testNow)
	node := net.node(0)
	if h := node.ctx.EnsureHeader(types.SlotPriority); h != nil {
		t.Fatalf("EnsureHeader() = %+v before any prepare-request, want nil", h)
	}
}

func TestMakePrepareResponseFailsWithoutPrepareRequest(t *testing.T) {
	net := newNetwork(4, testNow)
	node := net.node(0)
	if _, err := node.ctx.MakePrepareResponse(types.SlotPriority); err == nil {
		t.Fatalf("MakePrepareResponse should fail without an accepted prepare-request")
	}
}

func TestMakeCommitFailsWithoutHeader(t *testing.T) {
	net := newNetwork(4, testNow)
	node := net.node(0)
	if _, err := node.ctx.MakeCommit(types.SlotPriority); err == nil {
		t.Fatalf("MakeCommit should fail without a resolved header")
	}
}

func TestMakeChangeViewRecordsOwnVoteAndBumpsView(t *testing.T) {
	net := newNetwork(4, testNow)
	node := net.node(0)
	env, err := node.ctx.MakeChangeView(wire.ReasonTimeout)
	if err != nil {
		t.Fatalf("MakeChangeView: %v", err)
	}
	if node.ctx.ChangeViews[node.ctx.MyIndex] != env {
		t.Fatalf("MakeChangeView did not record the caller's own vote")
	}
	if !node.ctx.ViewChanging {
		t.Fatalf("MakeChangeView did not set ViewChanging")
	}
}

func TestQuorumHelpersDeriveFromValidatorSet(t *testing.T) {
	net := newNetwork(4, testNow)
	c := net.node(0).ctx
	if c.N() != 4 {
		t.Fatalf("N() = %d, want 4", c.N())
	}
	if c.F() != 1 {
		t.Fatalf("F() = %d, want 1", c.F())
	}
	if c.M() != 3 {
		t.Fatalf("M() = %d, want 3", c.M())
	}
}
