package mempool

import (
	"testing"

	"dualbft/types"
)

func TestAddTxRejectsDuplicate(t *testing.T) {
	mp := New(nil)
	tx := types.RawTx("hello")
	if !mp.AddTx(tx) {
		t.Fatalf("first AddTx should succeed")
	}
	if mp.AddTx(tx) {
		t.Fatalf("duplicate AddTx should be rejected")
	}
	if mp.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", mp.Size())
	}
}

func TestGetOrderedTxsRespectsArrivalOrderAndLimit(t *testing.T) {
	mp := New(nil)
	txs := []types.Tx{types.RawTx("a"), types.RawTx("b"), types.RawTx("c")}
	for _, tx := range txs {
		mp.AddTx(tx)
	}

	all := mp.GetOrderedTxs(0)
	if len(all) != 3 {
		t.Fatalf("GetOrderedTxs(0) len = %d, want 3", len(all))
	}
	for i, tx := range all {
		if tx.Hash().String() != txs[i].Hash().String() {
			t.Fatalf("GetOrderedTxs out of arrival order at %d", i)
		}
	}

	limited := mp.GetOrderedTxs(2)
	if len(limited) != 2 {
		t.Fatalf("GetOrderedTxs(2) len = %d, want 2", len(limited))
	}
}

func TestLookupAndRemoveCommitted(t *testing.T) {
	mp := New(nil)
	tx := types.RawTx("payload")
	mp.AddTx(tx)

	got, ok := mp.Lookup(tx.Hash())
	if !ok {
		t.Fatalf("Lookup should find the added tx")
	}
	if got.Hash().String() != tx.Hash().String() {
		t.Fatalf("Lookup returned a different tx")
	}

	block := &types.Block{Txs: []types.Tx{tx}}
	mp.RemoveCommitted(block)

	if mp.Size() != 0 {
		t.Fatalf("Size() after RemoveCommitted = %d, want 0", mp.Size())
	}
	if _, ok := mp.Lookup(tx.Hash()); ok {
		t.Fatalf("Lookup should not find a committed tx")
	}
}

func TestSetNewTxCallbackFiresOnAdd(t *testing.T) {
	mp := New(nil)
	var seen types.Tx
	mp.SetNewTxCallback(func(tx types.Tx) { seen = tx })

	tx := types.RawTx("cb")
	mp.AddTx(tx)

	if seen == nil || seen.Hash().String() != tx.Hash().String() {
		t.Fatalf("SetNewTxCallback did not fire with the added tx")
	}
}
