package types

import "testing"

func TestRawTxHashMatchesContent(t *testing.T) {
	tx := RawTx("hello")
	if tx.Hash().String() != NewHash([]byte("hello")).String() {
		t.Fatalf("RawTx.Hash() does not match NewHash of its bytes")
	}
}

func TestRawTxHasNoConflicts(t *testing.T) {
	tx := RawTx("hello")
	if tx.Conflicts() != nil {
		t.Fatalf("RawTx.Conflicts() = %v, want nil", tx.Conflicts())
	}
}

func TestRawTxBytesReturnsItself(t *testing.T) {
	tx := RawTx("payload")
	if string(tx.Bytes()) != "payload" {
		t.Fatalf("RawTx.Bytes() = %q, want %q", tx.Bytes(), "payload")
	}
}

func TestTxsRootOrderSensitive(t *testing.T) {
	h1 := NewHash([]byte("a"))
	h2 := NewHash([]byte("b"))

	r1 := TxsRoot([]Hash{h1, h2})
	r2 := TxsRoot([]Hash{h2, h1})
	if r1.String() == r2.String() {
		t.Fatalf("TxsRoot is insensitive to transaction order")
	}
}

func TestTxsRootEmpty(t *testing.T) {
	r := TxsRoot(nil)
	if r == nil {
		t.Fatalf("TxsRoot(nil) returned a nil hash")
	}
}
