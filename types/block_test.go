package types

import "testing"

func testHeader() *Header {
	return &Header{
		ChainID:      "test-chain",
		Height:       10,
		View:         1,
		PrimaryIndex: 2,
		PrevHash:     NewHash([]byte("prev")),
		MerkleRoot:   TxsRoot([]Hash{NewHash([]byte("tx-1"))}),
		Nonce:        42,
	}
}

func TestHeaderHashIsMemoized(t *testing.T) {
	h := testHeader()
	h1 := h.Hash()
	h.Nonce = 99 // mutating after the first Hash() call must not change the memoized result
	h2 := h.Hash()
	if h1.String() != h2.String() {
		t.Fatalf("Hash() changed after memoization: %v != %v", h1, h2)
	}
}

func TestHeaderHashDeterministicAcrossEqualHeaders(t *testing.T) {
	h1 := testHeader()
	h2 := testHeader()
	if h1.Hash().String() != h2.Hash().String() {
		t.Fatalf("two structurally equal headers hashed differently")
	}
}

func TestHeaderHashSensitiveToHeight(t *testing.T) {
	h1 := testHeader()
	h2 := testHeader()
	h2.Height = 11
	if h1.Hash().String() == h2.Hash().String() {
		t.Fatalf("headers differing only by height hashed the same")
	}
}

func TestHeaderHashSensitiveToView(t *testing.T) {
	h1 := testHeader()
	h2 := testHeader()
	h2.View = 2
	if h1.Hash().String() == h2.Hash().String() {
		t.Fatalf("headers differing only by view hashed the same")
	}
}

func TestNilHeaderHashIsNil(t *testing.T) {
	var h *Header
	if h.Hash() != nil {
		t.Fatalf("nil *Header.Hash() = %v, want nil", h.Hash())
	}
}
