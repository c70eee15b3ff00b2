package blskey

import "testing"

func TestSignVerifyRoundTrips(t *testing.T) {
	priv := GenPrivKey()
	msg := []byte("round 9 prepare-request")

	sig, err := priv.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !priv.PubKey().VerifySignature(msg, sig) {
		t.Fatalf("VerifySignature rejected a valid signature")
	}
}

func TestVerifyRejectsWrongMessage(t *testing.T) {
	priv := GenPrivKey()
	sig, err := priv.Sign([]byte("original"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if priv.PubKey().VerifySignature([]byte("tampered"), sig) {
		t.Fatalf("VerifySignature accepted a signature over a different message")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv1 := GenPrivKey()
	priv2 := GenPrivKey()
	msg := []byte("round 9 prepare-request")

	sig, err := priv1.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if priv2.PubKey().VerifySignature(msg, sig) {
		t.Fatalf("VerifySignature accepted a signature against an unrelated pubkey")
	}
}

func TestPubKeyEqualsAndAddress(t *testing.T) {
	priv := GenPrivKey()
	pub := priv.PubKey()

	if !pub.Equals(pub) {
		t.Fatalf("PubKey does not equal itself")
	}
	other := GenPrivKey().PubKey()
	if pub.Equals(other) {
		t.Fatalf("two distinct generated PubKeys compared equal")
	}
	if len(pub.Address()) == 0 {
		t.Fatalf("Address() returned an empty address")
	}
}

func TestPrivKeyEquals(t *testing.T) {
	priv := GenPrivKey()
	if !priv.Equals(priv) {
		t.Fatalf("PrivKey does not equal itself")
	}
	if priv.Equals(GenPrivKey()) {
		t.Fatalf("two distinct generated PrivKeys compared equal")
	}
}

func TestTypeIsStable(t *testing.T) {
	priv := GenPrivKey()
	if priv.Type() != KeyType {
		t.Fatalf("PrivKey.Type() = %q, want %q", priv.Type(), KeyType)
	}
	if priv.PubKey().Type() != KeyType {
		t.Fatalf("PubKey.Type() = %q, want %q", priv.PubKey().Type(), KeyType)
	}
}
