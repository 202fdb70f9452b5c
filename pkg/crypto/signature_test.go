package crypto

import "testing"

func TestSignAndVerify(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	hash := Hash([]byte("message to sign"))

	sig, err := priv.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if !VerifySignature(hash[:], sig, priv.PublicKey()) {
		t.Error("valid signature should verify")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv1, _ := GenerateKey()
	priv2, _ := GenerateKey()
	hash := Hash([]byte("message"))

	sig, err := priv1.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if VerifySignature(hash[:], sig, priv2.PublicKey()) {
		t.Error("signature should not verify against the wrong public key")
	}
}

func TestVerifyRejectsTamperedHash(t *testing.T) {
	priv, _ := GenerateKey()
	hash := Hash([]byte("original"))
	tampered := Hash([]byte("tampered"))

	sig, err := priv.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if VerifySignature(tampered[:], sig, priv.PublicKey()) {
		t.Error("signature should not verify against a different hash")
	}
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	if VerifySignature([]byte{1, 2, 3}, []byte{4, 5, 6}, []byte{7, 8, 9}) {
		t.Error("malformed signature/key should never verify")
	}
}

func TestPrivateKeyFromBytesRoundTrip(t *testing.T) {
	priv, _ := GenerateKey()
	raw := priv.Serialize()

	restored, err := PrivateKeyFromBytes(raw)
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes: %v", err)
	}
	if string(restored.PublicKey()) != string(priv.PublicKey()) {
		t.Error("restored key should derive the same public key")
	}
}

func TestECDSAVerifier(t *testing.T) {
	priv, _ := GenerateKey()
	hash := Hash([]byte("via verifier"))
	sig, err := priv.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	var v ECDSAVerifier
	if !v.Verify(hash[:], sig, priv.PublicKey()) {
		t.Error("ECDSAVerifier should accept a valid signature")
	}
}
