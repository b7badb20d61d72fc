package crypto_test

import (
	"bytes"
	"testing"

	"cachet/internal/crypto"
	"cachet/internal/domain"
)

func TestDH_Symmetric(t *testing.T) {
	aPriv, aPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bPriv, bPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	ab, err := crypto.DH(aPriv, bPub)
	if err != nil {
		t.Fatalf("DH: %v", err)
	}
	ba, err := crypto.DH(bPriv, aPub)
	if err != nil {
		t.Fatalf("DH: %v", err)
	}
	if ab != ba {
		t.Fatal("shared secrets disagree")
	}
	if ab == ([32]byte{}) {
		t.Fatal("shared secret is zero")
	}
}

func TestGenerateX25519_FreshPairs(t *testing.T) {
	_, pub1, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	_, pub2, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	if pub1 == pub2 {
		t.Fatal("two generated pairs share a public key")
	}
}

func TestEd25519_SignVerify(t *testing.T) {
	priv, pub, err := crypto.GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	msg := []byte("certificate bytes")
	sig := crypto.SignEd25519(priv, msg)

	if !crypto.VerifyEd25519(pub, msg, sig) {
		t.Fatal("valid signature rejected")
	}
	if crypto.VerifyEd25519(pub, []byte("other bytes"), sig) {
		t.Fatal("signature verified against different message")
	}
	sig[0] ^= 1
	if crypto.VerifyEd25519(pub, msg, sig) {
		t.Fatal("corrupted signature verified")
	}
}

func TestGCM_RoundTripAndTamper(t *testing.T) {
	var key domain.SymmetricKey
	key[0] = 0x7f
	iv, err := crypto.NewIV()
	if err != nil {
		t.Fatalf("NewIV: %v", err)
	}
	ad := []byte("header bytes")
	pt := []byte("payload")

	ct, err := crypto.SealGCM(key, iv, ad, pt)
	if err != nil {
		t.Fatalf("SealGCM: %v", err)
	}
	got, err := crypto.OpenGCM(key, iv, ad, ct)
	if err != nil {
		t.Fatalf("OpenGCM: %v", err)
	}
	if !bytes.Equal(got, pt) {
		t.Fatal("plaintext did not survive the round trip")
	}

	// Ciphertext, associated data and key are all bound by the tag.
	bad := append([]byte(nil), ct...)
	bad[0] ^= 1
	if _, err := crypto.OpenGCM(key, iv, ad, bad); err == nil {
		t.Fatal("tampered ciphertext accepted")
	}
	if _, err := crypto.OpenGCM(key, iv, []byte("other header"), ct); err == nil {
		t.Fatal("wrong associated data accepted")
	}
	key[1] ^= 1
	if _, err := crypto.OpenGCM(key, iv, ad, ct); err == nil {
		t.Fatal("wrong key accepted")
	}
}

func TestHKDF_LabelSeparation(t *testing.T) {
	ikm := []byte("input keying material")
	a := crypto.HKDF(ikm, nil, "label a")
	b := crypto.HKDF(ikm, nil, "label b")
	if a == b {
		t.Fatal("distinct labels produced the same key")
	}
	if a != crypto.HKDF(ikm, nil, "label a") {
		t.Fatal("derivation not deterministic")
	}
	if a == crypto.HKDF(ikm, []byte("salt"), "label a") {
		t.Fatal("salt had no effect")
	}
}

func TestHMACExpand_LabelSeparation(t *testing.T) {
	var key domain.SymmetricKey
	key[0] = 0x42
	a := crypto.HMACExpand(key, 0x01)
	b := crypto.HMACExpand(key, 0x02)
	if a == b {
		t.Fatal("distinct labels produced the same key")
	}
	if a == key || b == key {
		t.Fatal("expansion returned its input")
	}
}

func TestFingerprint(t *testing.T) {
	_, pub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	fp := crypto.Fingerprint(pub.Slice())
	if len(fp) != 20 {
		t.Fatalf("fingerprint length %d, want 20", len(fp))
	}
	if fp != crypto.Fingerprint(pub.Slice()) {
		t.Fatal("fingerprint not deterministic")
	}
}
