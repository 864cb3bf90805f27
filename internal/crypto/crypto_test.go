package crypto

import (
	"bytes"
	"testing"

	"github.com/zzenonn/fecvault/internal/domain"
	"github.com/zzenonn/fecvault/internal/errors"
)

func TestConvergentEncryptionIsDeterministic(t *testing.T) {
	e := NewEngine()
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	r1, err := e.Encrypt(domain.EncryptionConvergent, plaintext, nil)
	if err != nil {
		t.Fatalf("Encrypt #1 failed: %v", err)
	}
	r2, err := e.Encrypt(domain.EncryptionConvergent, plaintext, nil)
	if err != nil {
		t.Fatalf("Encrypt #2 failed: %v", err)
	}

	if !bytes.Equal(r1.Ciphertext, r2.Ciphertext) {
		t.Fatal("convergent encryption of identical plaintext must be deterministic, ciphertexts differ")
	}
	if !bytes.Equal(r1.Metadata.Nonce, r2.Metadata.Nonce) {
		t.Fatal("convergent nonce must be deterministic")
	}
}

func TestConvergentDistinctPlaintextsDiverge(t *testing.T) {
	e := NewEngine()
	r1, err := e.Encrypt(domain.EncryptionConvergent, []byte("alpha"), nil)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	r2, err := e.Encrypt(domain.EncryptionConvergent, []byte("beta"), nil)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Equal(r1.Ciphertext, r2.Ciphertext) {
		t.Fatal("distinct plaintexts must not produce the same ciphertext")
	}
	if bytes.Equal(r1.Metadata.Nonce, r2.Metadata.Nonce) {
		t.Fatal("distinct plaintexts must not produce the same nonce")
	}
}

func TestConvergentWithSecretDependsOnSecret(t *testing.T) {
	e := NewEngine()
	plaintext := []byte("shared content across two tenants")

	r1, err := e.Encrypt(domain.EncryptionConvergentWithSecret, plaintext, []byte("tenant-a-secret"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	r2, err := e.Encrypt(domain.EncryptionConvergentWithSecret, plaintext, []byte("tenant-b-secret"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Equal(r1.Ciphertext, r2.Ciphertext) {
		t.Fatal("different convergence secrets must yield different ciphertexts for the same plaintext")
	}
	if bytes.Equal(r1.Metadata.ConvergenceSecretID, r2.Metadata.ConvergenceSecretID) {
		t.Fatal("different secrets must yield different secret ids")
	}
}

func TestRoundTripConvergent(t *testing.T) {
	e := NewEngine()
	plaintext := []byte("round trip me")

	r, err := e.Encrypt(domain.EncryptionConvergent, plaintext, nil)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	got, err := e.Decrypt(r.Ciphertext, r.Metadata, plaintext, nil, nil)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestRoundTripRandomKey(t *testing.T) {
	e := NewEngine()
	plaintext := []byte("random key round trip")

	r, err := e.Encrypt(domain.EncryptionRandom, plaintext, nil)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if len(r.Key) == 0 {
		t.Fatal("random mode must return the generated key")
	}

	got, err := e.Decrypt(r.Ciphertext, r.Metadata, nil, nil, r.Key)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestRandomModeDecryptWithoutKeyFails(t *testing.T) {
	e := NewEngine()
	r, err := e.Encrypt(domain.EncryptionRandom, []byte("secret stuff"), nil)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	_, err = e.Decrypt(r.Ciphertext, r.Metadata, nil, nil, nil)
	if err != errors.ErrKeyUnavailable {
		t.Fatalf("expected ErrKeyUnavailable, got %v", err)
	}
}

func TestTamperDetection(t *testing.T) {
	e := NewEngine()
	plaintext := []byte("don't touch this")
	r, err := e.Encrypt(domain.EncryptionConvergent, plaintext, nil)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	tampered := make([]byte, len(r.Ciphertext))
	copy(tampered, r.Ciphertext)
	tampered[0] ^= 0xFF

	if _, err := e.Decrypt(tampered, r.Metadata, plaintext, nil, nil); err == nil {
		t.Fatal("expected AEAD authentication failure on tampered ciphertext")
	}
}

func TestRandomModeProducesDistinctCiphertextsForSamePlaintext(t *testing.T) {
	e := NewEngine()
	plaintext := []byte("same content, random mode")

	r1, err := e.Encrypt(domain.EncryptionRandom, plaintext, nil)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	r2, err := e.Encrypt(domain.EncryptionRandom, plaintext, nil)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Equal(r1.Ciphertext, r2.Ciphertext) {
		t.Fatal("random mode must not be deterministic across calls")
	}
}

func TestContentHashIsStable(t *testing.T) {
	data := []byte("hash me")
	h1 := ContentHash(data)
	h2 := ContentHash(data)
	if h1 != h2 {
		t.Fatal("ContentHash must be deterministic for identical input")
	}
}
