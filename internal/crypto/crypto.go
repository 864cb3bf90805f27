// Package crypto implements the pipeline's encryption adapter: convergent,
// convergent-with-secret, and random-key modes, all producing
// nonce(12) || ciphertext || tag(16) via ChaCha20-Poly1305.
package crypto

import (
	"crypto/rand"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"lukechampine.com/blake3"

	"github.com/zzenonn/fecvault/internal/domain"
	"github.com/zzenonn/fecvault/internal/errors"
)

const (
	keyDomainTag   = "fecvault-convergent-key-v1"
	nonceDomainTag = "fecvault-convergent-nonce-v1"
	algorithmName  = "chacha20poly1305"
)

// Engine derives keys/nonces and performs AEAD sealing/opening for all
// three encryption modes.
type Engine struct{}

// NewEngine returns a ready-to-use crypto engine. It holds no state: all
// derivation is a pure function of its inputs.
func NewEngine() *Engine {
	return &Engine{}
}

// deriveConvergentKey computes KDF("domain" || secret || plaintext), secret
// may be nil for plain convergent mode.
func deriveConvergentKey(plaintext, secret []byte) []byte {
	h := blake3.New(32, nil)
	h.Write([]byte(keyDomainTag))
	h.Write(secret)
	h.Write(plaintext)
	return h.Sum(nil)
}

// deriveConvergentNonce computes a distinct hash of the same inputs under a
// different domain tag, so key derivation and nonce derivation never
// collide even though they draw on the same (secret, plaintext) material.
func deriveConvergentNonce(plaintext, secret []byte) []byte {
	h := blake3.New(32, nil)
	h.Write([]byte(nonceDomainTag))
	h.Write(secret)
	h.Write(plaintext)
	sum := h.Sum(nil)
	return sum[:chacha20poly1305.NonceSize]
}

// GenerateRandomKey returns a fresh 256-bit key for EncryptionRandom mode.
func GenerateRandomKey() ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, errors.NewIoError("generate random key", err)
	}
	return key, nil
}

// EncryptResult bundles what the pipeline needs to store and, for random
// mode, what the caller needs to retain out-of-band.
type EncryptResult struct {
	Ciphertext []byte
	Metadata   domain.EncryptionMetadata
	// Key is populated only for EncryptionRandom; convergent modes derive
	// their key from the plaintext and don't need it stored.
	Key []byte
}

// Encrypt seals plaintext under mode. secret is the convergence secret for
// EncryptionConvergentWithSecret, and is ignored otherwise.
func (e *Engine) Encrypt(mode domain.EncryptionMode, plaintext, secret []byte) (EncryptResult, error) {
	var key, nonce []byte
	var err error

	switch mode {
	case domain.EncryptionConvergent:
		key = deriveConvergentKey(plaintext, nil)
		nonce = deriveConvergentNonce(plaintext, nil)
	case domain.EncryptionConvergentWithSecret:
		key = deriveConvergentKey(plaintext, secret)
		nonce = deriveConvergentNonce(plaintext, secret)
	case domain.EncryptionRandom:
		key, err = GenerateRandomKey()
		if err != nil {
			return EncryptResult{}, err
		}
		nonce = make([]byte, chacha20poly1305.NonceSize)
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return EncryptResult{}, errors.NewIoError("generate random nonce", err)
		}
	default:
		return EncryptResult{}, errors.InvalidParameters("unknown encryption mode: " + string(mode))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return EncryptResult{}, errors.NewBackendError("chacha20poly1305", err)
	}

	// Wire layout is nonce(12) || ciphertext || tag(16): the nonce is
	// prepended to the sealed output, not carried only in the metadata.
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ciphertext := make([]byte, 0, len(nonce)+len(sealed))
	ciphertext = append(ciphertext, nonce...)
	ciphertext = append(ciphertext, sealed...)

	meta := domain.EncryptionMetadata{
		Algorithm:     algorithmName,
		KeyDerivation: mode,
		Nonce:         nonce,
	}
	if mode == domain.EncryptionConvergentWithSecret {
		secretID := blake3.Sum256(secret)
		meta.ConvergenceSecretID = secretID[:16]
	}

	result := EncryptResult{Ciphertext: ciphertext, Metadata: meta}
	if mode == domain.EncryptionRandom {
		result.Key = key
	}
	return result, nil
}

// Decrypt opens ciphertext using meta. For convergent modes, plaintextHint
// must be the original plaintext (the circular dependency described in the
// design: the key is a hash of the plaintext). For random mode,
// plaintextHint is ignored and explicitKey must be supplied instead; if
// it's nil, Decrypt fails with ErrKeyUnavailable rather than guessing.
func (e *Engine) Decrypt(ciphertext []byte, meta domain.EncryptionMetadata, plaintextHint, secret, explicitKey []byte) ([]byte, error) {
	var key []byte

	switch meta.KeyDerivation {
	case domain.EncryptionConvergent:
		if plaintextHint == nil {
			return nil, errors.ErrKeyUnavailable
		}
		key = deriveConvergentKey(plaintextHint, nil)
	case domain.EncryptionConvergentWithSecret:
		if plaintextHint == nil {
			return nil, errors.ErrKeyUnavailable
		}
		key = deriveConvergentKey(plaintextHint, secret)
	case domain.EncryptionRandom:
		if explicitKey == nil {
			return nil, errors.ErrKeyUnavailable
		}
		key = explicitKey
	default:
		return nil, errors.InvalidParameters("unknown encryption mode: " + string(meta.KeyDerivation))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.NewBackendError("chacha20poly1305", err)
	}

	if len(ciphertext) < chacha20poly1305.NonceSize {
		return nil, errors.InvalidParameters("ciphertext shorter than the prepended nonce")
	}
	nonce, sealed := ciphertext[:chacha20poly1305.NonceSize], ciphertext[chacha20poly1305.NonceSize:]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.NewBackendError("chacha20poly1305", err)
	}
	return plaintext, nil
}

// ContentHash returns the 32-byte BLAKE3 digest of data, used as the chunk
// content address, the file data_id, and the metadata_hash. It is not a
// substitute for the plaintext hint Decrypt needs in convergent modes: the
// key is derived from the full plaintext.
func ContentHash(data []byte) [32]byte {
	return blake3.Sum256(data)
}
