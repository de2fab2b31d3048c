// Package encryption seals document payloads before they leave the service.
package encryption

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	envelopeVersion = 1
	// KeySize is the required master key length.
	KeySize = chacha20poly1305.KeySize
	kdfInfo = "docverify:document-payload"
)

var (
	ErrInvalidKey      = errors.New("encryption: master key must be 32 bytes")
	ErrInvalidEnvelope = errors.New("encryption: malformed envelope")
)

// Envelope is an encrypted payload and the key that sealed it.
type Envelope struct {
	KeyID      string
	Ciphertext []byte
}

// Sealer encrypts payloads with XChaCha20-Poly1305 under a per-document key
// derived from the master key with HKDF-SHA256. The document ID is bound as
// additional data.
type Sealer struct {
	master []byte
	keyID  string
	rand   io.Reader
}

func NewSealer(masterKey []byte) (*Sealer, error) {
	if len(masterKey) != KeySize {
		return nil, ErrInvalidKey
	}
	sum := sha256.Sum256(masterKey)
	return &Sealer{
		master: append([]byte(nil), masterKey...),
		keyID:  hex.EncodeToString(sum[:8]),
		rand:   rand.Reader,
	}, nil
}

// KeyID identifies the master key without revealing it.
func (s *Sealer) KeyID() string {
	return s.keyID
}

// Encrypt returns version || nonce || ciphertext.
func (s *Sealer) Encrypt(ctx context.Context, documentID string, plaintext []byte) (Envelope, error) {
	if err := ctx.Err(); err != nil {
		return Envelope{}, err
	}
	aead, err := s.aead(documentID)
	if err != nil {
		return Envelope{}, err
	}
	out := make([]byte, 1+aead.NonceSize(), 1+aead.NonceSize()+len(plaintext)+aead.Overhead())
	out[0] = envelopeVersion
	nonce := out[1:]
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return Envelope{}, fmt.Errorf("encryption: read nonce: %w", err)
	}
	out = aead.Seal(out, nonce, plaintext, []byte(documentID))
	return Envelope{KeyID: s.keyID, Ciphertext: out}, nil
}

// Decrypt opens an envelope produced by Encrypt for the same document.
func (s *Sealer) Decrypt(documentID string, env Envelope) ([]byte, error) {
	if env.KeyID != s.keyID {
		return nil, fmt.Errorf("encryption: unknown key %s", env.KeyID)
	}
	aead, err := s.aead(documentID)
	if err != nil {
		return nil, err
	}
	data := env.Ciphertext
	if len(data) < 1+aead.NonceSize()+aead.Overhead() || data[0] != envelopeVersion {
		return nil, ErrInvalidEnvelope
	}
	nonce := data[1 : 1+aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, data[1+aead.NonceSize():], []byte(documentID))
	if err != nil {
		return nil, fmt.Errorf("encryption: open: %w", err)
	}
	return plaintext, nil
}

func (s *Sealer) aead(documentID string) (cipher.AEAD, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, s.master, []byte(documentID), []byte(kdfInfo)), key); err != nil {
		return nil, fmt.Errorf("encryption: derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("encryption: init cipher: %w", err)
	}
	return aead, nil
}
