// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity provides the asymmetric side channel used to protect
// signaling payloads, and the directory lookup of peer public keys.
//
// The primitive is age x25519: EncryptForRecipient produces ASCII-armored
// ciphertext addressed to a peer's published public key, DecryptOwn opens
// ciphertext addressed to the local identity. The armor header doubles as
// an explicit marker distinguishing encrypted signaling payloads from the
// plaintext fallback, so receivers never have to guess from payload shape.
//
// The local private key lives in a secret.Buffer (mmap-backed, locked
// against swap, zeroed on close).
package identity

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/signet-chat/signet/lib/secret"
)

// Keypair holds an age x25519 keypair. The private key is protected;
// the public key is a plain age1... string, safe to publish to the
// directory.
type Keypair struct {
	Private *secret.Buffer
	Public  string
}

// Close releases the private key memory. Idempotent.
func (k *Keypair) Close() error {
	if k.Private != nil {
		return k.Private.Close()
	}
	return nil
}

// GenerateKeypair generates a fresh age x25519 keypair with the private
// key moved into protected memory. The caller must Close the keypair
// when done.
func GenerateKeypair() (*Keypair, error) {
	generated, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age keypair: %w", err)
	}

	// Move the AGE-SECRET-KEY-1... string into protected memory
	// immediately. The transient heap copy is zeroed by FromBytes; the
	// string returned by the age API is unavoidable and short-lived.
	private, err := secret.FromBytes([]byte(generated.String()))
	if err != nil {
		return nil, fmt.Errorf("protecting private key: %w", err)
	}

	return &Keypair{
		Private: private,
		Public:  generated.Recipient().String(),
	}, nil
}

// Sealer encrypts signaling payloads to peer public keys and decrypts
// payloads addressed to the local identity.
type Sealer struct {
	private *secret.Buffer
}

// NewSealer creates a Sealer over the given private key. The key is
// borrowed, not owned: closing the keypair invalidates the Sealer.
func NewSealer(private *secret.Buffer) *Sealer {
	return &Sealer{private: private}
}

// EncryptForRecipient encrypts plaintext to the given age public key and
// returns ASCII-armored ciphertext.
func (s *Sealer) EncryptForRecipient(plaintext []byte, recipientKey string) (string, error) {
	recipient, err := age.ParseX25519Recipient(recipientKey)
	if err != nil {
		return "", fmt.Errorf("parsing recipient key: %w", err)
	}

	var sealed bytes.Buffer
	armorWriter := armor.NewWriter(&sealed)
	encryptWriter, err := age.Encrypt(armorWriter, recipient)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := encryptWriter.Write(plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext: %w", err)
	}
	if err := encryptWriter.Close(); err != nil {
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return "", fmt.Errorf("finalizing armor: %w", err)
	}

	return sealed.String(), nil
}

// DecryptOwn decrypts armored ciphertext addressed to the local
// identity.
func (s *Sealer) DecryptOwn(armored string) ([]byte, error) {
	// The age API requires the identity as a string; the heap copy is
	// brief and call-scoped.
	parsed, err := age.ParseX25519Identity(s.private.String())
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	reader, err := age.Decrypt(armor.NewReader(strings.NewReader(armored)), parsed)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	return plaintext, nil
}

// IsArmored reports whether a signaling payload is age-armored
// ciphertext, as opposed to the plaintext JSON fallback.
func IsArmored(payload string) bool {
	return strings.HasPrefix(strings.TrimSpace(payload), armor.Header)
}

// ValidatePublicKey checks that a string parses as an age x25519 public
// key. Used on directory responses before sealing to them.
func ValidatePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}
