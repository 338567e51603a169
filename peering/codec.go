// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// nonceSize is the AES-GCM nonce length. A fresh random nonce is drawn
// per Encrypt call; reuse under the same key would void the AEAD's
// guarantees.
const nonceSize = 12

// Sealed is one encrypted message: nonce, ciphertext, and the GCM
// authentication tag, kept as separate fields to match the data-channel
// frame layout. Byte fields marshal as base64 in JSON.
type Sealed struct {
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
	Tag        []byte `json:"tag"`
}

// Codec encrypts and decrypts application messages with the per-peer
// session key (AES-256-GCM). It reads the key store and nothing else;
// fallback policy for missing keys belongs to the Manager.
type Codec struct {
	keys *KeyStore
}

// NewCodec creates a codec over the given key store.
func NewCodec(keys *KeyStore) *Codec {
	return &Codec{keys: keys}
}

// Encrypt seals plaintext with the peer's session key under a fresh
// random nonce. Returns ErrNoKey when no key is installed.
func (c *Codec) Encrypt(peerID string, plaintext []byte) (Sealed, error) {
	aead, err := c.aead(peerID)
	if err != nil {
		return Sealed{}, err
	}

	iv := make([]byte, nonceSize)
	if _, err := rand.Read(iv); err != nil {
		return Sealed{}, fmt.Errorf("peering: generating nonce: %w", err)
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - aead.Overhead()
	return Sealed{
		IV:         iv,
		Ciphertext: sealed[:tagStart],
		Tag:        sealed[tagStart:],
	}, nil
}

// Decrypt opens a sealed message with the peer's session key. Returns
// ErrNoKey when no key is installed, or *AuthenticationError when the
// tag does not verify.
func (c *Codec) Decrypt(peerID string, sealed Sealed) ([]byte, error) {
	aead, err := c.aead(peerID)
	if err != nil {
		return nil, err
	}
	if len(sealed.IV) != nonceSize {
		return nil, &AuthenticationError{Peer: peerID}
	}

	combined := make([]byte, 0, len(sealed.Ciphertext)+len(sealed.Tag))
	combined = append(combined, sealed.Ciphertext...)
	combined = append(combined, sealed.Tag...)

	plaintext, err := aead.Open(nil, sealed.IV, combined, nil)
	if err != nil {
		return nil, &AuthenticationError{Peer: peerID}
	}
	return plaintext, nil
}

func (c *Codec) aead(peerID string) (cipher.AEAD, error) {
	key, ok := c.keys.Get(peerID)
	if !ok {
		return nil, ErrNoKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("peering: initializing cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// frame is the data-channel wire format. The explicit Encrypted marker
// removes the guess-from-shape ambiguity between encrypted and
// plaintext traffic: receivers branch on the flag, never on whether a
// decrypt attempt happens to succeed.
type frame struct {
	Encrypted  bool   `json:"encrypted"`
	IV         []byte `json:"iv,omitempty"`
	Ciphertext []byte `json:"ciphertext,omitempty"`
	Tag        []byte `json:"tag,omitempty"`
	Text       string `json:"text,omitempty"`
}

// EncodeFrame seals text for the peer's data channel. When no session
// key is installed (or sealing fails), the message goes out as a marked
// plaintext frame rather than being dropped. The second return reports
// whether the frame is encrypted.
func (c *Codec) EncodeFrame(peerID, text string) ([]byte, bool) {
	sealed, err := c.Encrypt(peerID, []byte(text))
	if err != nil {
		data, _ := json.Marshal(frame{Encrypted: false, Text: text})
		return data, false
	}
	data, err := json.Marshal(frame{
		Encrypted:  true,
		IV:         sealed.IV,
		Ciphertext: sealed.Ciphertext,
		Tag:        sealed.Tag,
	})
	if err != nil {
		data, _ := json.Marshal(frame{Encrypted: false, Text: text})
		return data, false
	}
	return data, true
}

// DecodeFrame interprets an inbound data-channel payload. Marked
// encrypted frames are decrypted (ErrNoKey and authentication failures
// propagate); marked plaintext frames pass through. Raw data that is
// not a frame at all is returned verbatim when it is valid UTF-8, the
// compatibility fallback for peers sending bare text.
func (c *Codec) DecodeFrame(peerID string, data []byte) (string, error) {
	var parsed frame
	if err := json.Unmarshal(data, &parsed); err != nil {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("peering: frame from %s is neither JSON nor text", peerID)
		}
		return string(data), nil
	}

	if !parsed.Encrypted {
		return parsed.Text, nil
	}

	plaintext, err := c.Decrypt(peerID, Sealed{
		IV:         parsed.IV,
		Ciphertext: parsed.Ciphertext,
		Tag:        parsed.Tag,
	})
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
