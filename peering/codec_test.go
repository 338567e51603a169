// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCodec(t *testing.T, peers ...string) (*Codec, *KeyStore) {
	t.Helper()
	store := NewKeyStore(discardLogger())
	for _, peer := range peers {
		if _, err := store.Generate(peer); err != nil {
			t.Fatalf("Generate(%s): %v", peer, err)
		}
	}
	return NewCodec(store), store
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	codec, _ := newTestCodec(t, "bob")

	sealed, err := codec.Encrypt("bob", []byte("hello, bob"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if len(sealed.IV) != 12 {
		t.Errorf("IV length = %d, want 12", len(sealed.IV))
	}
	if len(sealed.Tag) != 16 {
		t.Errorf("Tag length = %d, want 16", len(sealed.Tag))
	}

	plaintext, err := codec.Decrypt("bob", sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(plaintext) != "hello, bob" {
		t.Errorf("round trip = %q, want %q", plaintext, "hello, bob")
	}
}

func TestEncryptWithoutKey(t *testing.T) {
	codec, _ := newTestCodec(t)
	if _, err := codec.Encrypt("stranger", []byte("x")); !errors.Is(err, ErrNoKey) {
		t.Fatalf("Encrypt without key = %v, want ErrNoKey", err)
	}
}

func TestDecryptWithoutKey(t *testing.T) {
	codec, _ := newTestCodec(t)
	if _, err := codec.Decrypt("stranger", Sealed{}); !errors.Is(err, ErrNoKey) {
		t.Fatalf("Decrypt without key = %v, want ErrNoKey", err)
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	codec, _ := newTestCodec(t, "bob")

	sealed, err := codec.Encrypt("bob", []byte("authentic"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	tamper := func(name string, mutate func(*Sealed)) {
		t.Run(name, func(t *testing.T) {
			corrupted := Sealed{
				IV:         append([]byte(nil), sealed.IV...),
				Ciphertext: append([]byte(nil), sealed.Ciphertext...),
				Tag:        append([]byte(nil), sealed.Tag...),
			}
			mutate(&corrupted)

			_, err := codec.Decrypt("bob", corrupted)
			var authErr *AuthenticationError
			if !errors.As(err, &authErr) {
				t.Fatalf("Decrypt = %v, want *AuthenticationError", err)
			}
			if authErr.Peer != "bob" {
				t.Errorf("AuthenticationError.Peer = %s, want bob", authErr.Peer)
			}
		})
	}

	tamper("flipped ciphertext bit", func(s *Sealed) { s.Ciphertext[0] ^= 0x01 })
	tamper("flipped tag bit", func(s *Sealed) { s.Tag[0] ^= 0x01 })
	tamper("truncated iv", func(s *Sealed) { s.IV = s.IV[:8] })
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	alice, _ := newTestCodec(t, "peer")
	mallory, _ := newTestCodec(t, "peer")

	sealed, err := alice.Encrypt("peer", []byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	var authErr *AuthenticationError
	if _, err := mallory.Decrypt("peer", sealed); !errors.As(err, &authErr) {
		t.Fatalf("Decrypt under a different key = %v, want *AuthenticationError", err)
	}
}

func TestEncryptUsesFreshNonces(t *testing.T) {
	codec, _ := newTestCodec(t, "bob")

	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		sealed, err := codec.Encrypt("bob", []byte("same plaintext"))
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		iv := string(sealed.IV)
		if seen[iv] {
			t.Fatalf("nonce repeated after %d encryptions", i)
		}
		seen[iv] = true
	}
}

func TestEncodeFrameEncryptedRoundTrip(t *testing.T) {
	codec, _ := newTestCodec(t, "bob")

	data, encrypted := codec.EncodeFrame("bob", "over the channel")
	if !encrypted {
		t.Fatal("EncodeFrame with key = plaintext, want encrypted")
	}

	var parsed frame
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("frame is not JSON: %v", err)
	}
	if !parsed.Encrypted {
		t.Error("frame marker = false, want true")
	}
	if parsed.Text != "" {
		t.Error("encrypted frame carries plaintext text field")
	}

	text, err := codec.DecodeFrame("bob", data)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if text != "over the channel" {
		t.Errorf("DecodeFrame = %q, want %q", text, "over the channel")
	}
}

func TestEncodeFrameFallsBackToPlaintext(t *testing.T) {
	codec, _ := newTestCodec(t)

	data, encrypted := codec.EncodeFrame("stranger", "no key for you")
	if encrypted {
		t.Fatal("EncodeFrame without key = encrypted, want plaintext")
	}

	var parsed frame
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("frame is not JSON: %v", err)
	}
	if parsed.Encrypted {
		t.Error("frame marker = true for plaintext fallback")
	}
	if parsed.Text != "no key for you" {
		t.Errorf("frame text = %q", parsed.Text)
	}

	text, err := codec.DecodeFrame("stranger", data)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if text != "no key for you" {
		t.Errorf("DecodeFrame = %q", text)
	}
}

func TestDecodeFrameEncryptedWithoutKey(t *testing.T) {
	sender, _ := newTestCodec(t, "peer")
	receiver, _ := newTestCodec(t)

	data, encrypted := sender.EncodeFrame("peer", "sealed")
	if !encrypted {
		t.Fatal("sender failed to encrypt")
	}

	if _, err := receiver.DecodeFrame("peer", data); !errors.Is(err, ErrNoKey) {
		t.Fatalf("DecodeFrame = %v, want ErrNoKey", err)
	}
}

func TestDecodeFrameRawText(t *testing.T) {
	codec, _ := newTestCodec(t, "bob")

	// A peer speaking bare text instead of the frame format.
	text, err := codec.DecodeFrame("bob", []byte("just words"))
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if text != "just words" {
		t.Errorf("DecodeFrame = %q, want %q", text, "just words")
	}
}

func TestDecodeFrameRejectsBinaryGarbage(t *testing.T) {
	codec, _ := newTestCodec(t, "bob")

	if _, err := codec.DecodeFrame("bob", []byte{0xFF, 0xFE, 0x00, 0x80}); err == nil {
		t.Fatal("DecodeFrame accepted invalid UTF-8 non-JSON data")
	}
}

func TestSealedJSONUsesBase64(t *testing.T) {
	codec, _ := newTestCodec(t, "bob")
	sealed, err := codec.Encrypt("bob", []byte("x"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	data, err := json.Marshal(sealed)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Sealed
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if plaintext, err := codec.Decrypt("bob", decoded); err != nil || string(plaintext) != "x" {
		t.Errorf("Decrypt after JSON round trip = %q, %v", plaintext, err)
	}
}
