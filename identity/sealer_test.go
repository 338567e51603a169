// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestSealRoundTrip(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()

	sealer := NewSealer(keypair.Private)
	plaintext := []byte(`{"sdp":"v=0...","type":"offer","aesKey":"c2VjcmV0"}`)

	armored, err := sealer.EncryptForRecipient(plaintext, keypair.Public)
	if err != nil {
		t.Fatalf("EncryptForRecipient: %v", err)
	}
	if !IsArmored(armored) {
		t.Error("sealed payload not recognized as armored")
	}
	if strings.Contains(armored, "aesKey") {
		t.Error("armored output leaks plaintext")
	}

	opened, err := sealer.DecryptOwn(armored)
	if err != nil {
		t.Fatalf("DecryptOwn: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("round trip = %q, want %q", opened, plaintext)
	}
}

func TestDecryptOwnRejectsForeignCiphertext(t *testing.T) {
	alice, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer alice.Close()
	bob, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer bob.Close()

	armored, err := NewSealer(alice.Private).EncryptForRecipient([]byte("for bob only"), bob.Public)
	if err != nil {
		t.Fatalf("EncryptForRecipient: %v", err)
	}

	if _, err := NewSealer(alice.Private).DecryptOwn(armored); err == nil {
		t.Fatal("decrypted ciphertext addressed to another identity")
	}
}

func TestEncryptForRecipientRejectsBadKey(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()

	if _, err := NewSealer(keypair.Private).EncryptForRecipient([]byte("x"), "not-a-key"); err == nil {
		t.Fatal("sealed to an invalid recipient key")
	}
}

func TestIsArmoredDistinguishesPlaintext(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{"json payload", `{"sdp":"v=0","type":"offer"}`, false},
		{"empty", "", false},
		{"armor header", "-----BEGIN AGE ENCRYPTED FILE-----\n...", true},
		{"armor header with leading space", "  -----BEGIN AGE ENCRYPTED FILE-----", true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsArmored(test.payload); got != test.want {
				t.Errorf("IsArmored(%q) = %v, want %v", test.payload, got, test.want)
			}
		})
	}
}

func TestValidatePublicKey(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()

	if err := ValidatePublicKey(keypair.Public); err != nil {
		t.Errorf("ValidatePublicKey(generated) = %v, want nil", err)
	}
	if err := ValidatePublicKey("age1garbage"); err == nil {
		t.Error("ValidatePublicKey accepted garbage")
	}
}

func TestKeypairFileRoundTrip(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()

	path := filepath.Join(t.TempDir(), "identity.age")
	if err := SaveKeypairFile(keypair, path); err != nil {
		t.Fatalf("SaveKeypairFile: %v", err)
	}

	loaded, err := LoadKeypairFile(path)
	if err != nil {
		t.Fatalf("LoadKeypairFile: %v", err)
	}
	defer loaded.Close()

	if got, want := loaded.Public, keypair.Public; got != want {
		t.Errorf("loaded public key = %s, want %s", got, want)
	}

	// The reloaded private key must open what the original sealed.
	armored, err := NewSealer(keypair.Private).EncryptForRecipient([]byte("hello"), keypair.Public)
	if err != nil {
		t.Fatalf("EncryptForRecipient: %v", err)
	}
	opened, err := NewSealer(loaded.Private).DecryptOwn(armored)
	if err != nil {
		t.Fatalf("DecryptOwn with reloaded key: %v", err)
	}
	if string(opened) != "hello" {
		t.Errorf("opened = %q, want %q", opened, "hello")
	}
}

func TestLoadKeypairFileMissing(t *testing.T) {
	if _, err := LoadKeypairFile(filepath.Join(t.TempDir(), "absent.age")); err == nil {
		t.Fatal("LoadKeypairFile on a missing file succeeded")
	}
}
