// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"fmt"
	"os"
	"strings"

	"filippo.io/age"

	"github.com/signet-chat/signet/lib/secret"
)

// LoadKeypairFile reads an age identity file (the AGE-SECRET-KEY-1...
// format written by age-keygen and SaveKeypairFile), moving the private
// key into protected memory. Comment lines and blank lines are skipped.
// The caller must Close the keypair when done.
func LoadKeypairFile(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(data)

	var keyLine string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keyLine = line
		break
	}
	if keyLine == "" {
		return nil, fmt.Errorf("identity file %s contains no key", path)
	}

	parsed, err := age.ParseX25519Identity(keyLine)
	if err != nil {
		return nil, fmt.Errorf("parsing identity file %s: %w", path, err)
	}

	private, err := secret.FromBytes([]byte(keyLine))
	if err != nil {
		return nil, fmt.Errorf("protecting private key: %w", err)
	}

	return &Keypair{
		Private: private,
		Public:  parsed.Recipient().String(),
	}, nil
}

// SaveKeypairFile writes the keypair's private key to an identity file
// readable only by the owner. The public key rides along as a comment,
// matching age-keygen output.
func SaveKeypairFile(keypair *Keypair, path string) error {
	content := fmt.Sprintf("# public key: %s\n%s\n", keypair.Public, keypair.Private.String())
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	return nil
}

func zeroBytes(buffer []byte) {
	for index := range buffer {
		buffer[index] = 0
	}
}
