// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint returns a short hex digest of key material for logging.
// Log lines reference keys by fingerprint only; raw key bytes never
// reach the logger.
func Fingerprint(material []byte) string {
	sum := blake3.Sum256(material)
	return hex.EncodeToString(sum[:8])
}
