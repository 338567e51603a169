// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"testing"
)

func TestFromBytesCopiesAndZeroesSource(t *testing.T) {
	source := []byte("AGE-SECRET-KEY-1EXAMPLE")
	original := append([]byte(nil), source...)

	buffer, err := FromBytes(source)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	defer buffer.Close()

	if !bytes.Equal(buffer.Bytes(), original) {
		t.Errorf("Bytes() = %q, want %q", buffer.Bytes(), original)
	}
	for index, b := range source {
		if b != 0 {
			t.Fatalf("source[%d] = %d, want 0 after FromBytes", index, b)
		}
	}
}

func TestFromBytesRejectsEmpty(t *testing.T) {
	if _, err := FromBytes(nil); err == nil {
		t.Fatal("FromBytes(nil) succeeded, want error")
	}
}

func TestStringMatchesBytes(t *testing.T) {
	buffer, err := FromBytes([]byte("sensitive"))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	defer buffer.Close()

	if got, want := buffer.String(), "sensitive"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := buffer.Len(), len("sensitive"); got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	buffer, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestReadAfterClosePanics(t *testing.T) {
	buffer, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buffer.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("Bytes after Close did not panic")
		}
	}()
	buffer.Bytes()
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("New(0) succeeded, want error")
	}
}
