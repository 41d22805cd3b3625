package auth

import (
	"bytes"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name         string
		masterSecret []byte
		purpose      string
		wantErr      bool
	}{
		{name: "valid derivation", masterSecret: []byte("this-is-a-secure-master-secret-for-testing"), purpose: "test-purpose-v1"},
		{name: "empty master secret", masterSecret: []byte{}, purpose: "test-purpose-v1", wantErr: true},
		{name: "nil master secret", masterSecret: nil, purpose: "test-purpose-v1", wantErr: true},
		{name: "empty purpose string is allowed", masterSecret: []byte("test-secret"), purpose: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveKey(tt.masterSecret, tt.purpose)

			if tt.wantErr {
				if err != ErrInvalidMasterSecret {
					t.Errorf("DeriveKey() error = %v, want %v", err, ErrInvalidMasterSecret)
				}
				return
			}
			if err != nil {
				t.Fatalf("DeriveKey() unexpected error: %v", err)
			}
			if len(key) != DerivedKeyLength {
				t.Errorf("DeriveKey() key length = %d, want %d", len(key), DerivedKeyLength)
			}
		})
	}
}

func TestDerivedKeysAreDeterministic(t *testing.T) {
	masterSecret := []byte("test-master-secret")

	key1, err := DeriveSessionKey(masterSecret)
	if err != nil {
		t.Fatalf("first derivation failed: %v", err)
	}
	key2, err := DeriveSessionKey(masterSecret)
	if err != nil {
		t.Fatalf("second derivation failed: %v", err)
	}

	if !bytes.Equal(key1, key2) {
		t.Error("session key derivation is not deterministic")
	}
}

func TestSessionAndCSRFKeysAreSeparate(t *testing.T) {
	masterSecret := []byte("shared-master-secret")

	sessionKey, err := DeriveSessionKey(masterSecret)
	if err != nil {
		t.Fatalf("failed to derive session key: %v", err)
	}
	csrfKey, err := DeriveCSRFKey(masterSecret)
	if err != nil {
		t.Fatalf("failed to derive csrf key: %v", err)
	}

	if bytes.Equal(sessionKey, csrfKey) {
		t.Error("session and csrf keys are identical")
	}
	if len(csrfKey) != DerivedKeyLength {
		t.Errorf("csrf key length = %d, want %d", len(csrfKey), DerivedKeyLength)
	}
}

func TestDifferentMasterSecretsProduceDifferentKeys(t *testing.T) {
	key1, err := DeriveSessionKey([]byte("first-master-secret"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	key2, err := DeriveSessionKey([]byte("second-master-secret"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if bytes.Equal(key1, key2) {
		t.Error("different master secrets produced the same key")
	}
}
