package credentials

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/models"
)

// Reason classifies why a credential could not be resolved.
type Reason string

const (
	ReasonNotFound      Reason = "not_found"
	ReasonDecryptFailed Reason = "decrypt_failed"
)

// CredentialError is terminal for the calling job; callers must not retry.
type CredentialError struct {
	Reason  Reason
	OwnerID uint
	Err     error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential %s for owner %d: %v", e.Reason, e.OwnerID, e.Err)
	}
	return fmt.Sprintf("credential %s for owner %d", e.Reason, e.OwnerID)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// Credential is the resolved, plaintext-token view handed to adapters.
type Credential struct {
	OwnerID           uint
	Token             string
	PhoneNumberID     string
	BusinessAccountID string
}

// Store is the subset of the credential table the resolver reads.
type Store interface {
	ActiveCredential(ctx context.Context, ownerID uint) (*models.Credential, error)
}

type Resolver struct {
	store  Store
	key    []byte
	logger *zap.Logger
}

func NewResolver(store Store, keyHex string, logger *zap.Logger) (*Resolver, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode crypto key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("crypto key must be 32 bytes, got %d", len(key))
	}

	return &Resolver{
		store:  store,
		key:    key,
		logger: logger,
	}, nil
}

// Resolve looks up the single active credential row for an owner and
// decrypts its token. Both failure modes are terminal for the caller.
func (r *Resolver) Resolve(ctx context.Context, ownerID uint) (*Credential, error) {
	row, err := r.store.ActiveCredential(ctx, ownerID)
	if err != nil {
		return nil, &CredentialError{Reason: ReasonNotFound, OwnerID: ownerID, Err: err}
	}
	if row == nil || !row.IsActive {
		return nil, &CredentialError{Reason: ReasonNotFound, OwnerID: ownerID}
	}

	token, err := decryptToken(r.key, row.EncryptedToken)
	if err != nil {
		r.logger.Warn("Failed to decrypt stored token",
			zap.Uint("owner_id", ownerID),
			zap.Error(err))
		return nil, &CredentialError{Reason: ReasonDecryptFailed, OwnerID: ownerID, Err: err}
	}

	return &Credential{
		OwnerID:           ownerID,
		Token:             token,
		PhoneNumberID:     row.PhoneNumberID,
		BusinessAccountID: row.BusinessAccountID,
	}, nil
}

// decryptToken reverses the iv_hex ":" ciphertext_hex AES-256-CBC scheme
// used by the connection management flow.
func decryptToken(key []byte, stored string) (string, error) {
	parts := strings.SplitN(stored, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed ciphertext")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("failed to decode IV: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("IV must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := stripPKCS7(plaintext)
	if err != nil {
		return "", err
	}

	return string(unpadded), nil
}

func stripPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding")
	}
	if !bytes.Equal(data[len(data)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, fmt.Errorf("invalid padding")
	}
	return data[:len(data)-n], nil
}
