package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/ssh"
)

// EncryptionManager encrypts credential data with AES-256-GCM using a key
// derived deterministically from the user's SSH private key: signing a
// fixed message and hashing the signature means the same SSH key always
// yields the same AES key, with nothing extra to store.
type EncryptionManager struct {
	sshKeyPath string
	aesKey     []byte
}

func NewEncryptionManager(sshKeyPath string) *EncryptionManager {
	return &EncryptionManager{sshKeyPath: sshKeyPath}
}

// Initialize loads the SSH key and derives the AES key. Idempotent.
func (e *EncryptionManager) Initialize() error {
	if e.aesKey != nil {
		return nil
	}

	keyData, err := os.ReadFile(ExpandPath(e.sshKeyPath))
	if err != nil {
		return fmt.Errorf("failed to read SSH key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return fmt.Errorf("failed to parse SSH key: %w", err)
	}

	signature, err := signer.Sign(rand.Reader, []byte("terp-encryption-key-derivation-v1"))
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}
	hash := sha256.Sum256(signature.Blob)
	e.aesKey = hash[:]
	return nil
}

// Encrypt seals plaintext as [nonce][ciphertext+tag].
func (e *EncryptionManager) Encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens data sealed by Encrypt.
func (e *EncryptionManager) Decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

func (e *EncryptionManager) gcm() (cipher.AEAD, error) {
	if e.aesKey == nil {
		return nil, fmt.Errorf("encryption manager not initialized")
	}
	block, err := aes.NewCipher(e.aesKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
