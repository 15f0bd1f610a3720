package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SecurityMethod defines how API credentials are stored on disk.
type SecurityMethod string

const (
	SecurityPlainText SecurityMethod = "plaintext"
	SecuritySSHKey    SecurityMethod = "ssh_key"
)

// envKeys maps provider IDs to the environment variable that overrides the
// stored credential. Environment always wins: credential lookup, not
// credential management, is what the chat loop needs.
var envKeys = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// CredentialStore manages API keys, either plain-text or encrypted with a
// key derived from the user's SSH key.
type CredentialStore struct {
	method      SecurityMethod
	credentials map[string]string // providerID → API key
	enc         *EncryptionManager
}

// NewCredentialStore creates a credential store. sshKeyPath is only used
// for the ssh_key method.
func NewCredentialStore(method SecurityMethod, sshKeyPath string) *CredentialStore {
	store := &CredentialStore{
		method:      method,
		credentials: make(map[string]string),
	}
	if method == SecuritySSHKey {
		store.enc = NewEncryptionManager(sshKeyPath)
	}
	return store
}

// APIKey returns the credential for a provider, preferring the provider's
// environment variable over the stored value.
func (c *CredentialStore) APIKey(providerID string) string {
	if env := envKeys[providerID]; env != "" {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}
	return c.credentials[providerID]
}

// Set stores a credential in memory; call Save to persist it.
func (c *CredentialStore) Set(providerID, key string) {
	c.credentials[providerID] = key
}

// Load reads credentials from the data directory. A missing file is not an
// error: the store starts empty.
func (c *CredentialStore) Load(dataDir string) error {
	data, err := os.ReadFile(c.path(dataDir))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	if c.method == SecuritySSHKey {
		if err := c.enc.Initialize(); err != nil {
			return err
		}
		if data, err = c.enc.Decrypt(data); err != nil {
			return fmt.Errorf("failed to decrypt credentials: %w", err)
		}
	}

	if err := json.Unmarshal(data, &c.credentials); err != nil {
		return fmt.Errorf("failed to parse credentials: %w", err)
	}
	return nil
}

// Save persists credentials to the data directory with user-only
// permissions.
func (c *CredentialStore) Save(dataDir string) error {
	data, err := json.MarshalIndent(c.credentials, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if c.method == SecuritySSHKey {
		if err := c.enc.Initialize(); err != nil {
			return err
		}
		if data, err = c.enc.Encrypt(data); err != nil {
			return fmt.Errorf("failed to encrypt credentials: %w", err)
		}
	}

	if err := os.WriteFile(c.path(dataDir), data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

func (c *CredentialStore) path(dataDir string) string {
	if c.method == SecuritySSHKey {
		return filepath.Join(dataDir, "credentials.enc")
	}
	return filepath.Join(dataDir, "credentials.json")
}
