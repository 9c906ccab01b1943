// Package settings stores jsonlate's per-user credentials.
//
// Keys live in the XDG data directory:
//
//	$XDG_DATA_HOME/jsonlate/auth.json  (default: ~/.local/share/jsonlate/)
//
// The file is a JSON object keyed by provider ID ("deepl", "openai"). It is
// written with 0600 permissions.
//
// Lookup order for API keys:
//  1. --api-key flag
//  2. JSONLATE_API_KEY / DEEPL_API_KEY (or OPENAI_API_KEY for openai)
//  3. .env file in the working directory
//  4. This credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	dataDirName = "jsonlate"
	fileName    = "auth.json"
)

// Info is one stored credential.
type Info struct {
	Key string `json:"key"`
	// Endpoint is an optional base URL to use with this key.
	Endpoint string `json:"endpoint,omitempty"`
}

// Store holds credentials keyed by provider ID.
type Store map[string]*Info

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// dataDir respects $XDG_DATA_HOME and falls back to ~/.local/share.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// DataDir returns the jsonlate data directory.
func DataDir() (string, error) {
	return dataDir()
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the credential store. A missing or unreadable file yields an
// empty store.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the credential store with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

// SetAPIKey stores key for a provider, replacing any previous entry.
func SetAPIKey(providerID, key, endpoint string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty API key for %s", providerID)
	}
	store := Load()
	store[providerID] = &Info{Key: key, Endpoint: endpoint}
	return Save(store)
}

// GetAPIKey returns the stored key for a provider, or "".
func GetAPIKey(providerID string) string {
	if info := Load()[providerID]; info != nil {
		return info.Key
	}
	return ""
}

// GetEndpoint returns the stored endpoint for a provider, or "".
func GetEndpoint(providerID string) string {
	if info := Load()[providerID]; info != nil {
		return info.Endpoint
	}
	return ""
}

// Remove deletes the credentials of a provider. Removing an unknown
// provider is a no-op.
func Remove(providerID string) error {
	store := Load()
	if _, ok := store[providerID]; !ok {
		return nil
	}
	delete(store, providerID)
	return Save(store)
}

// RemoveAll deletes the credential file.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// List returns the provider IDs that have a stored key, sorted.
func List() []string {
	store := Load()
	ids := make([]string, 0, len(store))
	for id, info := range store {
		if info != nil && info.Key != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// EnvVarForProvider returns the conventional environment variable holding
// a provider's key.
func EnvVarForProvider(providerID string) string {
	switch providerID {
	case "deepl":
		return "DEEPL_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// ResolveAPIKey picks a key for providerID: the configured value if set,
// then the provider's environment variable, then the credential store.
func ResolveAPIKey(providerID, configured string) string {
	if configured != "" {
		return configured
	}
	if env := EnvVarForProvider(providerID); env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return GetAPIKey(providerID)
}

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
