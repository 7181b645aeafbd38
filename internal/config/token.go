package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

const (
	keychainService = "clipd"
	keychainAccount = "api_token"
)

// Seams over the platform secret store so token resolution is testable
// without touching the real Keychain.
var (
	secretGet = keychainGet
	secretSet = keychainSet
)

// EnsureAPIToken returns the API token shared by the daemon and its local
// clients, minting and persisting a fresh one on first run.
//
// Resolution order: the CLIPD_API_TOKEN environment variable, then the
// platform secret store. On macOS that is the Keychain (service: clipd,
// account: api_token); elsewhere a secrets file under $XDG_DATA_HOME/clipd.
func EnsureAPIToken() (string, error) {
	if t := os.Getenv("CLIPD_API_TOKEN"); t != "" {
		return t, nil
	}

	if raw, err := secretGet(keychainService, keychainAccount); err == nil {
		if t := strings.TrimSpace(string(raw)); t != "" {
			return t, nil
		}
	}

	token := uuid.NewString()
	if err := secretSet(keychainService, keychainAccount, token); err != nil {
		return "", fmt.Errorf("storing api token: %w", err)
	}
	return token, nil
}
