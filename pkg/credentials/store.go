package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

// StoreServiceName namespaces full credentials files stored in the system
// keyring, keyed by profile name.
const StoreServiceName = "kognic-credentials"

// DefaultProfile is the profile used when none is given.
const DefaultProfile = "default"

// LoadStored loads a full credentials file from the keyring, or nil when
// the profile does not exist, the record is unreadable, or no usable
// keyring backend is available.
func LoadStored(profile string) *ApiCredentials {
	if profile == "" {
		profile = DefaultProfile
	}

	stored, err := keyring.Get(StoreServiceName, profile)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("Failed to load credentials from keyring", "profile", profile, "error", err.Error())
		}
		return nil
	}

	creds, err := Parse([]byte(stored))
	if err != nil {
		slog.Debug("Corrupt credentials record in keyring", "profile", profile, "error", err.Error())
		return nil
	}
	return creds
}

// SaveStored stores a full credentials file in the keyring. Unlike the
// token cache, this errors when no usable keyring backend is available:
// the caller explicitly asked to persist a secret and silently dropping it
// would be surprising.
func SaveStored(creds ApiCredentials, profile string) error {
	if profile == "" {
		profile = DefaultProfile
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := keyring.Set(StoreServiceName, profile, string(data)); err != nil {
		return fmt.Errorf(
			"no usable keyring backend available, use environment variables or a credentials file instead: %w", err)
	}

	slog.Debug("Saved credentials to keyring", "profile", profile)
	return nil
}

// ClearStored removes a stored profile. No-op if absent or on failure.
func ClearStored(profile string) {
	if profile == "" {
		profile = DefaultProfile
	}

	if err := keyring.Delete(StoreServiceName, profile); err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("Failed to clear credentials from keyring", "profile", profile, "error", err.Error())
		}
		return
	}
	slog.Debug("Cleared credentials from keyring", "profile", profile)
}
