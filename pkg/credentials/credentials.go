// Package credentials normalizes the heterogeneous ways Kognic API client
// credentials can be supplied (an explicit id/secret pair, a credentials
// JSON file, an in-memory credentials value, a keyring profile, or
// environment variables) into a (client id, client secret) pair.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// KeyringScheme prefixes an auth string referring to a stored keyring profile.
const KeyringScheme = "keyring://"

// ErrUnresolved is wrapped by errors returned when no usable client
// credentials could be found in any source.
var ErrUnresolved = errors.New("no usable client credentials found")

// ApiCredentials is the content of a Kognic API credentials file.
type ApiCredentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	Email        string `json:"email"`
	UserID       int64  `json:"userId"`
	Issuer       string `json:"issuer"`
}

// requiredFileKeys must all be present in a credentials file.
var requiredFileKeys = []string{"clientId", "clientSecret", "email", "userId", "issuer"}

// Auth is a credential input accepted by Resolve.
type Auth interface {
	resolve() (clientID, clientSecret string, err error)
}

// Pair is an explicit client id/secret pair.
type Pair struct {
	ClientID     string
	ClientSecret string
}

func (p Pair) resolve() (string, string, error) {
	if p.ClientID == "" || p.ClientSecret == "" {
		return "", "", fmt.Errorf("incomplete credentials pair: %w", ErrUnresolved)
	}
	return p.ClientID, p.ClientSecret, nil
}

// File is a path to a credentials JSON file.
type File string

func (f File) resolve() (string, string, error) {
	creds, err := ParseFile(string(f))
	if err != nil {
		return "", "", err
	}
	return creds.ClientID, creds.ClientSecret, nil
}

// KeyringProfile names a credentials profile stored in the system keyring.
type KeyringProfile string

func (p KeyringProfile) resolve() (string, string, error) {
	profile := string(p)
	if profile == "" {
		profile = DefaultProfile
	}
	creds := LoadStored(profile)
	if creds == nil {
		return "", "", fmt.Errorf(
			"no credentials found in keyring for profile %q: %w", profile, ErrUnresolved)
	}
	return creds.ClientID, creds.ClientSecret, nil
}

func (c ApiCredentials) resolve() (string, string, error) {
	if c.ClientID == "" || c.ClientSecret == "" {
		return "", "", fmt.Errorf("incomplete in-memory credentials: %w", ErrUnresolved)
	}
	return c.ClientID, c.ClientSecret, nil
}

// FromString interprets an auth string as either a keyring://<profile> URI
// or a credentials file path.
func FromString(s string) Auth {
	if strings.HasPrefix(s, KeyringScheme) {
		return KeyringProfile(strings.TrimPrefix(s, KeyringScheme))
	}
	return File(s)
}

// Resolve normalizes a credential input into a client id/secret pair.
// A nil auth falls back to the environment: the KOGNIC_CREDENTIALS file
// path, then KOGNIC_CLIENT_ID/KOGNIC_CLIENT_SECRET, then the default
// keyring profile. Errors wrap ErrUnresolved when nothing usable is found.
func Resolve(auth Auth) (clientID, clientSecret string, err error) {
	if auth != nil {
		return auth.resolve()
	}
	return resolveFromEnv()
}

// envCredentials mirrors the environment variables recognized by all Kognic
// clients.
type envCredentials struct {
	CredentialsPath string `env:"KOGNIC_CREDENTIALS"`
	ClientID        string `env:"KOGNIC_CLIENT_ID"`
	ClientSecret    string `env:"KOGNIC_CLIENT_SECRET"`
}

func resolveFromEnv() (string, string, error) {
	var cfg envCredentials
	if err := env.Parse(&cfg); err != nil {
		return "", "", fmt.Errorf("failed to read credential environment variables: %w", err)
	}

	if cfg.CredentialsPath != "" {
		creds, err := ParseFile(cfg.CredentialsPath)
		if err != nil {
			return "", "", fmt.Errorf("KOGNIC_CREDENTIALS: %w", err)
		}
		return creds.ClientID, creds.ClientSecret, nil
	}

	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		return cfg.ClientID, cfg.ClientSecret, nil
	}

	if creds := LoadStored(DefaultProfile); creds != nil {
		return creds.ClientID, creds.ClientSecret, nil
	}

	return "", "", ErrUnresolved
}

// ParseFile reads and validates a credentials JSON file.
func ParseFile(path string) (*ApiCredentials, error) {
	if !strings.HasSuffix(path, ".json") {
		return nil, fmt.Errorf("bad auth credentials file, must be json: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("could not find api credentials file at %s", path)
		}
		return nil, fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates and decodes raw credentials file content. All required
// keys must be present.
func Parse(data []byte) (*ApiCredentials, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("credentials file is not a json object: %w", err)
	}
	for _, k := range requiredFileKeys {
		if _, ok := doc[k]; !ok {
			return nil, fmt.Errorf("missing key %s in credentials file", k)
		}
	}

	var creds ApiCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials file: %w", err)
	}
	return &creds, nil
}
