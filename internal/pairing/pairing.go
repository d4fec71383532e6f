// Package pairing resolves the device identity that binds a hook
// process to its approval server, and gates hook participation on
// an explicit session opt-in.
package pairing

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// EnvSessionActive must be "1" for any hook to participate.
	EnvSessionActive = "CLAUDE_WATCH_SESSION_ACTIVE"
	// EnvPairingID overrides the pairing ID from the config file.
	EnvPairingID = "CLAUDE_WATCH_PAIRING_ID"
	// EnvServerURL overrides the server URL from the config file.
	EnvServerURL = "CLAUDE_WATCH_SERVER_URL"
)

// Identity is a device's pairing profile.
type Identity struct {
	PairingID string `toml:"pairing_id"`
	ServerURL string `toml:"server_url"`
	Token     string `toml:"token,omitempty"`
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "claude-watch", "config.toml"), nil
}

// LoadIdentity resolves the pairing identity. Environment variables win
// over the config file; a missing file is not an error, it just yields
// an empty identity.
func LoadIdentity() (Identity, error) {
	var id Identity
	path, err := configPath()
	if err == nil {
		if _, err := toml.DecodeFile(path, &id); err != nil && !os.IsNotExist(err) {
			return Identity{}, err
		}
	}
	if v := os.Getenv(EnvPairingID); v != "" {
		id.PairingID = v
	}
	if v := os.Getenv(EnvServerURL); v != "" {
		id.ServerURL = v
	}
	return id, nil
}

// SaveIdentity writes the pairing profile, creating the config
// directory on first use.
func SaveIdentity(id Identity) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(id)
}

// Gate reports whether hooks should participate at all. The session
// opt-in is checked before anything else so that a gated-off process
// touches neither the network nor the filesystem.
func Gate() (Identity, bool) {
	return gate(os.Getenv, LoadIdentity)
}

func gate(getenv func(string) string, load func() (Identity, error)) (Identity, bool) {
	if getenv(EnvSessionActive) != "1" {
		return Identity{}, false
	}
	id, err := load()
	if err != nil || id.PairingID == "" {
		return Identity{}, false
	}
	return id, true
}
