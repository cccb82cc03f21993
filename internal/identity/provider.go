// Package identity derives and persists the stable per-device identity used
// as the sender handle on every message and as a shard of the channel id.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/gsole-chat/gsole/internal/store"
	"go.uber.org/zap"
)

// Length of the derived identity token. Matches the 12-char uppercase
// fingerprint format shared out-of-band between users.
const Length = 12

// Provider hands out the device identity, computing it at most once.
type Provider struct {
	db     *store.DB
	logger *zap.Logger
}

// NewProvider creates an identity provider backed by the local store.
func NewProvider(db *store.DB, logger *zap.Logger) *Provider {
	return &Provider{db: db, logger: logger}
}

// GetOrCreate returns the persisted device identity, deriving and storing a
// new one on first call. When no fingerprint source is readable the identity
// falls back to a random one rather than blocking startup; either way the
// result is stable across sessions once written.
func (p *Provider) GetOrCreate() (string, error) {
	existing, err := p.db.GetSetting(store.KeyIdentity)
	if err != nil {
		return "", fmt.Errorf("read identity: %w", err)
	}
	if existing != "" {
		return existing, nil
	}

	id, fingerprinted := derive()
	if !fingerprinted {
		p.logger.Warn("no fingerprint source available, using random identity")
	}
	if err := p.db.SetSetting(store.KeyIdentity, id); err != nil {
		return "", fmt.Errorf("persist identity: %w", err)
	}
	p.logger.Info("identity created", zap.String("identity", id), zap.Bool("fingerprinted", fingerprinted))
	return id, nil
}

// derive computes a fingerprint-based identity from stable host
// characteristics. The second return reports whether any fingerprint source
// was readable; when none is, the identity is seeded from a random UUID.
func derive() (string, bool) {
	var parts []string
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if data, err := os.ReadFile(path); err == nil {
			if s := strings.TrimSpace(string(data)); s != "" {
				parts = append(parts, s)
				break
			}
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		parts = append(parts, host)
	}

	if len(parts) == 0 {
		return format(uuid.NewString()), false
	}

	parts = append(parts, runtime.GOOS, runtime.GOARCH)
	return format(strings.Join(parts, "|")), true
}

func format(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:Length]
}
