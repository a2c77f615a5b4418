package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fitzroyhq/tokend/pkg/cryptox"
)

// HKDF info strings for the two signing domains. Changing either one
// invalidates every token of that class.
const (
	accessKeyInfo  = "tokend/access-token/v1"
	refreshKeyInfo = "tokend/refresh-token/v1"

	minSecretLen = 32
)

// InitTokenSecrets resolves the HS256 secrets for the two token classes.
//
// Resolution order:
//   - Explicit mode: TOKEND_ACCESS_SECRET and TOKEND_REFRESH_SECRET are both
//     set. They must differ and each must be at least 32 bytes.
//   - Derived mode: TOKEND_MASTER_SECRET is set; both class secrets are
//     expanded from it with HKDF-SHA256 under distinct info strings.
//   - Ephemeral mode: nothing configured. Outside prod the service generates
//     a random master secret on startup, which means every token dies with
//     the process. In prod this is a startup error.
//
// The two classes must never share a secret: a refresh token that verifies
// under the access secret would turn a seven-day credential into a
// seven-day login.
func InitTokenSecrets(cfg Config, logger *slog.Logger) (access, refresh []byte, err error) {
	switch {
	case cfg.AccessSecret != "" || cfg.RefreshSecret != "":
		if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
			return nil, nil, errors.New("TOKEND_ACCESS_SECRET and TOKEND_REFRESH_SECRET must be set together")
		}
		if len(cfg.AccessSecret) < minSecretLen || len(cfg.RefreshSecret) < minSecretLen {
			return nil, nil, fmt.Errorf("token secrets must be at least %d bytes", minSecretLen)
		}
		if cfg.AccessSecret == cfg.RefreshSecret {
			return nil, nil, errors.New("access and refresh secrets must differ")
		}

		logger.Info("using explicit token secrets")
		return []byte(cfg.AccessSecret), []byte(cfg.RefreshSecret), nil

	case cfg.MasterSecret != "":
		access, refresh, err = deriveClassSecrets([]byte(cfg.MasterSecret))
		if err != nil {
			return nil, nil, err
		}

		logger.Info("token secrets derived from master secret")
		return access, refresh, nil

	default:
		if cfg.Env == "prod" {
			return nil, nil, errors.New("no token secret configured: set TOKEND_MASTER_SECRET or the per-class secrets")
		}

		master, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return nil, nil, fmt.Errorf("generate ephemeral master secret: %w", err)
		}
		access, refresh, err = deriveClassSecrets([]byte(master))
		if err != nil {
			return nil, nil, err
		}

		logger.Warn("no token secret configured; generated an ephemeral one, tokens will not survive a restart")
		return access, refresh, nil
	}
}

func deriveClassSecrets(master []byte) (access, refresh []byte, err error) {
	access, err = cryptox.DeriveKey(master, accessKeyInfo, minSecretLen)
	if err != nil {
		return nil, nil, fmt.Errorf("derive access secret: %w", err)
	}
	refresh, err = cryptox.DeriveKey(master, refreshKeyInfo, minSecretLen)
	if err != nil {
		return nil, nil, fmt.Errorf("derive refresh secret: %w", err)
	}
	return access, refresh, nil
}
