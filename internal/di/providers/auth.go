package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/lecternapp/lectern-server/internal/auth"
	"github.com/lecternapp/lectern-server/internal/config"
	"github.com/lecternapp/lectern-server/internal/logger"
)

// ProvideTokenService provides the PASETO session token service. The key
// comes from configuration when set, otherwise from (or into) the key file
// next to the database.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	keyHex := cfg.Auth.SessionTokenKey
	if keyHex == "" {
		loaded, err := auth.LoadOrGenerateKey(filepath.Dir(cfg.Store.Path))
		if err != nil {
			return nil, err
		}
		keyHex = loaded
		log.Info("Session key loaded from key file")
	}

	return auth.NewTokenService(keyHex, cfg.Auth.SessionDuration)
}

// ProvideSessionState provides the drive session holder.
func ProvideSessionState(i do.Injector) (*auth.SessionState, error) {
	tokens := do.MustInvoke[*auth.TokenService](i)
	return auth.NewSessionState(tokens), nil
}
