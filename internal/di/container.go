// Package di provides dependency injection configuration for the Lectern server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/lecternapp/lectern-server/internal/audio"
	"github.com/lecternapp/lectern-server/internal/auth"
	"github.com/lecternapp/lectern-server/internal/config"
	"github.com/lecternapp/lectern-server/internal/di/providers"
	"github.com/lecternapp/lectern-server/internal/logger"
	"github.com/lecternapp/lectern-server/internal/manifest"
	"github.com/lecternapp/lectern-server/internal/service"
	"github.com/lecternapp/lectern-server/internal/storage"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Remote storage layer
	do.Provide(injector, providers.ProvideDrive)
	do.Provide(injector, providers.ProvideManifestReader)

	// Audio layer
	do.Provide(injector, providers.ProvideSynthesizer)
	do.Provide(injector, providers.ProvideAudioService)
	do.Provide(injector, providers.ProvideCacheChecker)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideSessionState)

	// Business services
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideReconcileService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[storage.Client](injector)
	_ = do.MustInvoke[*manifest.Reader](injector)
	_ = do.MustInvoke[audio.Synthesizer](injector)
	_ = do.MustInvoke[*audio.Service](injector)
	_ = do.MustInvoke[*audio.CacheChecker](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*auth.SessionState](injector)
	_ = do.MustInvoke[*service.LibraryService](injector)
	_ = do.MustInvoke[*service.ReconcileService](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
