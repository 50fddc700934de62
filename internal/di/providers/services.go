package providers

import (
	"github.com/samber/do/v2"

	"github.com/lecternapp/lectern-server/internal/audio"
	"github.com/lecternapp/lectern-server/internal/auth"
	"github.com/lecternapp/lectern-server/internal/config"
	"github.com/lecternapp/lectern-server/internal/logger"
	"github.com/lecternapp/lectern-server/internal/manifest"
	"github.com/lecternapp/lectern-server/internal/service"
	"github.com/lecternapp/lectern-server/internal/storage"
)

// ProvideLibraryService provides the book and chapter service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLibraryService(storeHandle.Store, log.Logger), nil
}

// ProvideReconcileService provides the per-book reconciliation service.
func ProvideReconcileService(i do.Injector) (*service.ReconcileService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	drive := do.MustInvoke[storage.Client](i)
	manifests := do.MustInvoke[*manifest.Reader](i)
	audioService := do.MustInvoke[*audio.Service](i)
	cache := do.MustInvoke[*audio.CacheChecker](i)
	session := do.MustInvoke[*auth.SessionState](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	svc := service.NewReconcileService(
		storeHandle.Store,
		drive,
		manifests,
		audioService,
		cache,
		session,
		cfg.Audio,
		log.Logger,
	)
	svc.SetEventEmitter(sseHandle.Manager)
	return svc, nil
}
