package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/lecternapp/lectern-server/internal/config"
	"github.com/lecternapp/lectern-server/internal/logger"
	"github.com/lecternapp/lectern-server/internal/manifest"
	"github.com/lecternapp/lectern-server/internal/storage"
	"github.com/lecternapp/lectern-server/internal/storage/fsdrive"
)

// ProvideDrive provides the remote storage client, rate limited per
// configuration so a large fix run cannot hammer the backend.
func ProvideDrive(i do.Injector) (storage.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var client storage.Client
	switch cfg.Drive.Backend {
	case "fs":
		drive, err := fsdrive.New(cfg.Drive.Root)
		if err != nil {
			return nil, err
		}
		client = drive
	default:
		return nil, fmt.Errorf("unknown drive backend %q", cfg.Drive.Backend)
	}

	log.Info("Drive storage initialized",
		"backend", cfg.Drive.Backend,
		"rps", cfg.Drive.RequestsPerSecond,
		"burst", cfg.Drive.Burst,
	)

	return storage.NewRateLimitedClient(client, cfg.Drive.RequestsPerSecond, cfg.Drive.Burst), nil
}

// ProvideManifestReader provides the inventory manifest reader.
func ProvideManifestReader(i do.Injector) (*manifest.Reader, error) {
	drive := do.MustInvoke[storage.Client](i)
	log := do.MustInvoke[*logger.Logger](i)
	return manifest.NewReader(drive, log.Logger), nil
}
