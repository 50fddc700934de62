package providers

import (
	"github.com/samber/do/v2"

	"github.com/lecternapp/lectern-server/internal/audio"
	"github.com/lecternapp/lectern-server/internal/config"
	"github.com/lecternapp/lectern-server/internal/logger"
	"github.com/lecternapp/lectern-server/internal/storage"
)

// ProvideSynthesizer provides the speech synthesis client. Without a
// configured endpoint, generation steps fail cleanly while the rest of the
// engine keeps working.
func ProvideSynthesizer(i do.Injector) (audio.Synthesizer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Audio.TTSEndpoint == "" {
		log.Warn("No TTS endpoint configured; audio generation disabled")
		return audio.NoSynthesizer{}, nil
	}

	log.Info("TTS client initialized", "endpoint", cfg.Audio.TTSEndpoint)
	return audio.NewTTSClient(cfg.Audio.TTSEndpoint, cfg.Audio.TTSAPIKey, log.Logger), nil
}

// ProvideAudioService provides the audio generation service.
func ProvideAudioService(i do.Injector) (*audio.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	synth := do.MustInvoke[audio.Synthesizer](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	drive := do.MustInvoke[storage.Client](i)

	return audio.NewService(synth, storeHandle.Store, drive, cfg.Audio.FormatVersion, log.Logger), nil
}

// ProvideCacheChecker provides the batched cached-audio existence checker.
func ProvideCacheChecker(i do.Injector) (*audio.CacheChecker, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return audio.NewCacheChecker(storeHandle.Store, cfg.Audio.ExistenceCheckBatch), nil
}
