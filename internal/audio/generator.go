// Package audio provides the speech generation capability consumed by the
// reconciliation engine. Synthesis itself is pluggable; this package owns
// caching, upload, and the signature that detects stale audio.
package audio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/lecternapp/lectern-server/internal/domain"
)

// GenerateRequest asks for a chapter's speech audio to be generated and
// persisted. TargetName and FolderID locate the remote upload when
// UploadToCloud is set.
type GenerateRequest struct {
	Chapter       domain.Chapter
	BookID        string
	VoiceID       string
	Rules         string
	FolderID      string
	TargetName    string
	UploadToCloud bool
}

// Generator is the opaque "generate chapter audio" operation. It updates the
// chapter's audio fields itself; callers do not parse audio output.
type Generator interface {
	GenerateAndPersist(ctx context.Context, req *GenerateRequest) error
}

// Synthesizer turns text into encoded audio. Implementations live outside
// this module (the TTS engine is an external collaborator).
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Signature fingerprints the voice, pronunciation rules, and audio format
// version. A chapter whose stored signature differs needs regeneration.
func Signature(voiceID, rules, formatVersion string) string {
	h := sha256.New()
	h.Write([]byte(voiceID))
	h.Write([]byte{0})
	h.Write([]byte(rules))
	h.Write([]byte{0})
	h.Write([]byte(formatVersion))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
