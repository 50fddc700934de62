// Package domain contains the core business entities for the Lectern chapter library.
package domain

import "time"

// AudioStatus tracks the lifecycle of a chapter's generated speech audio.
type AudioStatus string

// AudioStatus values.
const (
	// AudioStatusPending means audio has not been generated yet.
	AudioStatusPending AudioStatus = "pending"
	// AudioStatusGenerating means synthesis is currently running.
	AudioStatusGenerating AudioStatus = "generating"
	// AudioStatusReady means audio exists and matches the chapter's signature.
	AudioStatusReady AudioStatus = "ready"
	// AudioStatusFailed means the last synthesis attempt failed.
	AudioStatusFailed AudioStatus = "failed"
)

// Presence is a tri-state flag for remote file existence.
// Unknown means we have not scanned since the last mutation.
type Presence string

// Presence values.
const (
	PresenceUnknown Presence = "unknown"
	PresencePresent Presence = "present"
	PresenceAbsent  Presence = "absent"
)

// Chapter represents a single chapter of a book: its text plus the
// generated speech audio that mirrors it on remote storage.
type Chapter struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	SortOrder int       `json:"sort_order"`
	Index     int       `json:"index"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Content is lazily loaded from the text store and never persisted
	// inline with the chapter record.
	Content string `json:"-"`

	// AudioSignature fingerprints voice+rules+format so stale audio can be
	// detected after a settings change.
	AudioSignature string `json:"audio_signature,omitempty"`

	// Remote file identities. Only set after the executor confirms a
	// successful remote write; never speculatively.
	CloudTextFileID  string `json:"cloud_text_file_id,omitempty"`
	CloudAudioFileID string `json:"cloud_audio_file_id,omitempty"`

	HasTextOnDrive Presence    `json:"has_text_on_drive"`
	AudioStatus    AudioStatus `json:"audio_status"`
}

// Clone returns a copy of the chapter. The executor mutates chapters by
// constructing a new value with updated fields rather than editing in place.
func (c Chapter) Clone() Chapter {
	return c
}

// MarkTextOnDrive records a confirmed remote text write.
func (c Chapter) MarkTextOnDrive(fileID string) Chapter {
	out := c
	out.CloudTextFileID = fileID
	out.HasTextOnDrive = PresencePresent
	out.UpdatedAt = time.Now()
	return out
}

// MarkAudioOnDrive records a confirmed remote audio write.
func (c Chapter) MarkAudioOnDrive(fileID string) Chapter {
	out := c
	out.CloudAudioFileID = fileID
	out.AudioStatus = AudioStatusReady
	out.UpdatedAt = time.Now()
	return out
}
