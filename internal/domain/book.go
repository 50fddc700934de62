package domain

import "time"

// Book is a library entry whose chapters live under one remote folder.
type Book struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`

	// CloudFolderID is the remote folder holding the book's files and the
	// known sub-folders (meta, text, audio, trash).
	CloudFolderID string `json:"cloud_folder_id"`

	// VoiceID overrides the configured default voice when set.
	VoiceID string `json:"voice_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
