// Package storage defines the remote folder storage capability consumed by
// the reconciliation engine. Implementations own their retry/backoff policy;
// the engine treats any returned error as a per-item failure and never
// retries internally.
package storage

import (
	"context"
	"time"
)

// FolderMimeType marks a listing entry as a folder.
const FolderMimeType = "application/x-folder"

// File is a remote file or folder as reported by a listing.
type File struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mime_type"`
	ModifiedTime time.Time `json:"modified_time"`
}

// IsFolder reports whether the entry is a folder.
func (f File) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// Client is the remote folder storage capability.
//
// All five operations may fail transiently; callers treat errors as per-item
// failures. UploadOrReplace replaces the file identified by existingFileID
// when it is non-empty, otherwise creates a new file in the folder.
type Client interface {
	ListChildren(ctx context.Context, folderID string) ([]File, error)
	FetchContent(ctx context.Context, fileID string) (string, error)
	CopyFile(ctx context.Context, sourceID, destFolderID, newName string) (string, error)
	MoveToTrash(ctx context.Context, fileID string) error
	UploadOrReplace(ctx context.Context, folderID, name, content, existingFileID, mimeType string) (string, error)
}
