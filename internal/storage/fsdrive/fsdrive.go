// Package fsdrive implements the storage capability over a local directory
// tree. Folder and file IDs are paths relative to the drive root, which keeps
// IDs stable across runs and easy to inspect when debugging a library folder.
package fsdrive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lecternapp/lectern-server/internal/storage"
)

// TrashFolderName is where MoveToTrash relocates files under the root.
const TrashFolderName = "trash"

// Drive is a filesystem-backed storage.Client.
type Drive struct {
	root string
}

// New creates a Drive rooted at the given directory, creating it if needed.
func New(root string) (*Drive, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve drive root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create drive root: %w", err)
	}
	return &Drive{root: abs}, nil
}

// Root returns the ID of the drive's root folder.
func (d *Drive) Root() string { return "." }

// resolve maps an ID onto the filesystem, rejecting escapes from the root.
func (d *Drive) resolve(id string) (string, error) {
	if id == "" {
		id = "."
	}
	clean := filepath.Clean(id)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("id %q escapes drive root", id)
	}
	return filepath.Join(d.root, clean), nil
}

func (d *Drive) rel(path string) string {
	rel, err := filepath.Rel(d.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// ListChildren implements storage.Client.
func (d *Drive) ListChildren(ctx context.Context, folderID string) ([]storage.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := d.resolve(folderID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folderID, err)
	}

	out := make([]storage.File, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}

		f := storage.File{
			ID:           d.rel(filepath.Join(dir, entry.Name())),
			Name:         entry.Name(),
			ModifiedTime: info.ModTime(),
		}
		if entry.IsDir() {
			f.MimeType = storage.FolderMimeType
		} else {
			f.MimeType = mimeForExt(filepath.Ext(entry.Name()))
		}
		out = append(out, f)
	}

	return out, nil
}

// FetchContent implements storage.Client.
func (d *Drive) FetchContent(ctx context.Context, fileID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := d.resolve(fileID)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path) //#nosec G304 -- path is confined to the drive root by resolve
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", fileID, err)
	}
	return string(data), nil
}

// CopyFile implements storage.Client.
func (d *Drive) CopyFile(ctx context.Context, sourceID, destFolderID, newName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := d.resolve(sourceID)
	if err != nil {
		return "", err
	}
	destDir, err := d.resolve(destFolderID)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(src) //#nosec G304 -- confined by resolve
	if err != nil {
		return "", fmt.Errorf("copy source %s: %w", sourceID, err)
	}

	dest := filepath.Join(destDir, newName)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("copy to %s: %w", newName, err)
	}

	return d.rel(dest), nil
}

// MoveToTrash implements storage.Client. Files are moved into a trash folder
// under the root rather than deleted, matching the provider contract that
// trashing is recoverable.
func (d *Drive) MoveToTrash(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := d.resolve(fileID)
	if err != nil {
		return err
	}

	trashDir := filepath.Join(d.root, TrashFolderName)
	if err := os.MkdirAll(trashDir, 0o755); err != nil {
		return fmt.Errorf("create trash folder: %w", err)
	}

	dest := filepath.Join(trashDir, filepath.Base(src))
	// Avoid clobbering an earlier trashed file with the same name.
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(trashDir, fmt.Sprintf("%d_%s", time.Now().UnixMilli(), filepath.Base(src)))
	}

	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("trash %s: %w", fileID, err)
	}
	return nil
}

// UploadOrReplace implements storage.Client.
func (d *Drive) UploadOrReplace(ctx context.Context, folderID, name, content, existingFileID, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var path string
	var err error
	if existingFileID != "" {
		path, err = d.resolve(existingFileID)
	} else {
		var dir string
		dir, err = d.resolve(folderID)
		path = filepath.Join(dir, name)
	}
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create parent folder: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	return d.rel(path), nil
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp3":
		return "audio/mpeg"
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
