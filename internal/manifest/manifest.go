// Package manifest loads the authoritative per-book inventory manifest from
// remote storage. The manifest is the ground truth for what a book's folder
// should contain; the reconciliation engine scans against it.
package manifest

import (
	"context"
	"encoding/json/v2"
	"log/slog"

	"github.com/lecternapp/lectern-server/internal/errors"
	"github.com/lecternapp/lectern-server/internal/storage"
)

const (
	// MetaFolderName is the sub-folder holding book metadata files.
	MetaFolderName = "meta"
	// FileName is the manifest file inside the meta folder.
	FileName = "inventory.json"
)

// Entry is one chapter the folder should contain.
// Idx is a recovery hint only, never identity; older exports may omit it.
type Entry struct {
	ChapterID string `json:"chapterId"`
	Idx       *int   `json:"idx"`
	Title     string `json:"title"`
}

// Manifest is the authoritative chapter inventory for a book.
type Manifest struct {
	Version  int     `json:"version,omitempty"`
	Total    *int    `json:"total,omitempty"`
	Chapters []Entry `json:"chapters"`
}

// ExpectedCount returns the number of chapters the folder should contain.
// A declared total takes precedence when present and non-null.
func (m *Manifest) ExpectedCount() int {
	if m.Total != nil {
		return *m.Total
	}
	return len(m.Chapters)
}

// Entry returns the manifest entry for a chapter ID, or nil.
func (m *Manifest) Entry(chapterID string) *Entry {
	for i := range m.Chapters {
		if m.Chapters[i].ChapterID == chapterID {
			return &m.Chapters[i]
		}
	}
	return nil
}

// Reader fetches and parses inventory manifests. Pure read; no side effects.
type Reader struct {
	drive  storage.Client
	logger *slog.Logger
}

// NewReader creates a manifest reader.
func NewReader(drive storage.Client, logger *slog.Logger) *Reader {
	return &Reader{drive: drive, logger: logger}
}

// Load fetches and parses the manifest for a book folder.
// Returns ErrManifestNotFound when the meta sub-folder or the manifest file
// is absent (older folders predate the meta layout; that is not a crash),
// and ErrManifestParse when the content is not valid JSON or lacks a
// chapters array.
func (r *Reader) Load(ctx context.Context, rootFolderID string) (*Manifest, error) {
	children, err := r.drive.ListChildren(ctx, rootFolderID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list book folder")
	}

	var metaFolderID string
	for _, f := range children {
		if f.IsFolder() && f.Name == MetaFolderName {
			metaFolderID = f.ID
			break
		}
	}
	if metaFolderID == "" {
		return nil, errors.ManifestNotFound("book folder has no meta sub-folder")
	}

	metaChildren, err := r.drive.ListChildren(ctx, metaFolderID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list meta folder")
	}

	var manifestFileID string
	for _, f := range metaChildren {
		if !f.IsFolder() && f.Name == FileName {
			manifestFileID = f.ID
			break
		}
	}
	if manifestFileID == "" {
		return nil, errors.ManifestNotFound("meta folder has no " + FileName)
	}

	content, err := r.drive.FetchContent(ctx, manifestFileID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "fetch manifest")
	}

	var m Manifest
	if err := json.Unmarshal([]byte(content), &m); err != nil {
		return nil, errors.ErrManifestParse.WithCause(err)
	}
	if m.Chapters == nil {
		return nil, errors.ManifestParse("manifest lacks a chapters array")
	}

	seen := make(map[string]bool, len(m.Chapters))
	for _, e := range m.Chapters {
		if e.ChapterID == "" {
			return nil, errors.ManifestParse("manifest entry has empty chapterId")
		}
		if seen[e.ChapterID] {
			return nil, errors.ManifestParsef("duplicate chapterId %s in manifest", e.ChapterID)
		}
		seen[e.ChapterID] = true

		if e.Idx == nil && r.logger != nil {
			// Intentional: a missing idx falls through to slug matching
			// during recovery instead of failing the load.
			r.logger.Warn("manifest entry has no idx", "chapter_id", e.ChapterID)
		}
	}

	r.logger.Debug("manifest loaded",
		"chapters", len(m.Chapters),
		"expected", m.ExpectedCount(),
	)

	return &m, nil
}
