package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Fake is an in-memory Client for tests. Folders and files live in a flat
// map keyed by generated IDs; per-operation error injection simulates the
// transient failures a real provider would surface.
type Fake struct {
	mu      sync.Mutex
	nextID  int
	entries map[string]*fakeEntry

	// Trashed collects IDs passed to MoveToTrash, in call order.
	Trashed []string

	// failures maps "op:name" or "op:*" to an error returned once per lookup.
	failures map[string]error
}

type fakeEntry struct {
	file     File
	parent   string
	content  string
	isFolder bool
	trashed  bool
}

// NewFake creates an empty fake with a root folder and returns both.
func NewFake() (*Fake, string) {
	f := &Fake{
		entries:  make(map[string]*fakeEntry),
		failures: make(map[string]error),
	}
	root := f.newID()
	f.entries[root] = &fakeEntry{
		file:     File{ID: root, Name: "root", MimeType: FolderMimeType},
		isFolder: true,
	}
	return f, root
}

func (f *Fake) newID() string {
	f.nextID++
	return fmt.Sprintf("file-%03d", f.nextID)
}

// AddFolder creates a folder under parent and returns its ID.
func (f *Fake) AddFolder(parent, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.newID()
	f.entries[id] = &fakeEntry{
		file:     File{ID: id, Name: name, MimeType: FolderMimeType},
		parent:   parent,
		isFolder: true,
	}
	return id
}

// AddFile creates a file under parent and returns its ID.
func (f *Fake) AddFile(parent, name, content string, modified time.Time) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.newID()
	f.entries[id] = &fakeEntry{
		file: File{
			ID:           id,
			Name:         name,
			MimeType:     mimeForName(name),
			ModifiedTime: modified,
		},
		parent:  parent,
		content: content,
	}
	return id
}

// FailWith makes the next matching call to op (listChildren, fetchContent,
// copyFile, moveToTrash, uploadOrReplace) on the given name fail with err.
// Use "*" to match any name.
func (f *Fake) FailWith(op, name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op+":"+name] = err
}

func (f *Fake) takeFailure(op, name string) error {
	if err, ok := f.failures[op+":"+name]; ok {
		delete(f.failures, op+":"+name)
		return err
	}
	if err, ok := f.failures[op+":*"]; ok {
		return err
	}
	return nil
}

// ListChildren implements Client.
func (f *Fake) ListChildren(_ context.Context, folderID string) ([]File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("listChildren", folderID); err != nil {
		return nil, err
	}

	folder, ok := f.entries[folderID]
	if !ok || !folder.isFolder {
		return nil, fmt.Errorf("folder %s not found", folderID)
	}

	var out []File
	for _, e := range f.entries {
		if e.parent == folderID && !e.trashed {
			out = append(out, e.file)
		}
	}
	// Deterministic listing order for tests.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FetchContent implements Client.
func (f *Fake) FetchContent(_ context.Context, fileID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[fileID]
	if !ok || e.trashed {
		return "", fmt.Errorf("file %s not found", fileID)
	}
	if err := f.takeFailure("fetchContent", e.file.Name); err != nil {
		return "", err
	}
	return e.content, nil
}

// CopyFile implements Client.
func (f *Fake) CopyFile(_ context.Context, sourceID, destFolderID, newName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	src, ok := f.entries[sourceID]
	if !ok || src.trashed {
		return "", fmt.Errorf("source %s not found", sourceID)
	}
	if err := f.takeFailure("copyFile", newName); err != nil {
		return "", err
	}

	id := f.newID()
	f.entries[id] = &fakeEntry{
		file: File{
			ID:           id,
			Name:         newName,
			MimeType:     mimeForName(newName),
			ModifiedTime: time.Now(),
		},
		parent:  destFolderID,
		content: src.content,
	}
	return id, nil
}

// MoveToTrash implements Client.
func (f *Fake) MoveToTrash(_ context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[fileID]
	if !ok {
		return fmt.Errorf("file %s not found", fileID)
	}
	if err := f.takeFailure("moveToTrash", e.file.Name); err != nil {
		return err
	}
	e.trashed = true
	f.Trashed = append(f.Trashed, fileID)
	return nil
}

// UploadOrReplace implements Client.
func (f *Fake) UploadOrReplace(_ context.Context, folderID, name, content, existingFileID, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("uploadOrReplace", name); err != nil {
		return "", err
	}

	if existingFileID != "" {
		if e, ok := f.entries[existingFileID]; ok && !e.trashed {
			e.content = content
			e.file.ModifiedTime = time.Now()
			return existingFileID, nil
		}
	}

	id := f.newID()
	f.entries[id] = &fakeEntry{
		file: File{
			ID:           id,
			Name:         name,
			MimeType:     mimeType,
			ModifiedTime: time.Now(),
		},
		parent:  folderID,
		content: content,
	}
	return id, nil
}

// Content returns a file's content, for test assertions.
func (f *Fake) Content(fileID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[fileID]; ok {
		return e.content
	}
	return ""
}

// Names returns the names of live (untrashed) files under a folder.
func (f *Fake) Names(folderID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, e := range f.entries {
		if e.parent == folderID && !e.trashed && !e.isFolder {
			out = append(out, e.file.Name)
		}
	}
	sort.Strings(out)
	return out
}

func mimeForName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
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
