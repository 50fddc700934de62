// Package main provides a tool to seed a demo book for trying the engine.
//
// It creates a book with a few chapters in the local database and writes a
// matching folder onto an fs drive: an inventory manifest, some expected
// files, a couple of legacy-era files, and a stray, so a scan has something
// interesting to report.
//
// Usage:
//
//	STORE_PATH=~/Lectern/db go run ./cmd/seed -root ~/LecternDrive
package main

import (
	"context"
	"encoding/json/v2"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/lecternapp/lectern-server/internal/domain"
	"github.com/lecternapp/lectern-server/internal/id"
	"github.com/lecternapp/lectern-server/internal/manifest"
	"github.com/lecternapp/lectern-server/internal/reconcile"
	"github.com/lecternapp/lectern-server/internal/storage/fsdrive"
	"github.com/lecternapp/lectern-server/internal/store"
	"github.com/lecternapp/lectern-server/internal/util"
)

var (
	root   = flag.String("root", "", "Drive root directory (required)")
	folder = flag.String("folder", "demo-book", "Book folder to create under the root")
)

func main() {
	flag.Parse()

	if *root == "" {
		fmt.Fprintln(os.Stderr, "usage: seed -root <drive-root> [-folder <name>]")
		os.Exit(2)
	}

	storePath := os.Getenv("STORE_PATH")
	if storePath == "" {
		storePath = os.ExpandEnv("$HOME/Lectern/db")
	}

	fmt.Printf("Opening database at: %s\n", storePath)
	s, err := store.New(storePath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	titles := []string{"The Lighthouse", "Voices from the Café", "A Long Way North"}
	chapters := make([]domain.Chapter, 0, len(titles))

	bookID := id.MustGenerate(id.BookPrefix)
	book := domain.Book{
		ID:            bookID,
		Title:         "Demo Book",
		Author:        "Seed Tool",
		CloudFolderID: *folder,
	}
	if err := s.CreateBook(ctx, book); err != nil {
		log.Fatalf("Failed to create book: %v", err)
	}

	for i, title := range titles {
		chapter := domain.Chapter{
			ID:      id.MustGenerate(id.ChapterPrefix),
			BookID:  bookID,
			Index:   i + 1,
			Title:   title,
			Content: fmt.Sprintf("Chapter %d: %s.\n\nSome placeholder prose.\n", i+1, title),
		}
		if err := s.CreateChapter(ctx, chapter); err != nil {
			log.Fatalf("Failed to create chapter: %v", err)
		}
		chapters = append(chapters, chapter)
	}

	if err := writeDriveFolder(*root, *folder, chapters); err != nil {
		log.Fatalf("Failed to write drive folder: %v", err)
	}

	fmt.Printf("Seeded book %s with %d chapters under %s/%s\n", bookID, len(chapters), *root, *folder)
	fmt.Println("Try: go run ./cmd/reconcile -root", *root, "-folder", *folder)
}

// writeDriveFolder lays out the remote side: inventory, one fully expected
// chapter, one chapter recoverable from legacy files, one with nothing, and
// a stray.
func writeDriveFolder(rootDir, folderName string, chapters []domain.Chapter) error {
	if _, err := fsdrive.New(rootDir); err != nil {
		return err
	}

	bookDir := filepath.Join(rootDir, folderName)
	metaDir := filepath.Join(bookDir, manifest.MetaFolderName)
	if err := os.MkdirAll(metaDir, 0o750); err != nil {
		return err
	}

	entries := make([]manifest.Entry, len(chapters))
	for i, ch := range chapters {
		idx := ch.Index
		entries[i] = manifest.Entry{ChapterID: ch.ID, Idx: &idx, Title: ch.Title}
	}
	inv, err := json.Marshal(manifest.Manifest{Version: 1, Chapters: entries})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(metaDir, manifest.FileName), inv, 0o600); err != nil {
		return err
	}

	files := map[string]string{
		// Chapter 1: both expected files present.
		reconcile.ExpectedTextName(chapters[0].ID):  chapters[0].Content,
		reconcile.ExpectedAudioName(chapters[0].ID): "fake-mp3-bytes",
		// Chapter 2: only legacy-era files, recoverable by index and slug.
		fmt.Sprintf("2_%s.txt", util.TitleSlug(chapters[1].Title)): chapters[1].Content,
		fmt.Sprintf("2_%s.mp3", util.TitleSlug(chapters[1].Title)): "fake-legacy-mp3",
		// Chapter 3: nothing on the drive.
		// Plus one stray.
		"notes-old.bak": "leftover export",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(bookDir, name), []byte(content), 0o600); err != nil {
			return err
		}
	}

	return nil
}
