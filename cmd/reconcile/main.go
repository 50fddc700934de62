// Package main provides a command-line reconciliation scanner.
//
// It scans a book folder on an fs drive, prints the classification, and
// shows the repair plan that would run for the given options. It never
// mutates the folder; repairs run through the server API.
//
// Usage:
//
//	go run ./cmd/reconcile -root ~/LecternDrive -folder my-book
//	go run ./cmd/reconcile -root ~/LecternDrive -folder my-book -convert -cleanup -json
package main

import (
	"context"
	"encoding/json/v2"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/lecternapp/lectern-server/internal/manifest"
	"github.com/lecternapp/lectern-server/internal/reconcile"
	"github.com/lecternapp/lectern-server/internal/storage/fsdrive"
)

var (
	root     = flag.String("root", "", "Drive root directory (required)")
	folder   = flag.String("folder", ".", "Book folder, relative to the drive root")
	convert  = flag.Bool("convert", false, "Plan legacy file conversions")
	generate = flag.Bool("generate", false, "Plan audio generation")
	cleanup  = flag.Bool("cleanup", false, "Plan stray file cleanup")
	asJSON   = flag.Bool("json", false, "Print the scan result as JSON")
)

func main() {
	flag.Parse()

	if *root == "" {
		fmt.Fprintln(os.Stderr, "usage: reconcile -root <drive-root> [-folder <book-folder>]")
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	drive, err := fsdrive.New(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open drive: %v\n", err)
		os.Exit(1)
	}

	scanner := reconcile.NewScanner(drive, manifest.NewReader(drive, logger), logger)

	result, err := scanner.Scan(context.Background(), *folder)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		if err := json.MarshalWrite(os.Stdout, result); err != nil {
			fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		return
	}

	printScan(result)

	plan := reconcile.BuildPlan(result, reconcile.PlanOptions{
		ConvertLegacy: *convert,
		GenerateAudio: *generate,
		Cleanup:       *cleanup,
	})
	printPlan(plan, result)
}

func printScan(result *reconcile.ScanResult) {
	fmt.Printf("Scanned %s at %s\n", result.BookFolderID, result.ScannedAt.Format("15:04:05"))
	fmt.Printf("  chapters in inventory:  %d\n", len(result.Manifest.Chapters))
	fmt.Printf("  fully accounted:        %d\n", result.AccountedChaptersCount)
	fmt.Printf("  missing text:           %d\n", len(result.MissingTextIDs))
	fmt.Printf("  missing audio:          %d\n", len(result.MissingAudioIDs))
	fmt.Printf("  unlinked current-era:   %d\n", len(result.UnlinkedNewFormat))
	fmt.Printf("  stray files:            %d\n", len(result.StrayFiles))
	fmt.Printf("  safe to cleanup:        %v\n", result.SafeToCleanup)

	if len(result.Recovery) > 0 {
		fmt.Println("  recovery candidates:")
		for chapterID, candidate := range result.Recovery {
			line := "    " + chapterID + ":"
			if candidate.Text != nil {
				line += " text=" + candidate.Text.Name
			}
			if candidate.Audio != nil {
				line += " audio=" + candidate.Audio.Name
			}
			fmt.Printf("%s (%s)\n", line, candidate.Reason)
		}
	}
}

func printPlan(plan *reconcile.FixPlan, result *reconcile.ScanResult) {
	if plan.TotalSteps == 0 {
		fmt.Println("Plan: nothing to do for the selected options")
		return
	}

	fmt.Printf("Plan: %d step(s)\n", plan.TotalSteps)
	for _, conv := range plan.Conversions {
		fmt.Printf("  convert  %s -> %s\n", conv.Source.Name, conv.TargetName)
	}
	for _, id := range plan.GenerationIDs {
		fmt.Printf("  generate audio for %s\n", id)
	}
	for _, f := range plan.Cleanup {
		fmt.Printf("  trash    %s\n", f.Name)
	}
	if len(plan.Cleanup) == 0 && len(result.CleanupCandidates) > 0 {
		fmt.Printf("  (%d cleanup candidate(s) held back)\n", len(result.CleanupCandidates))
	}
}
