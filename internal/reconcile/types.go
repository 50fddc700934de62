// Package reconcile implements the integrity reconciliation engine: it
// compares a book's inventory manifest against the files actually present in
// its remote folder, classifies every file, computes a repair plan, and
// executes that plan without ever deleting data it cannot prove is redundant.
package reconcile

import (
	"time"

	"github.com/lecternapp/lectern-server/internal/manifest"
	"github.com/lecternapp/lectern-server/internal/storage"
)

// Known sub-folders scanned in addition to the book root.
var knownSubFolders = []string{manifest.MetaFolderName, "text", "audio", "trash"}

// ignoredNames are never classified and never eligible for cleanup.
var ignoredNames = map[string]bool{
	".keep":          true,
	"cover.jpg":      true,
	"manifest.json":  true,
	"book.json":      true,
	"inventory.json": true,
}

// MatchReason explains why a recovery candidate was chosen, for auditability.
type MatchReason string

// MatchReason values.
const (
	// ReasonIndexMatch means exactly one legacy file matched the chapter's
	// inventory idx.
	ReasonIndexMatch MatchReason = "index match"
	// ReasonTitleMatch means exactly one legacy file matched the chapter's
	// title slug.
	ReasonTitleMatch MatchReason = "title match"
	// ReasonNewest means several files matched and the most recently
	// modified one won.
	ReasonNewest MatchReason = "newest"
)

// LegacyGroup collects legacy-era files sharing an (index, slug) key.
// Repeated exports can land several files in one group; all are retained
// for newest-wins resolution.
type LegacyGroup struct {
	Index int
	Slug  string
	Text  []storage.File
	Audio []storage.File
}

// RecoveryCandidate is the resolver's proposal for a chapter missing its
// expected text or audio file. Either candidate may be nil.
type RecoveryCandidate struct {
	Text   *storage.File `json:"text,omitempty"`
	Audio  *storage.File `json:"audio,omitempty"`
	Reason MatchReason   `json:"reason"`
}

// ScanResult is the engine's primary output: the full classification of a
// book folder against its inventory manifest.
type ScanResult struct {
	Generation   uint64             `json:"generation"`
	BookFolderID string             `json:"book_folder_id"`
	ScannedAt    time.Time          `json:"scanned_at"`
	Manifest     *manifest.Manifest `json:"manifest"`

	// MissingTextIDs and MissingAudioIDs are chapter IDs lacking their
	// expected remote file, in manifest order.
	MissingTextIDs  []string `json:"missing_text_ids"`
	MissingAudioIDs []string `json:"missing_audio_ids"`

	// AccountedChaptersCount is how many inventory chapters have both text
	// and audio present under current-era names.
	AccountedChaptersCount int `json:"accounted_chapters_count"`

	// StrayFiles are unrecognized files plus dedup losers: the
	// safe-to-remove candidates, pending the global safety gate.
	StrayFiles []storage.File `json:"stray_files"`

	// UnlinkedNewFormat are files matching current naming with no inventory
	// entry (orphaned).
	UnlinkedNewFormat []storage.File `json:"unlinked_new_format"`

	// LegacyGroups holds every legacy-era file keyed by (index, slug).
	LegacyGroups []LegacyGroup `json:"-"`

	// Recovery maps chapter ID to the proposed legacy replacement for its
	// missing file(s).
	Recovery map[string]RecoveryCandidate `json:"recovery"`

	// ExpectedFileIDs maps chapter ID to the remote IDs of its present
	// expected files, so the executor never re-lists the folder.
	ExpectedText  map[string]string `json:"-"`
	ExpectedAudio map[string]string `json:"-"`

	// CleanupCandidates is the folder-wide set of non-expected, non-ignored
	// files. Only ever acted on when SafeToCleanup is true.
	CleanupCandidates []storage.File `json:"-"`

	// SafeToCleanup is true only if every inventory chapter has both text
	// and audio accounted for, directly or via a recovery candidate.
	// Recomputed from scratch on every scan, never inherited.
	SafeToCleanup bool `json:"safe_to_cleanup"`
}

// ConversionType distinguishes text and audio conversions.
type ConversionType string

// ConversionType values.
const (
	ConversionText  ConversionType = "text"
	ConversionAudio ConversionType = "audio"
)

// Conversion is one legacy-to-expected copy operation.
type Conversion struct {
	ChapterID  string         `json:"chapter_id"`
	Type       ConversionType `json:"type"`
	Source     storage.File   `json:"source"`
	TargetName string         `json:"target_name"`
}

// PlanOptions are the user-selected repair options.
type PlanOptions struct {
	ConvertLegacy bool `json:"convert_legacy"`
	GenerateAudio bool `json:"generate_audio"`
	Cleanup       bool `json:"cleanup"`
}

// FixPlan is an ordered, side-effect-free repair plan derived from a scan.
type FixPlan struct {
	Conversions   []Conversion   `json:"conversions"`
	GenerationIDs []string       `json:"generation_ids"`
	Cleanup       []storage.File `json:"cleanup"`

	// TotalSteps is fixed at plan-build time and drives progress reporting.
	TotalSteps int `json:"total_steps"`
}

// RunState is the executor's lifecycle state.
type RunState string

// RunState values.
const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateCanceled  RunState = "canceled"
	RunStateFailed    RunState = "failed"
)

// FixReport summarizes a completed fix run.
type FixReport struct {
	ErrorCount int      `json:"error_count"`
	Canceled   bool     `json:"canceled"`
	StepsRun   int      `json:"steps_run"`
	Log        []string `json:"log"`
}
