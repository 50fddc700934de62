package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern-server/internal/manifest"
	"github.com/lecternapp/lectern-server/internal/storage"
)

func planScan() *ScanResult {
	now := time.Now()
	return &ScanResult{
		BookFolderID: "folder-1",
		Manifest: &manifest.Manifest{Chapters: []manifest.Entry{
			{ChapterID: "ch1", Idx: intp(1), Title: "One"},
			{ChapterID: "ch2", Idx: intp(2), Title: "Two"},
			{ChapterID: "ch3", Idx: intp(3), Title: "Three"},
		}},
		MissingTextIDs:  []string{"ch1"},
		MissingAudioIDs: []string{"ch1", "ch2", "ch3"},
		Recovery: map[string]RecoveryCandidate{
			"ch1": {
				Text:   &storage.File{ID: "lt1", Name: "1_one.txt", ModifiedTime: now},
				Reason: ReasonIndexMatch,
			},
			"ch2": {
				Audio:  &storage.File{ID: "la2", Name: "2_two.mp3", ModifiedTime: now},
				Reason: ReasonIndexMatch,
			},
		},
		CleanupCandidates: []storage.File{
			{ID: "junk", Name: "notes.bak"},
		},
	}
}

func TestBuildPlanEmptyOptions(t *testing.T) {
	plan := BuildPlan(planScan(), PlanOptions{})

	assert.Empty(t, plan.Conversions)
	assert.Empty(t, plan.GenerationIDs)
	assert.Empty(t, plan.Cleanup)
	assert.Equal(t, 0, plan.TotalSteps)
}

func TestBuildPlanConversions(t *testing.T) {
	plan := BuildPlan(planScan(), PlanOptions{ConvertLegacy: true})

	require.Len(t, plan.Conversions, 2)

	text := plan.Conversions[0]
	assert.Equal(t, "ch1", text.ChapterID)
	assert.Equal(t, ConversionText, text.Type)
	assert.Equal(t, "lt1", text.Source.ID)
	assert.Equal(t, "c_ch1.txt", text.TargetName)

	audio := plan.Conversions[1]
	assert.Equal(t, "ch2", audio.ChapterID)
	assert.Equal(t, ConversionAudio, audio.Type)
	assert.Equal(t, "c_ch2.mp3", audio.TargetName)
}

func TestBuildPlanGenerationSkipsAudioCandidates(t *testing.T) {
	plan := BuildPlan(planScan(), PlanOptions{ConvertLegacy: true, GenerateAudio: true})

	// ch1: text arrives via conversion, so generation is possible.
	// ch2: a legacy audio candidate exists, so conversion is the repair.
	// ch3: no candidates at all; text is present, so generate.
	assert.Equal(t, []string{"ch1", "ch3"}, plan.GenerationIDs)
}

func TestBuildPlanGenerationNeedsSourceText(t *testing.T) {
	// Without conversions, ch1 has no text to synthesize from.
	plan := BuildPlan(planScan(), PlanOptions{GenerateAudio: true})

	assert.Equal(t, []string{"ch3"}, plan.GenerationIDs)
}

func TestBuildPlanCleanupDoubleGate(t *testing.T) {
	scan := planScan()

	// Option off.
	scan.SafeToCleanup = true
	plan := BuildPlan(scan, PlanOptions{})
	assert.Empty(t, plan.Cleanup)

	// Option on but the folder is not safe.
	scan.SafeToCleanup = false
	plan = BuildPlan(scan, PlanOptions{Cleanup: true})
	assert.Empty(t, plan.Cleanup)

	// Both gates open.
	scan.SafeToCleanup = true
	plan = BuildPlan(scan, PlanOptions{Cleanup: true})
	require.Len(t, plan.Cleanup, 1)
	assert.Equal(t, "junk", plan.Cleanup[0].ID)
}

func TestBuildPlanTotalSteps(t *testing.T) {
	scan := planScan()
	scan.SafeToCleanup = true

	plan := BuildPlan(scan, PlanOptions{ConvertLegacy: true, GenerateAudio: true, Cleanup: true})

	want := len(plan.Conversions) + len(plan.GenerationIDs) + len(plan.Cleanup)
	assert.Equal(t, want, plan.TotalSteps)
	assert.Equal(t, 5, plan.TotalSteps)
}

func TestBuildPlanDoesNotMutateScan(t *testing.T) {
	scan := planScan()
	scan.SafeToCleanup = true

	_ = BuildPlan(scan, PlanOptions{ConvertLegacy: true, GenerateAudio: true, Cleanup: true})

	assert.Equal(t, []string{"ch1"}, scan.MissingTextIDs)
	assert.Equal(t, []string{"ch1", "ch2", "ch3"}, scan.MissingAudioIDs)
	assert.Len(t, scan.CleanupCandidates, 1)
}
