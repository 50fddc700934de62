package reconcile

// BuildPlan turns a completed scan into an ordered, side-effect-free repair
// plan. Pure function: nothing happens until the executor runs the plan.
func BuildPlan(scan *ScanResult, opts PlanOptions) *FixPlan {
	plan := &FixPlan{}

	textConverted := make(map[string]bool)

	if opts.ConvertLegacy {
		for _, id := range scan.MissingTextIDs {
			candidate := scan.Recovery[id]
			if candidate.Text == nil {
				continue
			}
			plan.Conversions = append(plan.Conversions, Conversion{
				ChapterID:  id,
				Type:       ConversionText,
				Source:     *candidate.Text,
				TargetName: ExpectedTextName(id),
			})
			textConverted[id] = true
		}
		for _, id := range scan.MissingAudioIDs {
			candidate := scan.Recovery[id]
			if candidate.Audio == nil {
				continue
			}
			plan.Conversions = append(plan.Conversions, Conversion{
				ChapterID:  id,
				Type:       ConversionAudio,
				Source:     *candidate.Audio,
				TargetName: ExpectedAudioName(id),
			})
		}
	}

	if opts.GenerateAudio {
		missingText := make(map[string]bool, len(scan.MissingTextIDs))
		for _, id := range scan.MissingTextIDs {
			missingText[id] = true
		}

		for _, id := range scan.MissingAudioIDs {
			// A legacy audio candidate means conversion (not synthesis) is
			// the repair for this chapter, whether or not conversions are
			// enabled this run.
			if scan.Recovery[id].Audio != nil {
				continue
			}
			// Generation needs source text: present on the drive already,
			// or about to be via a planned conversion.
			if missingText[id] && !textConverted[id] {
				continue
			}
			plan.GenerationIDs = append(plan.GenerationIDs, id)
		}
	}

	// Cleanup is gated twice: the user option and the global safety
	// invariant. An incomplete inventory can never trigger deletion.
	if opts.Cleanup && scan.SafeToCleanup {
		plan.Cleanup = append(plan.Cleanup, scan.CleanupCandidates...)
	}

	plan.TotalSteps = len(plan.Conversions) + len(plan.GenerationIDs) + len(plan.Cleanup)
	return plan
}
