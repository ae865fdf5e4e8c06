package jobs

import (
	"fmt"
	"strings"

	"github.com/calebmorris/debrief/pkg/models"
)

// SyntheticSummary derives the always-resolved summary job from fields
// already present on the recording. No network round trip is involved and
// nothing is cached: identical input yields identical output on every call.
// Returns nil when the recording carries no summary material.
func SyntheticSummary(rec models.Recording) *models.Job {
	content := syntheticContent(rec)
	if content == "" {
		return nil
	}
	return &models.Job{
		ID:          models.SyntheticJobID,
		RecordingID: rec.ID,
		Kind:        models.KindSummary,
		Content:     &content,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

// syntheticContent prefers the consolidated summary document; otherwise it
// assembles one from the structured fields in a fixed section order,
// omitting empty sections.
func syntheticContent(rec models.Recording) string {
	if rec.FullSummaryContent != nil && *rec.FullSummaryContent != "" {
		return *rec.FullSummaryContent
	}

	var sections []string
	if rec.Summary != nil && *rec.Summary != "" {
		sections = append(sections, "## Summary\n\n"+*rec.Summary)
	}
	sections = appendListSection(sections, "Key Points", rec.KeyPoints)
	sections = appendListSection(sections, "Decisions", rec.Decisions)
	sections = appendListSection(sections, "Next Steps", rec.NextSteps)
	sections = appendListSection(sections, "Concerns", rec.Concerns)
	sections = appendListSection(sections, "Action Items", rec.ActionItems)

	return strings.Join(sections, "\n\n")
}

func appendListSection(sections []string, title string, items []string) []string {
	if len(items) == 0 {
		return sections
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", title)
	for _, item := range items {
		fmt.Fprintf(&b, "\n- %s", item)
	}
	return append(sections, b.String())
}
