package taskrunner

import (
	"fmt"
	"strings"
	"time"

	"github.com/tyemirov/wrknv/internal/workspace"
)

const summaryDurationRounding = time.Millisecond

const (
	summaryLinePrefixTemplateConstant = "Summary: total.repos=%d"
	summaryCountTemplateConstant      = "%s=%d"
	summaryDurationTemplateConstant   = "duration=%s"
	summarySucceededLabelConstant     = "succeeded"
	summaryFailedLabelConstant        = "failed"
	summarySkippedLabelConstant       = "skipped"
	summaryPartSeparatorConstant      = " "
)

// RenderSummaryLine returns the summary line printed after multi-repository runs.
//
// Single-repository runs render nothing; their outcome is already visible in
// the per-task output.
func RenderSummaryLine(result workspace.Result) string {
	if result.TotalRepositories <= 1 {
		return ""
	}

	parts := []string{
		fmt.Sprintf(summaryLinePrefixTemplateConstant, result.TotalRepositories),
		fmt.Sprintf(summaryCountTemplateConstant, summarySucceededLabelConstant, result.Succeeded),
		fmt.Sprintf(summaryCountTemplateConstant, summaryFailedLabelConstant, result.Failed),
		fmt.Sprintf(summaryCountTemplateConstant, summarySkippedLabelConstant, result.Skipped),
		fmt.Sprintf(summaryDurationTemplateConstant, result.Duration.Round(summaryDurationRounding)),
	}
	return strings.Join(parts, summaryPartSeparatorConstant)
}
