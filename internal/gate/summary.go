package gate

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

const (
	summaryHeaderSuiteConstant    = "Suite"
	summaryHeaderStageConstant    = "Stage"
	summaryHeaderStatusConstant   = "Status"
	summaryHeaderDurationConstant = "Duration"
	summaryHeaderErrorConstant    = "Error"
	summaryEmptyCellConstant      = "-"
	summaryLinePrefixConstant     = "Summary:"
	summaryErrorWidthConstant     = 80
)

// RenderSummary writes one table row per stage of every report.
func RenderSummary(writer io.Writer, reports []Report) error {
	table := tablewriter.NewTable(writer,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithHeader([]string{
			summaryHeaderSuiteConstant,
			summaryHeaderStageConstant,
			summaryHeaderStatusConstant,
			summaryHeaderDurationConstant,
			summaryHeaderErrorConstant,
		}),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)

	for _, report := range reports {
		for _, result := range report.Stages {
			if appendError := table.Append([]string{
				report.Suite,
				string(result.Stage),
				string(result.Status),
				formatDuration(result),
				formatError(result.Err),
			}); appendError != nil {
				return appendError
			}
		}
	}
	return table.Render()
}

// RenderSummaryLine returns a one-line digest of a report for CI logs.
func RenderSummaryLine(report Report) string {
	counts := map[Status]int{}
	for _, result := range report.Stages {
		counts[result.Status]++
	}
	outcome := StatusSucceeded
	parts := []string{summaryLinePrefixConstant, fmt.Sprintf("suite=%s", report.Suite)}
	if failure := report.Failure(); failure != nil {
		outcome = StatusFailed
		parts = append(parts, fmt.Sprintf("failed.stage=%s", failure.Stage))
	}
	parts = append(parts, fmt.Sprintf("result=%s", outcome))
	for _, status := range []Status{StatusSucceeded, StatusFailed, StatusSkipped, StatusNotRun} {
		parts = append(parts, fmt.Sprintf("%s=%d", status, counts[status]))
	}
	if len(report.Agent) > 0 {
		parts = append(parts, fmt.Sprintf("agent=%s", report.Agent))
	}
	parts = append(parts, fmt.Sprintf("duration=%s", report.Duration.Round(time.Millisecond)))
	return strings.Join(parts, " ")
}

func formatDuration(result StageResult) string {
	if result.Status == StatusNotRun || result.Status == StatusSkipped {
		return summaryEmptyCellConstant
	}
	return result.Duration.Round(time.Millisecond).String()
}

func formatError(err error) string {
	if err == nil {
		return summaryEmptyCellConstant
	}
	message := strings.Join(strings.Fields(err.Error()), " ")
	if len(message) > summaryErrorWidthConstant {
		return message[:summaryErrorWidthConstant-3] + "..."
	}
	return message
}
