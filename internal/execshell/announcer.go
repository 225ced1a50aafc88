package execshell

import (
	"fmt"
	"io"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

const (
	invocationLineTemplateConstant = "%s $> %s\n"
	groupStartTemplateConstant     = "::group::%s $> %s\n"
	groupEndLineConstant           = "::endgroup::\n"
)

// InvocationAnnouncer prints each command line for operators following a run live.
// Grouped output wraps every invocation in a collapsible CI log group.
type InvocationAnnouncer struct {
	output        io.Writer
	groupedOutput bool
}

// NewInvocationAnnouncer constructs an announcer writing to output. A nil output disables announcements.
func NewInvocationAnnouncer(output io.Writer, groupedOutput bool) InvocationAnnouncer {
	return InvocationAnnouncer{output: output, groupedOutput: groupedOutput}
}

// Begin announces the command before it runs.
func (announcer InvocationAnnouncer) Begin(command ShellCommand) {
	if announcer.output == nil {
		return
	}
	template := invocationLineTemplateConstant
	if announcer.groupedOutput {
		template = groupStartTemplateConstant
	}
	fmt.Fprintf(announcer.output, template, announcedDirectory(command), FormatCommandLine(command))
}

// End closes the collapsible group opened by Begin.
func (announcer InvocationAnnouncer) End(command ShellCommand) {
	if announcer.output == nil || !announcer.groupedOutput {
		return
	}
	io.WriteString(announcer.output, groupEndLineConstant)
}

// FormatCommandLine renders the command as a copy-pasteable shell line.
func FormatCommandLine(command ShellCommand) string {
	return shellescape.QuoteCommand(append([]string{string(command.Name)}, command.Details.Arguments...))
}

func announcedDirectory(command ShellCommand) string {
	workingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(workingDirectory) == 0 {
		return defaultWorkingDirectoryConstant
	}
	return workingDirectory
}
