package taskrunner

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tyemirov/ecogate/internal/gate"
	"github.com/tyemirov/ecogate/internal/reposync"
)

// Executor runs one suite through the gate lifecycle.
type Executor interface {
	Run(ctx context.Context, ref reposync.RepoRef, options gate.RunOptions) (gate.Report, error)
}

// Factory constructs an Executor given gate dependencies.
type Factory func(gate.Dependencies) (Executor, error)

// Resolve returns either the provided factory result or a default gate, printing a summary line after each run.
func Resolve(factory Factory, dependencies DependenciesResult) (Executor, error) {
	var base Executor
	if factory != nil {
		produced, factoryError := factory(dependencies.Gate)
		if factoryError != nil {
			return nil, factoryError
		}
		base = produced
	}
	if base == nil {
		constructed, gateError := gate.NewGate(dependencies.Gate)
		if gateError != nil {
			return nil, fmt.Errorf("taskrunner.resolve.gate: %w", gateError)
		}
		base = constructed
	}
	return summaryExecutor{
		delegate: base,
		writer:   dependencies.Errors,
	}, nil
}

type summaryExecutor struct {
	delegate Executor
	writer   io.Writer
}

func (executor summaryExecutor) Run(ctx context.Context, ref reposync.RepoRef, options gate.RunOptions) (gate.Report, error) {
	report, err := executor.delegate.Run(ctx, ref, options)
	executor.printSummary(report)
	return report, err
}

func (executor summaryExecutor) printSummary(report gate.Report) {
	if executor.writer == nil || len(report.Stages) == 0 {
		return
	}
	summary := gate.RenderSummaryLine(report)
	if len(strings.TrimSpace(summary)) == 0 {
		return
	}
	fmt.Fprintln(executor.writer, summary)
}
