package gate

import (
	"time"

	"github.com/tyemirov/ecogate/internal/packagemanager"
)

// StageName identifies one step of a gate run.
type StageName string

// Stages in execution order.
const (
	StageSync          StageName = "sync"
	StageSelectAgent   StageName = "select-agent"
	StageLoadManifest  StageName = "load-manifest"
	StageBeforeInstall StageName = "before-install"
	StageInstall       StageName = "install"
	StageBeforeBuild   StageName = "before-build"
	StageBuild         StageName = "build"
	StageBeforeTest    StageName = "before-test"
	StageTest          StageName = "test"
)

// Status is the outcome of a stage.
type Status string

// Stage statuses.
const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusNotRun    Status = "not-run"
)

// StageResult records what happened to one stage.
type StageResult struct {
	Stage    StageName
	Status   Status
	Duration time.Duration
	Err      error
}

// Report summarizes a gate run of one suite.
type Report struct {
	Suite     string
	Directory string
	Agent     packagemanager.Identity
	Stages    []StageResult
	Duration  time.Duration
}

// Succeeded reports whether no stage failed.
func (report Report) Succeeded() bool {
	return report.Failure() == nil
}

// Failure returns the first failed stage, or nil.
func (report Report) Failure() *StageResult {
	for stageIndex := range report.Stages {
		if report.Stages[stageIndex].Status == StatusFailed {
			return &report.Stages[stageIndex]
		}
	}
	return nil
}

// Stage returns the result recorded for name.
func (report Report) Stage(name StageName) (StageResult, bool) {
	for _, result := range report.Stages {
		if result.Stage == name {
			return result, true
		}
	}
	return StageResult{}, false
}
