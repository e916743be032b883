package tasks

import "time"

// TaskOutcome records the result of executing one task once.
//
// Success is true only when the exit code is zero and no timeout or
// cancellation occurred. A failing composite task mirrors the first failing
// sub-task's exit code and stderr; a succeeding composite carries the last
// sub-task's data with the summed duration.
type TaskOutcome struct {
	Definition     TaskDefinition
	Success        bool
	ExitCode       int
	StandardOutput string
	StandardError  string
	Duration       time.Duration
}
