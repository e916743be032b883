// Package taskrunner hosts the shared abstractions for running wrknv tasks
// across a workspace. It exposes the `Runner` interface plus helpers
// (`Factory`, `Resolve`) so CLI packages can inject Dependencies once and
// obtain a runner, while unit tests can swap in fakes. This keeps the
// orchestration logic in `internal/workspace` reusable without wiring
// duplication.
package taskrunner
