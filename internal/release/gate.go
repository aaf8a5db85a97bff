// SPDX-License-Identifier: MPL-2.0

package release

import "os"

// Trigger describes what caused the current run, derived from the CI
// environment. Outside CI both fields are empty.
type Trigger struct {
	// EventName is the CI event, e.g. "push" or "pull_request".
	EventName string
	// Ref is the fully qualified git ref, e.g. "refs/heads/main".
	Ref string
}

// TriggerFromEnv reads the trigger from the standard CI environment
// variables.
func TriggerFromEnv() Trigger {
	return Trigger{
		EventName: os.Getenv("GITHUB_EVENT_NAME"),
		Ref:       os.Getenv("GITHUB_REF"),
	}
}

// IsMainPush reports whether the run was triggered by a push to the
// main branch.
func (t Trigger) IsMainPush() bool {
	return t.EventName == "push" && t.Ref == "refs/heads/main"
}

// ShouldPublish decides whether the release is published. Pull-request
// runs never publish, not even with an explicit request; otherwise a
// push to main or an explicit request does.
func ShouldPublish(explicit bool, t Trigger) bool {
	if t.EventName == "pull_request" {
		return false
	}
	return explicit || t.IsMainPush()
}
