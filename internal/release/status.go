// SPDX-License-Identifier: MPL-2.0

package release

import "log/slog"

const (
	// SuccessMessage is the final log line of a successful run.
	SuccessMessage = "Release pipeline completed successfully!"
	// FailureMessage is the final log line of a failed run.
	FailureMessage = "Release pipeline failed!"
)

// StatusMessage returns the fixed final log line for a run outcome.
func StatusMessage(err error) string {
	if err != nil {
		return FailureMessage
	}
	return SuccessMessage
}

// LogStatus emits the final status line. It is called unconditionally,
// whether or not earlier stages failed.
func LogStatus(err error) {
	if err != nil {
		slog.Error(FailureMessage, "error", err)
		return
	}
	slog.Info(SuccessMessage)
}
