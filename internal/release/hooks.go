// SPDX-License-Identifier: MPL-2.0

package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// RunHook executes a pre- or post-release hook script with the embedded
// shell interpreter, so hooks behave identically across platforms. The
// hook runs in workDir with the process environment plus REFINER_VERSION
// set to the release version.
func RunHook(ctx context.Context, script, workDir, version string, stdout, stderr io.Writer) error {
	parser := syntax.NewParser()
	prog, err := parser.Parse(strings.NewReader(script), "hook")
	if err != nil {
		return fmt.Errorf("parsing hook script: %w", err)
	}

	env := append(os.Environ(), "REFINER_VERSION="+version)
	runner, err := interp.New(
		interp.Dir(workDir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return fmt.Errorf("creating hook interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return fmt.Errorf("hook exited with status %d", int(exitStatus))
		}
		return fmt.Errorf("running hook: %w", err)
	}
	return nil
}
