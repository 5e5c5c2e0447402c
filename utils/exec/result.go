/*
   Copyright @ 2021 bocloud <fushaosong@beyondcent.com>.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package exec

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// CommandResult exit status plus captured stdout+stderr of one invocation
type CommandResult struct {
	Command string
	Output  string
	Success bool
	// ExitCode of the process, -1 when it never ran or was killed
	ExitCode int
	Err      error
}

// Error converts a failed result into a *CommandError, nil on success.
func (r CommandResult) Error() error {
	if r.Success {
		return nil
	}
	return &CommandError{Command: r.Command, Output: r.Output, ExitCode: r.ExitCode, Err: r.Err}
}

// CommandError carries the exact command line and its output so that
// destructive failures can be diagnosed after the fact.
type CommandError struct {
	Command  string
	Output   string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed with exit code %d: %v: %s", e.Command, e.ExitCode, e.Err, e.Output)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner wraps an Executor with the logging contract every storage action
// follows: the command at debug, its output at info on success and at
// error on failure. A non-zero exit never panics or aborts, the caller
// decides what is fatal.
type Runner struct {
	Executor Executor
	Log      *zap.SugaredLogger
}

func NewRunner(executor Executor, logger *zap.SugaredLogger) *Runner {
	return &Runner{Executor: executor, Log: logger}
}

// Run executes an action command.
func (r *Runner) Run(command string, arg ...string) CommandResult {
	line := commandLine(command, arg...)
	r.Log.Debugf("Executing: %s", line)
	out, err := r.Executor.ExecuteCommandWithCombinedOutput(command, arg...)
	return r.result(line, out, err)
}

// RunWithInput executes an action command feeding stdin.
func (r *Runner) RunWithInput(stdin io.Reader, command string, arg ...string) CommandResult {
	line := commandLine(command, arg...)
	r.Log.Debugf("Executing: %s", line)
	out, err := r.Executor.ExecuteCommandWithInput(stdin, command, arg...)
	return r.result(line, out, err)
}

// Inspect executes a read-only command and returns whatever it printed,
// regardless of exit status. Inspection tools often exit non-zero when
// the thing looked for is absent, which is an answer and not an error.
func (r *Runner) Inspect(command string, arg ...string) string {
	out, err := r.Executor.ExecuteCommandWithCombinedOutput(command, arg...)
	if err != nil {
		r.Log.Debugf("%s exited with %v", commandLine(command, arg...), err)
	}
	return out
}

// InspectStdout executes a read-only command and returns stdout only.
func (r *Runner) InspectStdout(command string, arg ...string) (string, error) {
	return r.Executor.ExecuteCommandWithOutput(command, arg...)
}

func (r *Runner) result(line, out string, err error) CommandResult {
	if err != nil {
		code, ok := ExitStatus(err)
		if !ok {
			code = -1
		}
		r.Log.Errorf("%s (exit code %d): %s", line, code, out)
		return CommandResult{Command: line, Output: out, Success: false, ExitCode: code, Err: err}
	}
	r.Log.Info(out)
	return CommandResult{Command: line, Output: out, Success: true}
}

func commandLine(command string, arg ...string) string {
	if len(arg) == 0 {
		return command
	}
	return command + " " + strings.Join(arg, " ")
}

// ExitStatus exit code carried by an *exec.ExitError anywhere in err's chain.
func ExitStatus(err error) (int, bool) {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, false
	}
	if status, ok := exitErr.ProcessState.Sys().(syscall.WaitStatus); ok && !status.Signaled() {
		return status.ExitStatus(), true
	}
	return 0, false
}
