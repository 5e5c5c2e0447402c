// Package mocks holds testify mocks of utils/exec interfaces.
package mocks

import (
	"io"

	"github.com/stretchr/testify/mock"
)

// Executor is a mock of exec.Executor. Expectations are keyed on the
// command name and the argument slice.
type Executor struct {
	mock.Mock
}

func (m *Executor) ExecuteCommandWithOutput(command string, arg ...string) (string, error) {
	ret := m.Called(command, normalize(arg))
	return ret.String(0), ret.Error(1)
}

func (m *Executor) ExecuteCommandWithCombinedOutput(command string, arg ...string) (string, error) {
	ret := m.Called(command, normalize(arg))
	return ret.String(0), ret.Error(1)
}

// ExecuteCommandWithInput ignores stdin when matching.
func (m *Executor) ExecuteCommandWithInput(_ io.Reader, command string, arg ...string) (string, error) {
	ret := m.Called(command, normalize(arg))
	return ret.String(0), ret.Error(1)
}

// Expect registers a single combined-output invocation.
func (m *Executor) Expect(out string, err error, command string, arg ...string) *mock.Call {
	arg = normalize(arg)
	return m.On("ExecuteCommandWithCombinedOutput", command, arg).Return(out, err).Once()
}

// ExpectOutput registers a single stdout-only invocation.
func (m *Executor) ExpectOutput(out string, err error, command string, arg ...string) *mock.Call {
	arg = normalize(arg)
	return m.On("ExecuteCommandWithOutput", command, arg).Return(out, err).Once()
}

// ExpectInput registers a single invocation fed through stdin.
func (m *Executor) ExpectInput(out string, err error, command string, arg ...string) *mock.Call {
	arg = normalize(arg)
	return m.On("ExecuteCommandWithInput", command, arg).Return(out, err).Once()
}

// normalize makes "no arguments" compare equal however it was spelled.
func normalize(arg []string) []string {
	if len(arg) == 0 {
		return nil
	}
	return arg
}
