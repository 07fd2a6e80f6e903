package deploy

import "fmt"

// ConfigError is an operator-side configuration problem: a missing
// credential, a dirty worktree, an unresolvable revision. Reported
// before any action is taken and mapped to exit code 128.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// Configf builds a ConfigError
func Configf(format string, args ...any) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// DeployError is a deployment-logic failure: no matching run, a missing
// tracked file or artifact. Mapped to exit code 1. Raised only after the
// run cache has already persisted whatever progress was made.
type DeployError struct {
	Message string
}

func (e *DeployError) Error() string {
	return e.Message
}

// Deployf builds a DeployError
func Deployf(format string, args ...any) error {
	return &DeployError{Message: fmt.Sprintf(format, args...)}
}
