package cli

import (
	"errors"
	"fmt"
)

// ErrUsage marks failures callers should treat as a bad invocation (flags,
// config file, input selection) rather than a pipeline failure.
var ErrUsage = errors.New("usage error")

type usageError struct {
	msg string
}

// usagef builds a usage error; every command reports flag and config
// mistakes through it so errors.Is(err, ErrUsage) holds.
func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func (e usageError) Error() string { return e.msg }

func (e usageError) Is(target error) bool { return target == ErrUsage }
