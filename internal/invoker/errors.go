package invoker

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTarget       = errors.New("invalid target")
	ErrUnknownTool         = errors.New("unknown tool")
	ErrNotImplemented      = errors.New("not implemented")
	ErrToolNotFound        = errors.New("tool not found")
	ErrToolExecutionFailed = errors.New("tool execution failed")
	ErrToolTimeout         = errors.New("tool timed out")
	ErrDecode              = errors.New("output is not valid UTF-8")
)

// Error ties a failure to the invocation that produced it.
type Error struct {
	Kind     Kind
	Binary   string
	Target   string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Target != "" {
		fmt.Fprintf(&b, " %q", e.Target)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		if len(s) > 512 {
			s = s[:512] + "..."
		}
		fmt.Fprintf(&b, ": %s", s)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }
