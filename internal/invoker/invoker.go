// Package invoker turns a (tool kind, target) pair into a child process and
// a normalized result. It keeps no state between calls.
package invoker

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cbr4l0k/Scoop/internal/exec"
	"github.com/cbr4l0k/Scoop/internal/target"
)

// Runner executes a binary. exec.Run satisfies it through RunnerFunc; tests
// substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args []string, opts *exec.Options) *exec.Result
}

type RunnerFunc func(ctx context.Context, name string, args []string, opts *exec.Options) *exec.Result

func (f RunnerFunc) Run(ctx context.Context, name string, args []string, opts *exec.Options) *exec.Result {
	return f(ctx, name, args, opts)
}

// Invocation is one fully built process call. Target is always the final or
// a discrete argv element; nothing is passed through a shell.
type Invocation struct {
	Kind   Kind     `json:"kind"`
	Binary string   `json:"binary"`
	Args   []string `json:"args"`
	Target string   `json:"target"`
}

// Argv returns a copy of binary followed by args.
func (inv Invocation) Argv() []string {
	return append([]string{inv.Binary}, inv.Args...)
}

func (inv Invocation) String() string {
	return strings.Join(inv.Argv(), " ")
}

// Result is the decoded output of one invocation. Text tools fill Text; list
// and URL tools fill Lines. Raw holds stdout when it could not be decoded or
// the tool failed.
type Result struct {
	Invocation Invocation    `json:"invocation"`
	Output     string        `json:"output"`
	Text       string        `json:"text,omitempty"`
	Lines      []string      `json:"lines,omitempty"`
	Raw        []byte        `json:"raw,omitempty"`
	Stderr     string        `json:"stderr,omitempty"`
	ExitCode   int           `json:"exit_code"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// Count is the number of lines, or 1 for non-empty text results.
func (r *Result) Count() int {
	if r.Lines != nil {
		return len(r.Lines)
	}
	if r.Text != "" {
		return 1
	}
	return 0
}

type Options struct {
	// Timeouts per kind; missing or zero falls back to Kind.DefaultTimeout.
	Timeouts map[Kind]time.Duration
	// Binaries per kind; missing falls back to Kind.Binary.
	Binaries map[Kind]string
	// Validate runs the URL/host pre-check on every call.
	Validate bool
	Runner   Runner
}

type Invoker struct {
	opts   Options
	runner Runner
}

func New(opts *Options) *Invoker {
	if opts == nil {
		opts = &Options{}
	}
	r := opts.Runner
	if r == nil {
		r = RunnerFunc(exec.Run)
	}
	return &Invoker{opts: *opts, runner: r}
}

// BinaryFor returns the binary kind runs, after configured overrides.
func (i *Invoker) BinaryFor(kind Kind) string {
	if b, ok := i.opts.Binaries[kind]; ok && b != "" {
		return b
	}
	return kind.Binary()
}

type callOptions struct {
	timeout  time.Duration
	validate bool
}

// CallOption adjusts a single Invoke.
type CallOption func(*callOptions)

// WithTimeout overrides the configured timeout. Zero disables it.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) { o.timeout = d }
}

// WithValidation applies the URL/host pre-check for this call.
func WithValidation() CallOption {
	return func(o *callOptions) { o.validate = true }
}

// Build validates the request and returns the invocation without running it.
func (i *Invoker) Build(kind Kind, t string, opts ...CallOption) (Invocation, error) {
	co := i.callOptions(kind, opts)
	return i.build(kind, t, co.validate)
}

func (i *Invoker) build(kind Kind, t string, validate bool) (Invocation, error) {
	s, ok := kind.lookup()
	if !ok {
		return Invocation{}, &Error{Kind: kind, Target: t, Err: ErrUnknownTool}
	}
	if s.args == nil {
		return Invocation{}, &Error{Kind: kind, Binary: s.binary, Target: t, Err: ErrNotImplemented}
	}
	if strings.TrimSpace(t) == "" {
		return Invocation{}, &Error{Kind: kind, Target: t, Err: ErrInvalidTarget}
	}
	// A leading dash would be parsed as a flag by the tool.
	if strings.HasPrefix(t, "-") {
		return Invocation{}, &Error{Kind: kind, Target: t, Err: ErrInvalidTarget}
	}
	if validate {
		if err := target.Validate(s.target, t); err != nil {
			return Invocation{}, &Error{Kind: kind, Target: t, Err: errors.Join(ErrInvalidTarget, err)}
		}
	}

	return Invocation{Kind: kind, Binary: i.BinaryFor(kind), Args: s.args(t), Target: t}, nil
}

func (i *Invoker) callOptions(kind Kind, opts []CallOption) callOptions {
	co := callOptions{timeout: kind.DefaultTimeout(), validate: i.opts.Validate}
	if d, ok := i.opts.Timeouts[kind]; ok && d > 0 {
		co.timeout = d
	}
	for _, o := range opts {
		o(&co)
	}
	return co
}

// Invoke runs kind against t and blocks until the process exits, the timeout
// fires or ctx is done. On failure the returned Result, when non-nil, still
// carries stderr, exit code and raw stdout.
func (i *Invoker) Invoke(ctx context.Context, kind Kind, t string, opts ...CallOption) (*Result, error) {
	co := i.callOptions(kind, opts)
	inv, err := i.build(kind, t, co.validate)
	if err != nil {
		return nil, err
	}
	return i.Run(ctx, inv, opts...)
}

// Run executes an already built invocation.
func (i *Invoker) Run(ctx context.Context, inv Invocation, opts ...CallOption) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	co := i.callOptions(inv.Kind, opts)

	started := time.Now()
	pr := i.runner.Run(ctx, inv.Binary, inv.Args, &exec.Options{Timeout: co.timeout})

	res := &Result{
		Invocation: inv,
		Output:     inv.Kind.Output().String(),
		Stderr:     pr.Stderr,
		ExitCode:   pr.ExitCode,
		StartedAt:  started,
		Duration:   pr.Duration,
	}

	fail := func(err error) (*Result, error) {
		res.Raw = pr.Stdout
		return res, &Error{
			Kind:     inv.Kind,
			Binary:   inv.Binary,
			Target:   inv.Target,
			ExitCode: pr.ExitCode,
			Stderr:   pr.Stderr,
			Err:      err,
		}
	}

	switch {
	case pr.NotFound:
		return fail(ErrToolNotFound)
	case pr.TimedOut:
		return fail(ErrToolTimeout)
	case ctx.Err() != nil:
		return fail(ctx.Err())
	case pr.Error != nil:
		return fail(errors.Join(ErrToolExecutionFailed, pr.Error))
	}

	if !utf8.Valid(pr.Stdout) {
		return fail(ErrDecode)
	}
	text := string(pr.Stdout)

	switch inv.Kind.Output() {
	case OutputText:
		res.Text = text
	case OutputURLs:
		res.Lines = target.ExtractURLs(text)
		if res.Lines == nil {
			res.Lines = []string{}
		}
	default:
		res.Lines = SplitLines(text)
	}
	return res, nil
}

// SplitLines splits tool output on newlines. The empty element left by a
// trailing newline is dropped; interior empty lines and duplicates are kept.
// A trailing carriage return is stripped from each line.
func SplitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for idx, l := range lines {
		lines[idx] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
