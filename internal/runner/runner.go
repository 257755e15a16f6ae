package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cbr4l0k/Scoop/internal/config"
	"github.com/cbr4l0k/Scoop/internal/debug"
	"github.com/cbr4l0k/Scoop/internal/invoker"
	"github.com/cbr4l0k/Scoop/internal/storage"
	"github.com/cbr4l0k/Scoop/internal/tools"
	"github.com/cbr4l0k/Scoop/internal/version"
	"github.com/fatih/color"
)

// Runner wraps the invoker with progress output, history and result files.
// Targets are always processed one after another.
type Runner struct {
	cfg     *config.Config
	inv     *invoker.Invoker
	history *storage.SQLiteStorage
	files   *storage.LocalStorage
	out     io.Writer
	spinner bool
}

type Option func(*Runner)

// WithHistory records every invocation in s.
func WithHistory(s *storage.SQLiteStorage) Option {
	return func(r *Runner) { r.history = s }
}

// WithResultFiles writes each result as JSON under dir.
func WithResultFiles(dir string) Option {
	return func(r *Runner) { r.files = storage.NewLocalStorage(dir) }
}

// WithOutput sends progress lines to w. io.Discard silences them.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithSpinner animates a spinner while a tool runs.
func WithSpinner() Option {
	return func(r *Runner) { r.spinner = true }
}

// WithInvokerRunner replaces process execution, for tests.
func WithInvokerRunner(ir invoker.Runner) Option {
	return func(r *Runner) { r.inv = newInvoker(r.cfg, ir) }
}

func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, out: color.Output}
	r.inv = newInvoker(cfg, nil)
	for _, o := range opts {
		o(r)
	}
	return r
}

func newInvoker(cfg *config.Config, ir invoker.Runner) *invoker.Invoker {
	opts := &invoker.Options{
		Timeouts: map[invoker.Kind]time.Duration{},
		Binaries: map[invoker.Kind]string{},
		Validate: cfg.Validate,
		Runner:   ir,
	}
	for name, tc := range cfg.Tools {
		kind, err := invoker.ParseKind(name)
		if err != nil {
			continue
		}
		if tc.Timeout > 0 {
			opts.Timeouts[kind] = time.Duration(tc.Timeout)
		}
		if tc.Binary != "" {
			opts.Binaries[kind] = tc.Binary
		}
	}
	return invoker.New(opts)
}

// Invoker exposes the configured invoker.
func (r *Runner) Invoker() *invoker.Invoker { return r.inv }

// Outcome is the result of one target in a batch.
type Outcome struct {
	Target string
	ID     string
	Result *invoker.Result
	Err    error
}

// Run invokes kind against a single target, then records it.
func (r *Runner) Run(ctx context.Context, kind invoker.Kind, t string, opts ...invoker.CallOption) Outcome {
	o := Outcome{Target: t, ID: storage.NewID()}

	inv, err := r.inv.Build(kind, t, opts...)
	if err != nil {
		// Nothing ran; nothing to record
		o.Err = err
		r.printFailure(kind, t, err)
		return o
	}

	msg := fmt.Sprintf("%s %s with %s", kind.Verb(), t, inv.Binary)
	var sp *tools.Spinner
	if r.spinner {
		sp = tools.NewSpinner(msg)
		sp.SetOutput(r.out)
		sp.Start()
	} else {
		color.New(color.FgCyan).Fprintf(r.out, "[*] %s\n", msg)
	}

	o.Result, o.Err = r.inv.Run(ctx, inv, opts...)

	if sp != nil {
		if o.Err != nil {
			sp.Fail(fmt.Sprintf("%s: %v", kind, o.Err))
		} else {
			sp.Success(fmt.Sprintf("%s: %d result(s) in %s", kind, o.Result.Count(), o.Result.Duration.Round(time.Millisecond)))
		}
	} else if o.Err != nil {
		r.printFailure(kind, t, o.Err)
	}

	r.record(ctx, inv, &o)
	return o
}

// RunList invokes kind against each target in order. A failed target does not
// stop the batch; ctx cancellation does.
func (r *Runner) RunList(ctx context.Context, kind invoker.Kind, targets []string, opts ...invoker.CallOption) []Outcome {
	out := make([]Outcome, 0, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			out = append(out, Outcome{Target: t, Err: err})
			continue
		}
		out = append(out, r.Run(ctx, kind, t, opts...))
	}
	return out
}

func (r *Runner) printFailure(kind invoker.Kind, t string, err error) {
	color.New(color.FgYellow).Fprintf(r.out, "⚠ %s %s: %v\n", kind, t, err)
}

func (r *Runner) record(ctx context.Context, inv invoker.Invocation, o *Outcome) {
	if r.history == nil && r.files == nil {
		return
	}

	rec := &storage.InvocationRecord{
		ID:        o.ID,
		Tool:      string(inv.Kind),
		Binary:    inv.Binary,
		Args:      inv.Args,
		Target:    inv.Target,
		Status:    storage.StatusCompleted,
		StartedAt: time.Now(),
	}
	if o.Result != nil {
		rec.ExitCode = o.Result.ExitCode
		rec.Lines = o.Result.Count()
		rec.Duration = o.Result.Duration
		rec.StartedAt = o.Result.StartedAt
	}
	if o.Err != nil {
		rec.Status = storage.StatusFailed
		rec.Error = o.Err.Error()
	}

	// Persist even when the caller's ctx was cancelled
	saveCtx := context.WithoutCancel(ctx)

	if r.files != nil && o.Result != nil {
		path := storage.ResultPath(rec.Tool, rec.ID)
		file := storage.ResultFile{
			Meta: storage.ResultMeta{
				ID:        rec.ID,
				Tool:      rec.Tool,
				Target:    rec.Target,
				Command:   inv.String(),
				StartTime: rec.StartedAt,
				Duration:  rec.Duration.String(),
				Status:    rec.Status,
				Error:     rec.Error,
				Version:   version.Version,
			},
			Data: o.Result,
		}
		if err := r.files.WriteJSON(saveCtx, path, file); err != nil {
			r.warn("failed to write result file", err)
		} else {
			rec.ResultPath = path
		}
	}

	if r.history != nil {
		if err := r.history.SaveInvocation(saveCtx, rec); err != nil {
			r.warn("failed to record invocation", err)
		}
	}
	debug.LogRecord(rec.Tool, rec.ID, rec.Status)
}

func (r *Runner) warn(msg string, err error) {
	color.New(color.FgYellow).Fprintf(r.out, "⚠ %s: %v\n", msg, err)
}

// Failed counts outcomes with an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// FirstError returns the first outcome error, if any.
func FirstError(outcomes []Outcome) error {
	for _, o := range outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}
