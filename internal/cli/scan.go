package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cbr4l0k/Scoop/internal/exec"
	"github.com/cbr4l0k/Scoop/internal/invoker"
	"github.com/cbr4l0k/Scoop/internal/runner"
	"github.com/cbr4l0k/Scoop/internal/storage"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	scanTarget   string
	scanList     string
	scanValidate bool
	scanTimeout  time.Duration
	scanJSON     bool
	scanSave     bool
	scanOutput   string
)

var scanCmd = &cobra.Command{
	Use:   "scan <tool>",
	Short: "Run one tool against a target",
	Long: `Run a single tool against a target, or against every target in a list
file. Targets in a list are processed one after another; a failed target does
not stop the batch.

Tools take either a URL (nuclei-url-scan, httpx-probe, katana-crawl,
waybackurls-fetch, dirsearch-bruteforce) or a host (subfinder-enumerate).
Short names such as "katana" or "subfinder" are accepted.

Examples:
  scoop scan subfinder-enumerate -t example.com
  scoop scan katana -t https://example.com --json
  scoop scan httpx-probe -l urls.txt --validate --save`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var scanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available tools",
	Args:  cobra.NoArgs,
	RunE:  runScanList,
}

func init() {
	scanCmd.Flags().StringVarP(&scanTarget, "target", "t", "", "Target URL or host")
	scanCmd.Flags().StringVarP(&scanList, "list", "l", "", "File with one target per line")
	scanCmd.Flags().BoolVar(&scanValidate, "validate", false, "Check targets against the URL/host patterns first")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "Override the tool timeout (e.g. 5m)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print results as JSON")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Write result JSON files to the output directory")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Also write result lines to this file")

	scanCmd.AddCommand(scanListCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	kind, err := invoker.ParseKind(args[0])
	if err != nil {
		return fmt.Errorf("%w (run 'scoop scan list' for available tools)", err)
	}

	targets, err := scanTargets()
	if err != nil {
		return err
	}

	var callOpts []invoker.CallOption
	if scanValidate {
		callOpts = append(callOpts, invoker.WithValidation())
	}
	if scanTimeout > 0 {
		callOpts = append(callOpts, invoker.WithTimeout(scanTimeout))
	}

	stderr := cmd.ErrOrStderr()
	opts := []runner.Option{runner.WithOutput(stderr)}
	if invokerRunner != nil {
		opts = append(opts, runner.WithInvokerRunner(invokerRunner))
	}
	if !color.NoColor && len(targets) == 1 {
		opts = append(opts, runner.WithSpinner())
	}
	if scanSave {
		opts = append(opts, runner.WithResultFiles(cfg.OutputDir))
	}
	if cfg.SaveHistory && cfg.DBPath != "" {
		hist, err := storage.NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return err
		}
		defer hist.Close()
		opts = append(opts, runner.WithHistory(hist))
	}

	r := runner.New(cfg, opts...)
	outcomes := r.RunList(cmd.Context(), kind, targets, callOpts...)

	if err := printOutcomes(cmd.OutOrStdout(), outcomes); err != nil {
		return err
	}
	if scanOutput != "" {
		if err := writeOutcomes(cmd, scanOutput, outcomes); err != nil {
			return err
		}
	}

	failed := runner.Failed(outcomes)
	switch {
	case failed == 0:
		return nil
	case len(outcomes) == 1:
		return outcomes[0].Err
	default:
		errorf(stderr, "%d of %d targets failed", failed, len(outcomes))
		return fmt.Errorf("%d of %d targets failed: %w", failed, len(outcomes), runner.FirstError(outcomes))
	}
}

func scanTargets() ([]string, error) {
	var targets []string
	if scanTarget != "" {
		targets = append(targets, scanTarget)
	}
	if scanList != "" {
		lines, err := exec.ReadLines(scanList)
		if err != nil {
			return nil, fmt.Errorf("failed to read target list: %w", err)
		}
		targets = append(targets, lines...)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("either --target or --list is required")
	}
	return targets, nil
}

type jsonOutcome struct {
	ID     string          `json:"id,omitempty"`
	Target string          `json:"target"`
	Result *invoker.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func printOutcomes(w io.Writer, outcomes []runner.Outcome) error {
	if scanJSON {
		out := make([]jsonOutcome, 0, len(outcomes))
		for _, o := range outcomes {
			jo := jsonOutcome{ID: o.ID, Target: o.Target, Result: o.Result}
			if o.Err != nil {
				jo.Error = o.Err.Error()
			}
			out = append(out, jo)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(out) == 1 {
			return enc.Encode(out[0])
		}
		return enc.Encode(out)
	}

	for _, o := range outcomes {
		if o.Err != nil || o.Result == nil {
			continue
		}
		if o.Result.Lines != nil {
			for _, l := range o.Result.Lines {
				fmt.Fprintln(w, l)
			}
			continue
		}
		if o.Result.Text != "" {
			fmt.Fprint(w, o.Result.Text)
			if !strings.HasSuffix(o.Result.Text, "\n") {
				fmt.Fprintln(w)
			}
		}
	}
	return nil
}

// writeOutcomes writes every line (or text result) of the successful
// outcomes to path, one entry per line.
func writeOutcomes(cmd *cobra.Command, path string, outcomes []runner.Outcome) error {
	var lines []string
	for _, o := range outcomes {
		if o.Err != nil || o.Result == nil {
			continue
		}
		if o.Result.Lines != nil {
			lines = append(lines, o.Result.Lines...)
		} else if t := strings.TrimRight(o.Result.Text, "\n"); t != "" {
			lines = append(lines, t)
		}
	}

	out := storage.NewLocalStorage(filepath.Dir(path))
	if err := out.WriteLines(cmd.Context(), filepath.Base(path), lines); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d line(s) to %s\n", len(lines), path)
	return nil
}

func runScanList(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	for _, k := range invoker.Kinds() {
		fmt.Fprintf(w, "  %-22s %-12s %-5s ", k, k.Binary(), k.Target())
		if k.Implemented() {
			green.Fprintln(w, "available")
		} else {
			gray.Fprintln(w, "not implemented")
		}
	}
	return nil
}
