package cli

import (
	"context"
	"io"

	"github.com/cbr4l0k/Scoop/internal/config"
	"github.com/cbr4l0k/Scoop/internal/debug"
	"github.com/cbr4l0k/Scoop/internal/invoker"
	"github.com/cbr4l0k/Scoop/internal/version"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	debugMode bool
	cfg       = config.DefaultConfig()

	// invokerRunner replaces process execution when set (tests only)
	invokerRunner invoker.Runner

	rootCmd = &cobra.Command{
		Use:   "scoop",
		Short: "Uniform wrapper around recon command-line tools",
		Long: `Scoop runs reconnaissance tools (nuclei, httpx, katana, waybackurls,
dirsearch, subfinder) against a single target and returns their output in a
uniform shape. Results can be kept in a local history and served over HTTP.

Example:
  scoop scan subfinder-enumerate -t example.com`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			debug.Summary()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.scoop/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Show detailed timing logs for each tool execution")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI. Cancelling ctx stops running tools.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath()
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath())
	if err != nil {
		return err
	}
	cfg = loaded
	if debugMode {
		cfg.Debug = true
	}
	if cfg.Debug {
		debug.Enable()
	}
	return nil
}

func printBanner(w io.Writer) {
	cyan := color.New(color.FgCyan, color.Bold)
	gray := color.New(color.FgHiBlack)

	cyan.Fprint(w, `
  ___  ___ ___   ___  _ __
 / __|/ __/ _ \ / _ \| '_ \
 \__ \ (_| (_) | (_) | |_) |
 |___/\___\___/ \___/| .__/
                     |_|
`)
	gray.Fprintf(w, "  v%s\n\n", version.Version)
}

// errorf prints a red error line, used for per-target failures in a batch
func errorf(w io.Writer, format string, a ...interface{}) {
	color.New(color.FgRed).Fprintf(w, "✗ "+format+"\n", a...)
}
