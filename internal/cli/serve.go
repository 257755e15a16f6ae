package cli

import (
	"fmt"

	"github.com/cbr4l0k/Scoop/internal/runner"
	"github.com/cbr4l0k/Scoop/internal/server"
	"github.com/cbr4l0k/Scoop/internal/storage"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	servePort   int
	serveHost   string
	serveAPIKey string
	serveSave   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose tool invocations over HTTP",
	Long: `Start an HTTP API that runs tools on request.

Every /api/v1 endpoint except /version needs the API key, sent as the
X-API-Key header or as a Bearer token. A random key is generated and printed
when none is configured.

Examples:
  # Start with default settings (127.0.0.1:8899)
  scoop serve

  # Allow external connections (use with caution!)
  scoop serve --host 0.0.0.0 --api-key YOUR_SECRET_KEY`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Server port (default from config, 8899)")
	serveCmd.Flags().StringVarP(&serveHost, "host", "H", "", "Server host (default from config, 127.0.0.1)")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "API key for authentication")
	serveCmd.Flags().BoolVar(&serveSave, "save", false, "Write result JSON files to the output directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	printBanner(w)

	sc := server.DefaultConfig()
	sc.Host = cfg.Server.Host
	sc.Port = cfg.Server.Port
	sc.APIKey = cfg.Server.APIKey
	sc.Debug = cfg.Debug
	if serveSave {
		sc.ResultsDir = cfg.OutputDir
	}
	if cfg.Server.MaxInvocations > 0 {
		sc.MaxInvocations = cfg.Server.MaxInvocations
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		sc.AllowedOrigins = cfg.Server.AllowedOrigins
	}
	if cmd.Flags().Changed("host") {
		sc.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		sc.Port = servePort
	}
	if serveAPIKey != "" {
		sc.APIKey = serveAPIKey
	}

	if sc.APIKey == "" {
		sc.APIKey = server.GenerateAPIKey()
		green.Fprintln(w, "  Authentication Enabled (Required)")
		green.Fprintln(w, "  ────────────────────────────────────────")
		green.Fprintf(w, "  API Key:  %s\n", sc.APIKey)
		fmt.Fprintln(w, "  Set server.api_key in the config file or SCOOP_API_KEY to keep it stable.")
		fmt.Fprintln(w)
	}
	if sc.Host != "127.0.0.1" && sc.Host != "localhost" {
		yellow.Fprintf(w, "  ⚠ Listening on %s: tools will run for any client holding the key\n\n", sc.Host)
	}

	opts := []runner.Option{}
	if invokerRunner != nil {
		opts = append(opts, runner.WithInvokerRunner(invokerRunner))
	}
	if serveSave {
		opts = append(opts, runner.WithResultFiles(cfg.OutputDir))
	}

	var hist *storage.SQLiteStorage
	if cfg.SaveHistory && cfg.DBPath != "" {
		var err error
		hist, err = storage.NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return err
		}
		defer hist.Close()
		opts = append(opts, runner.WithHistory(hist))
	}

	srv := server.New(sc, runner.New(cfg, opts...), hist)
	return srv.Run(cmd.Context())
}
