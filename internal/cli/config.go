package cli

import (
	"fmt"
	"os"

	"github.com/cbr4l0k/Scoop/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configForce bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		Long: `Manage the scoop configuration file (~/.scoop/config.yaml).

Values can also come from a .env file or from the environment:
  SCOOP_OUTPUT_DIR  result file directory
  SCOOP_DB          history database path
  SCOOP_API_KEY     API key for 'scoop serve'

Commands:
  show  - Display the effective configuration
  init  - Write a config file with the defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long:  "Shows the configuration after defaults, the config file and environment overrides are applied. The API key is masked.",
		RunE:  runConfigShow,
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a config file with defaults",
		RunE:  runConfigInit,
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	cyan := color.New(color.FgCyan, color.Bold)
	gray := color.New(color.FgHiBlack)

	shown := *cfg
	if shown.Server.APIKey != "" {
		shown.Server.APIKey = "****"
	}
	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	cyan.Fprintln(w, "\n[+] Scoop Configuration")
	fmt.Fprintln(w)
	fmt.Fprint(w, string(data))
	gray.Fprintf(w, "\nConfig file: %s\n", configPath())
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	path := configPath()
	if _, err := os.Stat(path); err == nil && !configForce {
		yellow.Fprintf(w, "Config already exists: %s (use --force to overwrite)\n", path)
		return nil
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	green.Fprintf(w, "✓ Created: %s\n", path)
	return nil
}
