package cli

import (
	"fmt"

	"github.com/cbr4l0k/Scoop/internal/tools"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check installed tools",
	Long: `Check which wrapped tools are installed, their versions, and where to
get the missing ones. Scoop never installs tools itself.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan, color.Bold)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintln(w, "\n[+] Scoop Tool Status")
	fmt.Fprintln(w)

	checker := tools.NewChecker()

	sp := tools.NewSpinner("Checking tools")
	sp.SetOutput(cmd.ErrOrStderr())
	if !color.NoColor {
		sp.Start()
	}
	status := checker.CheckAll()
	sp.Stop()

	fmt.Fprintln(w, "─────────────────────────────────────────────────────")
	for _, st := range status {
		t, _ := tools.Lookup(st.Binary)
		fmt.Fprintf(w, "  %-12s %-12s ", st.Name, st.Binary)
		switch {
		case st.Installed && st.Outdated:
			yellow.Fprintf(w, "⚠ outdated (%s < %s)\n", st.Version, t.MinVersion)
		case st.Installed:
			green.Fprint(w, "✓ installed")
			if st.Version != "" {
				fmt.Fprintf(w, " (%s)", st.Version)
			}
			fmt.Fprintln(w)
		case t.Required:
			red.Fprintln(w, "✗ not found")
		default:
			yellow.Fprintln(w, "○ not found (optional)")
		}
		if !st.Installed || st.Outdated {
			gray.Fprintf(w, "      %s\n", t.InstallCmd)
			gray.Fprintf(w, "      %s\n", t.Homepage)
		}
	}

	missing := checker.GetMissingRequired()
	fmt.Fprintln(w, "─────────────────────────────────────────────────────")
	fmt.Fprintf(w, "Required: %d/%d installed\n", countRequired()-len(missing), countRequired())
	fmt.Fprintln(w)
	if len(missing) > 0 {
		yellow.Fprintf(w, "⚠ Missing: %v\n", missing)
	} else {
		green.Fprintln(w, "✓ All required tools are installed!")
	}
	return nil
}

func countRequired() int {
	n := 0
	for _, t := range tools.Catalog() {
		if t.Required {
			n++
		}
	}
	return n
}
