package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/cbr4l0k/Scoop/internal/version.Version=..."
var (
	Version   = "0.2.0"
	Commit    = "dev"
	BuildDate = "unknown"
)

// Info returns formatted version information
func Info() string {
	return fmt.Sprintf("scoop version %s (%s, built %s)\n  go: %s\n  os/arch: %s/%s",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
