package tools

import (
	"context"
	"os/exec"
	"regexp"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
)

var versionRe = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?)`)

type Checker struct {
	lookPath func(string) (string, error)
	version  func(bin string) string
}

func NewChecker() *Checker {
	c := &Checker{lookPath: exec.LookPath}
	c.version = c.versionFast
	return c
}

// CheckAll checks every catalog tool in parallel, preserving catalog order.
func (c *Checker) CheckAll() []ToolStatus {
	catalog := Catalog()
	out := make([]ToolStatus, len(catalog))

	var wg sync.WaitGroup
	for i, t := range catalog {
		wg.Add(1)
		go func(idx int, tool Tool) {
			defer wg.Done()
			out[idx] = c.Check(tool)
		}(i, t)
	}
	wg.Wait()
	return out
}

func (c *Checker) IsInstalled(bin string) bool {
	_, err := c.lookPath(bin)
	return err == nil
}

func (c *Checker) GetMissingRequired() []string {
	var missing []string
	for _, t := range Catalog() {
		if t.Required && !c.IsInstalled(t.Binary) {
			missing = append(missing, t.Binary)
		}
	}
	return missing
}

func (c *Checker) Check(t Tool) ToolStatus {
	s := ToolStatus{Name: t.Name, Binary: t.Binary, Installed: c.IsInstalled(t.Binary)}
	if !s.Installed {
		return s
	}
	s.Version = c.version(t.Binary)
	s.Outdated = IsOutdated(s.Version, t.MinVersion)
	return s
}

// ParseVersion pulls the first version-looking token out of tool output.
func ParseVersion(out string) (*semver.Version, bool) {
	m := versionRe.FindStringSubmatch(out)
	if m == nil {
		return nil, false
	}
	v, err := semver.NewVersion(m[1])
	if err != nil {
		return nil, false
	}
	return v, true
}

// IsOutdated reports whether version is known and older than min.
// Unparseable versions are never reported as outdated.
func IsOutdated(version, min string) bool {
	if min == "" || version == "" {
		return false
	}
	have, ok := ParseVersion(version)
	if !ok {
		return false
	}
	want, err := semver.NewVersion(min)
	if err != nil {
		return false
	}
	return have.LessThan(want)
}

// versionFast asks the binary for its version with a short timeout.
// ProjectDiscovery tools print the version banner on stderr.
func (c *Checker) versionFast(bin string) string {
	for _, flag := range []string{"-version", "--version"} {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		out, _ := exec.CommandContext(ctx, bin, flag).CombinedOutput()
		cancel()
		if v, ok := ParseVersion(string(out)); ok {
			return v.String()
		}
	}
	return ""
}
