package invoker

import (
	"sort"
	"time"

	"github.com/cbr4l0k/Scoop/internal/target"
)

// Kind names one external capability. The set is closed: anything not in
// specs is rejected with ErrUnknownTool.
type Kind string

const (
	NucleiURLScan       Kind = "nuclei-url-scan"
	HttpxProbe          Kind = "httpx-probe"
	KatanaCrawl         Kind = "katana-crawl"
	WaybackurlsFetch    Kind = "waybackurls-fetch"
	DirsearchBruteforce Kind = "dirsearch-bruteforce"
	SubfinderEnumerate  Kind = "subfinder-enumerate"
	NaabuPortscan       Kind = "naabu-portscan"
	NucleiHostScan      Kind = "nuclei-host-scan"
)

// OutputMode says how stdout is turned into a Result.
type OutputMode int

const (
	OutputLines OutputMode = iota // split on newlines
	OutputText                    // returned as-is
	OutputURLs                    // URL-shaped substrings only
)

func (m OutputMode) String() string {
	switch m {
	case OutputText:
		return "text"
	case OutputURLs:
		return "urls"
	default:
		return "lines"
	}
}

type spec struct {
	binary  string
	args    func(t string) []string // nil: declared but not implemented
	target  target.Kind
	output  OutputMode
	timeout time.Duration
	verb    string // progress wording, e.g. "crawling"
}

var specs = map[Kind]spec{
	NucleiURLScan: {
		binary:  "nuclei",
		args:    func(t string) []string { return []string{"-nc", "-u", t} },
		target:  target.URL,
		output:  OutputLines,
		timeout: 30 * time.Minute,
		verb:    "scanning",
	},
	HttpxProbe: {
		binary:  "httpx-pd",
		args:    func(t string) []string { return []string{"-sc", "-fr", "-title", "-u", t, "-nc", "-silent"} },
		target:  target.URL,
		output:  OutputText,
		timeout: 2 * time.Minute,
		verb:    "probing",
	},
	KatanaCrawl: {
		binary:  "katana",
		args:    func(t string) []string { return []string{"-u", t} },
		target:  target.URL,
		output:  OutputLines,
		timeout: 10 * time.Minute,
		verb:    "crawling",
	},
	WaybackurlsFetch: {
		binary:  "waybackurls",
		args:    func(t string) []string { return []string{t} },
		target:  target.URL,
		output:  OutputLines,
		timeout: 5 * time.Minute,
		verb:    "collecting past urls for",
	},
	DirsearchBruteforce: {
		binary:  "dirsearch",
		args:    func(t string) []string { return []string{"-u", t, "--format=plain", "-quiet"} },
		target:  target.URL,
		output:  OutputURLs,
		timeout: 30 * time.Minute,
		verb:    "bruteforcing",
	},
	SubfinderEnumerate: {
		binary:  "subfinder",
		args:    func(t string) []string { return []string{"-d", t, "--silent"} },
		target:  target.Host,
		output:  OutputLines,
		timeout: 10 * time.Minute,
		verb:    "finding subdomains for",
	},
	NaabuPortscan: {
		binary: "naabu",
		target: target.Host,
		verb:   "port scanning",
	},
	NucleiHostScan: {
		binary: "nuclei",
		target: target.Host,
		verb:   "scanning",
	},
}

// Kinds returns every declared kind, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(specs))
	for k := range specs {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseKind maps a name to a Kind. Short tool names are accepted for the
// unambiguous kinds ("katana", "subfinder", ...).
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if _, ok := specs[k]; ok {
		return k, nil
	}
	switch name {
	case "httpx", "httpx-pd":
		return HttpxProbe, nil
	case "katana":
		return KatanaCrawl, nil
	case "waybackurls":
		return WaybackurlsFetch, nil
	case "dirsearch":
		return DirsearchBruteforce, nil
	case "subfinder":
		return SubfinderEnumerate, nil
	case "naabu":
		return NaabuPortscan, nil
	}
	return "", &Error{Kind: k, Err: ErrUnknownTool}
}

func (k Kind) lookup() (spec, bool) {
	s, ok := specs[k]
	return s, ok
}

// Implemented reports whether k builds an invocation.
func (k Kind) Implemented() bool {
	s, ok := specs[k]
	return ok && s.args != nil
}

// Binary is the default executable for k.
func (k Kind) Binary() string { return specs[k].binary }

// Target is the kind of target k expects.
func (k Kind) Target() target.Kind { return specs[k].target }

// Output is how k's stdout is decoded.
func (k Kind) Output() OutputMode { return specs[k].output }

// DefaultTimeout is used when the caller configures none.
func (k Kind) DefaultTimeout() time.Duration { return specs[k].timeout }

// Verb describes what k does to a target, for progress output.
func (k Kind) Verb() string { return specs[k].verb }
